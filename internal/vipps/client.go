package vipps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Fundandi1/memorybear/internal/checkout"
)

type Config struct {
	// BaseURL overrides the environment default when set.
	BaseURL              string
	Production           bool
	ClientID             string
	ClientSecret         string
	SubscriptionKey      string
	MerchantSerialNumber string
	WebhookURL           string
}

// Client talks to the Vipps MobilePay ePayment API. It implements
// checkout.PaymentProvider.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *logrus.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewClient(cfg Config, log *logrus.Logger) *Client {
	if cfg.BaseURL == "" {
		if cfg.Production {
			cfg.BaseURL = ProdBaseURL
		} else {
			cfg.BaseURL = TestBaseURL
		}
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

func (c *Client) CreatePayment(ctx context.Context, payment checkout.ProviderPayment) (*checkout.ProviderSession, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	returnURL := payment.ReturnURL
	if returnURL != "" {
		// The completion page resolves the payment by this reference.
		returnURL = fmt.Sprintf("%s?reference=%s", returnURL, payment.Reference)
	}

	body, err := json.Marshal(createPaymentRequest{
		Amount:              amount{Value: payment.Amount, Currency: payment.Currency},
		PaymentMethod:       paymentMethod{Type: "WALLET"},
		CustomerInteraction: "CUSTOMER_PRESENT",
		Reference:           payment.Reference,
		PaymentDescription:  payment.Description,
		ReturnURL:           returnURL,
		UserFlow:            "WEB_REDIRECT",
		WebhookURL:          c.cfg.WebhookURL,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/epayment/v1/payments", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setPaymentHeaders(req, token, trimKey(payment.Reference))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", checkout.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, &checkout.PaymentRejectedError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var created createPaymentResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("decode payment response: %w", err)
	}
	if created.RedirectURL == "" {
		return nil, fmt.Errorf("payment response missing redirect url")
	}

	reference := created.Reference
	if reference == "" {
		reference = payment.Reference
	}
	return &checkout.ProviderSession{Reference: reference, RedirectURL: created.RedirectURL}, nil
}

func (c *Client) GetPayment(ctx context.Context, reference string) (*checkout.ProviderStatus, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/epayment/v1/payments/%s", c.cfg.BaseURL, reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.setPaymentHeaders(req, token, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", checkout.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var details paymentDetails
	if err := json.Unmarshal(respBody, &details); err != nil {
		return nil, fmt.Errorf("decode payment details: %w", err)
	}

	authorized := details.Summary.AuthorizedAmount.Value
	if authorized == 0 {
		authorized = details.Amount.Value
	}
	currency := details.Summary.AuthorizedAmount.Currency
	if currency == "" {
		currency = details.Amount.Currency
	}

	return &checkout.ProviderStatus{
		State:            details.State,
		AuthorizedAmount: authorized,
		Currency:         currency,
		Raw:              respBody,
	}, nil
}

func (c *Client) Capture(ctx context.Context, reference string, captureAmount int64, description string) error {
	return c.modify(ctx, reference, "capture", "cap", captureAmount, description)
}

func (c *Client) Cancel(ctx context.Context, reference string) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/epayment/v1/payments/%s/cancel", c.cfg.BaseURL, reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	c.setPaymentHeaders(req, token, modificationKey("cnl", reference))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", checkout.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}

func (c *Client) modify(ctx context.Context, reference, operation, keyPrefix string, value int64, description string) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(modificationRequest{
		ModificationAmount: amount{Value: value, Currency: "DKK"},
		Description:        description,
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	url := fmt.Sprintf("%s/epayment/v1/payments/%s/%s", c.cfg.BaseURL, reference, operation)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.setPaymentHeaders(req, token, modificationKey(keyPrefix, reference))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", checkout.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}

// accessToken returns a cached bearer token, fetching a new one when the
// cached one is missing or about to expire.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/accesstoken/get", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("client_id", c.cfg.ClientID)
	req.Header.Set("client_secret", c.cfg.ClientSecret)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", checkout.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var token tokenResponse
	if err := json.Unmarshal(respBody, &token); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	// expires_in comes back as a string of seconds.
	ttl := time.Hour
	if secs, err := strconv.Atoi(token.ExpiresIn); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}
	c.token = token.AccessToken
	c.tokenExpiry = time.Now().Add(ttl - time.Minute)

	c.log.WithField("expiry", c.tokenExpiry).Debug("fetched new access token")
	return c.token, nil
}

func (c *Client) setPaymentHeaders(req *http.Request, token, idempotencyKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)
	req.Header.Set("Merchant-Serial-Number", c.cfg.MerchantSerialNumber)
	req.Header.Set("Vipps-System-Name", systemName)
	req.Header.Set("Vipps-System-Version", systemVersion)
	req.Header.Set("Vipps-System-Plugin-Name", pluginName)
	req.Header.Set("Vipps-System-Plugin-Version", pluginVersion)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
}

// modificationKey builds an idempotency key like "cap-<reference>-<8 hex>"
// inside the provider's 50 character limit.
func modificationKey(prefix, reference string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	maxRef := maxIdempotencyKeyLen - len(prefix) - len(suffix) - 2
	if len(reference) > maxRef {
		reference = reference[:maxRef]
	}
	return fmt.Sprintf("%s-%s-%s", prefix, reference, suffix)
}

func trimKey(key string) string {
	if len(key) > maxIdempotencyKeyLen {
		return key[:maxIdempotencyKeyLen]
	}
	return key
}
