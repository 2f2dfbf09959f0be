package vipps

import "fmt"

const (
	TestBaseURL = "https://apitest.vipps.no"
	ProdBaseURL = "https://api.vipps.no"
)

// System headers identifying this integration to MobilePay.
const (
	systemName    = "MemorybearWebapp"
	systemVersion = "1.0.0"
	pluginName    = "MemorybearCheckout"
	pluginVersion = "1.0.0"
)

// maxIdempotencyKeyLen is the provider-imposed limit on Idempotency-Key.
const maxIdempotencyKeyLen = 50

type amount struct {
	Value    int64  `json:"value"`
	Currency string `json:"currency"`
}

type paymentMethod struct {
	Type string `json:"type"`
}

type createPaymentRequest struct {
	Amount              amount        `json:"amount"`
	PaymentMethod       paymentMethod `json:"paymentMethod"`
	CustomerInteraction string        `json:"customerInteraction"`
	Reference           string        `json:"reference"`
	PaymentDescription  string        `json:"paymentDescription"`
	ReturnURL           string        `json:"returnUrl"`
	UserFlow            string        `json:"userFlow"`
	WebhookURL          string        `json:"webhookUrl,omitempty"`
}

type createPaymentResponse struct {
	Reference   string `json:"reference"`
	RedirectURL string `json:"redirectUrl"`
}

type paymentDetails struct {
	Reference string `json:"reference"`
	State     string `json:"state"`
	Amount    amount `json:"amount"`
	Summary   struct {
		AuthorizedAmount amount `json:"authorizedAmount"`
	} `json:"summary"`
}

type modificationRequest struct {
	ModificationAmount amount `json:"modificationAmount"`
	Description        string `json:"description,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// APIError is a non-2xx answer from the ePayment API with the body kept for
// the audit trail.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vipps api error (status %d): %s", e.StatusCode, e.Body)
}
