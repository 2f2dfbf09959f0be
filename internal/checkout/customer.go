package checkout

import "strings"

// Customer is the contact block submitted with a checkout. Shape is
// validated (go-playground tags), existence is not.
type Customer struct {
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required"`
	Address    string `json:"address"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
}

// NormalizePhone rewrites a phone number into +-prefixed international form.
// Everything but digits is stripped, an international 00 prefix becomes +,
// and a bare national number gets the Danish country code.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}

	hadPlus := strings.HasPrefix(strings.TrimSpace(phone), "+")
	if strings.HasPrefix(digits, "00") {
		return "+" + digits[2:]
	}
	if hadPlus {
		return "+" + digits
	}
	return "+45" + digits
}
