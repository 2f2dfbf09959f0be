package checkout

import "strings"

// Outcome is the settlement result reported for a payment reference.
type Outcome string

const (
	// OutcomePending is the state of an order whose payment has not been
	// resolved yet. The resolver never returns it; an unrecognized provider
	// state maps to OutcomeFailed, not here.
	OutcomePending Outcome = "PENDING"

	OutcomeAuthorized Outcome = "AUTHORIZED"
	OutcomeCaptured   Outcome = "CAPTURED"
	OutcomeCancelled  Outcome = "CANCELLED"
	OutcomeFailed     Outcome = "FAILED"
)

func (o Outcome) String() string {
	return string(o)
}

// MapProviderState translates a raw provider payment state into an Outcome.
// The mapping is total: any state not explicitly listed, including an empty
// or malformed one, resolves to OutcomeFailed. A new state appearing on the
// provider side must never be treated as paid until this table is extended.
func MapProviderState(state string) Outcome {
	switch strings.ToUpper(strings.TrimSpace(state)) {
	case "AUTHORIZED":
		return OutcomeAuthorized
	case "CAPTURED":
		return OutcomeCaptured
	case "ABORTED":
		return OutcomeCancelled
	case "FAILED", "TERMINATED":
		return OutcomeFailed
	default:
		return OutcomeFailed
	}
}
