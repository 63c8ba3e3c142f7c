package domain

// CheckoutStatus tracks one checkout attempt from the first session
// request to a terminal outcome. Redirected means control left for the
// provider's hosted UI; Reportable means the fallback form stays open
// for a retry.
type CheckoutStatus string

const (
	CheckoutStatusIdle              CheckoutStatus = "IDLE"
	CheckoutStatusSessionRequested  CheckoutStatus = "SESSION_REQUESTED"
	CheckoutStatusSessionCreated    CheckoutStatus = "SESSION_CREATED"
	CheckoutStatusRedirected        CheckoutStatus = "REDIRECTED"
	CheckoutStatusSessionFailed     CheckoutStatus = "SESSION_FAILED"
	CheckoutStatusFallbackFormOpen  CheckoutStatus = "FALLBACK_FORM_OPEN"
	CheckoutStatusFallbackSubmitted CheckoutStatus = "FALLBACK_SUBMITTED"
	CheckoutStatusProcessing        CheckoutStatus = "PROCESSING"
	CheckoutStatusDelivered         CheckoutStatus = "DELIVERED"
	CheckoutStatusCleared           CheckoutStatus = "CLEARED"
	CheckoutStatusDeliveryFailed    CheckoutStatus = "DELIVERY_FAILED"
	CheckoutStatusReportable        CheckoutStatus = "REPORTABLE"
)

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusRedirected || s == CheckoutStatusCleared
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusIdle:              {CheckoutStatusSessionRequested},
	CheckoutStatusSessionRequested:  {CheckoutStatusSessionCreated, CheckoutStatusSessionFailed},
	CheckoutStatusSessionCreated:    {CheckoutStatusRedirected},
	CheckoutStatusSessionFailed:     {CheckoutStatusFallbackFormOpen},
	CheckoutStatusFallbackFormOpen:  {CheckoutStatusFallbackSubmitted},
	CheckoutStatusFallbackSubmitted: {CheckoutStatusProcessing},
	CheckoutStatusProcessing:        {CheckoutStatusDelivered, CheckoutStatusDeliveryFailed},
	CheckoutStatusDelivered:         {CheckoutStatusCleared},
	CheckoutStatusDeliveryFailed:    {CheckoutStatusReportable},
	// Reportable re-enters the form flow on resubmission.
	CheckoutStatusReportable: {CheckoutStatusFallbackSubmitted},
}

// CanTransitionTo reports whether moving from to next is a legal step
// in the checkout attempt state machine.
func CanTransitionTo(from, next CheckoutStatus) bool {
	for _, allowed := range checkoutTransitions[from] {
		if allowed == next {
			return true
		}
	}
	return false
}
