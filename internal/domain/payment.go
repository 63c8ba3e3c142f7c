package domain

// PurchaseKind distinguishes a single-item buy from a full cart
// checkout on the wire ("single" / "cart").
type PurchaseKind string

const (
	PurchaseSingle PurchaseKind = "single"
	PurchaseCart   PurchaseKind = "cart"
)

func (k PurchaseKind) Valid() bool {
	return k == PurchaseSingle || k == PurchaseCart
}

// PaymentRequest is the payload sent to the payment backend when a
// checkout starts. Kind "single" carries exactly one line item and
// ignores the live cart; "cart" snapshots the whole cart.
type PaymentRequest struct {
	Items        []LineItem   `json:"items"`
	Kind         PurchaseKind `json:"type"`
	DiscountRate float64      `json:"discount"`
	Email        string       `json:"email,omitempty"`
}

// PaymentSession is the opaque handle to a hosted checkout flow run by
// the provider. Used once to redirect the buyer.
type PaymentSession struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

// PurchaseConfirmation is what a verified "checkout completed" webhook
// event boils down to: who paid how much for which titles.
type PurchaseConfirmation struct {
	SessionID   string
	AmountTotal int64
	BuyerEmail  string
	ItemTitles  []string
}
