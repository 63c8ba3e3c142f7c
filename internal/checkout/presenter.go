package checkout

import (
	"log"

	"github.com/Eidanhurtado/Bibliowave/internal/domain"
	"github.com/Eidanhurtado/Bibliowave/internal/pricing"
)

// LogPresenter is the headless Presenter for runs without a storefront
// UI attached; every buyer-facing effect becomes a log line.
type LogPresenter struct{}

var _ Presenter = LogPresenter{}

func (LogPresenter) RedirectToCheckout(session domain.PaymentSession) {
	log.Printf("redirecting buyer to %s (session %s)", session.URL, session.ID)
}

func (LogPresenter) OpenFallbackForm(items []domain.LineItem, totalCents int64) {
	log.Printf("payment backend unavailable, fallback form open for %d items, total €%s",
		len(items), pricing.FormatAmount(totalCents))
}

func (LogPresenter) CloseFallbackForm() {
	log.Print("fallback form closed")
}

func (LogPresenter) ShowSuccess(totalCents int64, buyerEmail string) {
	log.Printf("purchase of €%s confirmed for %s", pricing.FormatAmount(totalCents), buyerEmail)
}

func (LogPresenter) ReportError(message string) {
	log.Printf("checkout error: %s", message)
}
