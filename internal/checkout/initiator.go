// Package checkout orchestrates one purchase attempt: requesting a
// hosted payment session from the backend and, when the backend is
// unreachable, running the local simulated-payment fallback so the
// storefront can still sell.
package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/Eidanhurtado/Bibliowave/internal/domain"
	"github.com/Eidanhurtado/Bibliowave/internal/fulfillment"
	"github.com/Eidanhurtado/Bibliowave/internal/pricing"
)

var (
	ErrCheckoutInProgress = errors.New("a checkout attempt is already in progress")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrIllegalTransition  = errors.New("illegal checkout state transition")
	ErrDeliveryFailed     = errors.New("e-book delivery failed, retry possible")
)

// matches local@domain.tld, the same syntactic check the storefront has
// always applied; nothing beyond syntax is validated.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// CartService is the slice of the cart store the initiator needs.
type CartService interface {
	Items() []domain.LineItem
	DiscountRate() float64
	Totals() pricing.Breakdown
	Clear(ctx context.Context) error
}

// Deliverer dispatches fulfillment for a confirmed purchase.
type Deliverer interface {
	Deliver(ctx context.Context, items []domain.LineItem, buyerEmail, buyerName string) []fulfillment.Result
}

// Presenter owns every user-visible side effect of a checkout attempt.
// The storefront UI implements it; tests use recording fakes.
type Presenter interface {
	RedirectToCheckout(session domain.PaymentSession)
	OpenFallbackForm(items []domain.LineItem, totalCents int64)
	CloseFallbackForm()
	ShowSuccess(totalCents int64, buyerEmail string)
	ReportError(message string)
}

type Initiator struct {
	backendURL string
	httpClient *http.Client
	cart       CartService
	deliverer  Deliverer
	presenter  Presenter

	// sleep simulates payment processing latency in the fallback flow;
	// tests replace it.
	sleep func(ctx context.Context, d time.Duration)

	mu      sync.Mutex
	current *Attempt
}

func NewInitiator(backendURL string, cart CartService, deliverer Deliverer, presenter Presenter) *Initiator {
	return &Initiator{
		backendURL: backendURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cart:       cart,
		deliverer:  deliverer,
		presenter:  presenter,
		sleep: func(ctx context.Context, d time.Duration) {
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
		},
	}
}

// Attempt is one checkout run from session request to a terminal
// outcome. It stays referenced by the initiator until it terminates or
// is cancelled, blocking concurrent attempts.
type Attempt struct {
	initiator *Initiator

	mu     sync.Mutex
	status domain.CheckoutStatus
	items  []domain.LineItem
	kind   domain.PurchaseKind
	rate   float64
	done   chan struct{}
}

func (a *Attempt) Status() domain.CheckoutStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Done closes once the attempt reaches a terminal state.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

func (a *Attempt) transition(next domain.CheckoutStatus) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !domain.CanTransitionTo(a.status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, a.status, next)
	}
	a.status = next
	if next.IsTerminal() {
		close(a.done)
	}
	return nil
}

// Start begins a checkout attempt for the given items. kind "cart"
// snapshots the live cart's items; "single" uses exactly the first
// item passed and ignores the cart. Only one attempt may be live at a
// time; a second Start before the first resolves is rejected so a
// buyer cannot double-charge themselves.
func (i *Initiator) Start(ctx context.Context, items []domain.LineItem, kind domain.PurchaseKind) (*Attempt, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown purchase kind %q", kind)
	}
	if len(items) == 0 {
		i.presenter.ReportError("Tu biblioteca está vacía")
		return nil, ErrEmptyCart
	}
	if kind == domain.PurchaseSingle {
		items = items[:1]
	}

	i.mu.Lock()
	if i.current != nil {
		i.mu.Unlock()
		return nil, ErrCheckoutInProgress
	}
	attempt := &Attempt{
		initiator: i,
		status:    domain.CheckoutStatusIdle,
		items:     append([]domain.LineItem(nil), items...),
		kind:      kind,
		rate:      i.cart.DiscountRate(),
		done:      make(chan struct{}),
	}
	i.current = attempt
	i.mu.Unlock()

	if err := attempt.transition(domain.CheckoutStatusSessionRequested); err != nil {
		i.release(attempt)
		return nil, err
	}

	session, err := i.createPaymentSession(ctx, attempt)
	if err != nil {
		log.Printf("payment backend unavailable, opening simulated payment flow: %v", err)
		if errT := attempt.transition(domain.CheckoutStatusSessionFailed); errT != nil {
			i.release(attempt)
			return nil, errT
		}
		if errT := attempt.transition(domain.CheckoutStatusFallbackFormOpen); errT != nil {
			i.release(attempt)
			return nil, errT
		}
		i.presenter.OpenFallbackForm(attempt.items, attempt.displayTotal())
		return attempt, nil
	}

	if err := attempt.transition(domain.CheckoutStatusSessionCreated); err != nil {
		i.release(attempt)
		return nil, err
	}
	i.presenter.RedirectToCheckout(*session)
	if err := attempt.transition(domain.CheckoutStatusRedirected); err != nil {
		i.release(attempt)
		return nil, err
	}
	i.release(attempt)
	return attempt, nil
}

// SubmitFallback processes the simulated payment form. A syntactically
// invalid email is rejected before any backend contact and the form
// stays open. Delivery failure leaves the attempt retryable; the cart
// is only cleared after every item was handled and only for full-cart
// purchases.
func (i *Initiator) SubmitFallback(ctx context.Context, attempt *Attempt, buyerEmail, buyerName string) error {
	if !emailPattern.MatchString(buyerEmail) {
		i.presenter.ReportError("Por favor ingresa un email válido")
		return ErrInvalidEmail
	}

	if err := attempt.transition(domain.CheckoutStatusFallbackSubmitted); err != nil {
		return err
	}
	if err := attempt.transition(domain.CheckoutStatusProcessing); err != nil {
		return err
	}

	// Simulated processing latency, as the demo flow has always shown.
	i.sleep(ctx, 2*time.Second)

	if buyerName == "" {
		buyerName = "Cliente"
	}

	results := i.deliverer.Deliver(ctx, attempt.items, buyerEmail, buyerName)
	for _, r := range results {
		if r.Err != nil {
			log.Printf("fulfillment error for item %s: %v", r.ItemID, r.Err)
			if errT := attempt.transition(domain.CheckoutStatusDeliveryFailed); errT != nil {
				return errT
			}
			if errT := attempt.transition(domain.CheckoutStatusReportable); errT != nil {
				return errT
			}
			i.presenter.ReportError("Error procesando el pago. Inténtalo de nuevo.")
			return ErrDeliveryFailed
		}
	}

	if err := attempt.transition(domain.CheckoutStatusDelivered); err != nil {
		return err
	}

	if attempt.kind == domain.PurchaseCart {
		if err := i.cart.Clear(ctx); err != nil {
			log.Printf("failed to clear cart after delivery: %v", err)
		}
	}

	i.presenter.ShowSuccess(attempt.displayTotal(), buyerEmail)
	i.presenter.CloseFallbackForm()

	if err := attempt.transition(domain.CheckoutStatusCleared); err != nil {
		return err
	}
	i.release(attempt)
	return nil
}

// Cancel abandons a non-terminal attempt (buyer closed the fallback
// form), releasing the in-progress guard.
func (i *Initiator) Cancel(attempt *Attempt) {
	i.release(attempt)
}

func (i *Initiator) release(attempt *Attempt) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.current == attempt {
		i.current = nil
	}
}

func (a *Attempt) displayTotal() int64 {
	if a.kind == domain.PurchaseSingle {
		return a.items[0].UnitPrice
	}
	return pricing.Totals(a.items, a.rate).Total
}

func (i *Initiator) createPaymentSession(ctx context.Context, attempt *Attempt) (*domain.PaymentSession, error) {
	reqBody := domain.PaymentRequest{
		Items:        attempt.items,
		Kind:         attempt.kind,
		DiscountRate: attempt.rate,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		i.backendURL+"/create-payment-session", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payment backend returned status %d", resp.StatusCode)
	}

	var session domain.PaymentSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("malformed session response: %w", err)
	}
	if session.ID == "" {
		return nil, errors.New("session response missing id")
	}
	return &session, nil
}
