package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Eidanhurtado/Bibliowave/internal/catalog"
	"github.com/Eidanhurtado/Bibliowave/internal/domain"
	"github.com/Eidanhurtado/Bibliowave/internal/pricing"
	"github.com/Eidanhurtado/Bibliowave/internal/stripeapi"
)

const (
	maxRequestBody = 1 << 20 // 1MB

	// defaultBuyerEmail is attached to session metadata when the
	// storefront never collected one before redirecting.
	defaultBuyerEmail = "cliente@bibliowave.com"

	// webhookSeenTTL bounds how long a processed session id blocks
	// redeliveries of the same event.
	webhookSeenTTL = 24 * time.Hour
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sessionItem is one line of a session-creation request. The
// storefront client prices items in euros ("price"); internal callers
// send cents ("unit_price"). Cents win when both are present.
type sessionItem struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Price     *float64 `json:"price"`
	UnitPrice *int64   `json:"unit_price"`
}

func (it sessionItem) cents() int64 {
	switch {
	case it.UnitPrice != nil:
		return *it.UnitPrice
	case it.Price != nil:
		return pricing.CentsFromMajor(*it.Price)
	}
	return 0
}

type createSessionRequest struct {
	Items        []sessionItem       `json:"items"`
	Kind         domain.PurchaseKind `json:"type"`
	DiscountRate float64             `json:"discount"`
	Email        string              `json:"email"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if !req.Kind.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_type", fmt.Sprintf("unknown purchase type %q", req.Kind))
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "empty_items", "at least one item is required")
		return
	}
	if req.DiscountRate < 0 || req.DiscountRate > 1 {
		respondError(w, http.StatusBadRequest, "invalid_discount", "discount must be between 0 and 1")
		return
	}

	items := req.Items
	if req.Kind == domain.PurchaseSingle {
		items = items[:1]
	}

	// Price every line against the catalog. Titles without a
	// canonical entry are sold at the requested price.
	lineItems := make([]stripeapi.SessionLineItem, 0, len(items))
	itemIDs := make([]string, 0, len(items))
	for _, it := range items {
		p := catalog.Resolve(r.Context(), s.catalog, it.Title, it.cents())
		lineItems = append(lineItems, stripeapi.SessionLineItem{
			Name:        p.Name,
			Description: p.Description,
			UnitAmount:  p.PriceCents,
			Currency:    "eur",
		})
		itemIDs = append(itemIDs, p.Slug)
	}

	params := stripeapi.SessionParams{
		LineItems:  lineItems,
		SuccessURL: s.cfg.BaseURL + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.cfg.BaseURL + "/",
		Metadata: map[string]string{
			"type":           string(req.Kind),
			"customer_email": defaultBuyerEmail,
			"item_ids":       strings.Join(itemIDs, ","),
		},
	}
	if req.Email != "" {
		params.Metadata["customer_email"] = req.Email
	}

	if req.DiscountRate > 0 {
		coupon, err := s.provider.CreateCoupon(r.Context(), req.DiscountRate*100)
		if err != nil {
			log.Printf("failed to create coupon: %v", err)
			respondError(w, http.StatusInternalServerError, "provider_error", "could not create discount coupon")
			return
		}
		params.CouponID = coupon.ID
	}

	session, err := s.provider.CreateCheckoutSession(r.Context(), params)
	if err != nil {
		log.Printf("failed to create checkout session: %v", err)
		respondError(w, http.StatusInternalServerError, "provider_error", "could not create payment session")
		return
	}

	respondJSON(w, http.StatusOK, domain.PaymentSession{ID: session.ID, URL: session.URL})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "could not read body")
		return
	}

	event, err := stripeapi.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), s.cfg.WebhookSecret)
	if err != nil {
		log.Printf("webhook signature verification failed: %v", err)
		respondError(w, http.StatusBadRequest, "invalid_signature", "webhook signature verification failed")
		return
	}

	if event.Type != "checkout.session.completed" {
		respondJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil || session.ID == "" {
		respondError(w, http.StatusBadRequest, "invalid_event", "malformed session object")
		return
	}

	// Providers redeliver events; only the first arrival per session
	// triggers fulfillment.
	first, err := s.redis.SetNX(r.Context(), "webhook:seen:"+session.ID, 1, webhookSeenTTL).Result()
	if err != nil {
		log.Printf("webhook dedupe check failed for %s: %v", session.ID, err)
	} else if !first {
		log.Printf("duplicate webhook delivery for session %s, skipping", session.ID)
		respondJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	confirmation := domain.PurchaseConfirmation{
		SessionID:   session.ID,
		AmountTotal: session.AmountTotal,
		BuyerEmail:  buyerEmail(session),
	}
	items := s.itemsFromMetadata(r, session.Metadata["item_ids"], &confirmation)

	buyerName := session.CustomerDetails.Name
	if buyerName == "" {
		buyerName = "Cliente"
	}

	// Fulfillment runs detached so slow delivery never makes the
	// provider retry an already-paid session.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, res := range s.deliverer.Deliver(ctx, items, confirmation.BuyerEmail, buyerName) {
			if res.Err != nil {
				log.Printf("fulfillment error for session %s item %s: %v", session.ID, res.ItemID, res.Err)
			}
		}
	}()

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func buyerEmail(session stripeapi.CheckoutSession) string {
	if session.CustomerDetails.Email != "" {
		return session.CustomerDetails.Email
	}
	if email := session.Metadata["customer_email"]; email != "" {
		return email
	}
	return defaultBuyerEmail
}

// itemsFromMetadata rebuilds deliverable line items from the slug list
// stamped into the session at creation time.
func (s *Server) itemsFromMetadata(r *http.Request, itemIDs string, confirmation *domain.PurchaseConfirmation) []domain.LineItem {
	var items []domain.LineItem
	for _, slug := range strings.Split(itemIDs, ",") {
		slug = strings.TrimSpace(slug)
		if slug == "" {
			continue
		}
		item := domain.LineItem{ID: slug, Title: slug}
		if p, err := s.catalog.GetProduct(r.Context(), slug); err == nil {
			item.Title = p.Name
			item.Description = p.Description
			item.UnitPrice = p.PriceCents
		}
		items = append(items, item)
		confirmation.ItemTitles = append(confirmation.ItemTitles, item.Title)
	}
	return items
}

var successTemplate = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html lang="es">
<head><meta charset="utf-8"><title>Compra confirmada - Bibliowave</title></head>
<body>
<h1>¡Gracias por tu compra!</h1>
<p>Hemos recibido tu pago de <strong>{{.Amount}} €</strong>.</p>
<p>Recibirás tus e-books en <strong>{{.Email}}</strong> en unos minutos.</p>
</body>
</html>
`))

func (s *Server) handleSuccess(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "missing session_id", http.StatusBadRequest)
		return
	}

	session, err := s.provider.GetCheckoutSession(r.Context(), sessionID)
	if err != nil {
		log.Printf("failed to retrieve session %s: %v", sessionID, err)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "<h1>No pudimos confirmar tu compra</h1><p>Contacta con soporte si el cargo aparece en tu cuenta.</p>")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = successTemplate.Execute(w, map[string]string{
		"Amount": pricing.FormatAmount(session.AmountTotal),
		"Email":  buyerEmail(*session),
	})
	if err != nil {
		log.Printf("failed to render success page: %v", err)
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
