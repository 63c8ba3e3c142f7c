// Package fulfillment delivers purchased e-books after a confirmed
// payment: one delivery-service call per item, with a direct-download
// fallback when that service is unreachable.
package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Eidanhurtado/Bibliowave/internal/catalog"
	"github.com/Eidanhurtado/Bibliowave/internal/domain"
)

type Method string

const (
	MethodEmail          Method = "email"           // delivery service accepted the job
	MethodDirectDownload Method = "direct-download" // local fallback surface shown
	MethodSkipped        Method = "skipped"         // no automated delivery configured
)

// Result is the per-item outcome. Items are independent: one failing
// never blocks the rest.
type Result struct {
	ItemID        string
	Method        Method
	TransactionID string
	Err           error
}

// FallbackPresenter renders the direct-download surface shown to the
// buyer when the delivery service cannot be reached.
type FallbackPresenter interface {
	ShowDirectDownload(item domain.LineItem, entry catalog.DeliveryEntry, buyerEmail string)
}

// LogPresenter is the headless fallback surface used by the server
// binary, where there is no buyer-facing UI to render the download.
type LogPresenter struct{}

func (LogPresenter) ShowDirectDownload(item domain.LineItem, entry catalog.DeliveryEntry, buyerEmail string) {
	log.Printf("direct download for %q: serve %s to %s, confirmation email follows later",
		item.Title, entry.AssetPath, buyerEmail)
}

// purchaseJob is the delivery microservice's /process-purchase contract.
type purchaseJob struct {
	Email         string  `json:"email"`
	EbookID       string  `json:"ebookId"`
	CustomerName  string  `json:"customerName"`
	TransactionID string  `json:"transactionId"`
	ItemTitle     string  `json:"itemTitle"`
	Price         float64 `json:"price"`
}

type Dispatcher struct {
	deliveryURL string
	httpClient  *http.Client
	presenter   FallbackPresenter
	newTxnID    func() string
}

func NewDispatcher(deliveryURL string, presenter FallbackPresenter) *Dispatcher {
	return &Dispatcher{
		deliveryURL: deliveryURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		presenter:   presenter,
		newTxnID: func() string {
			return "BW-" + uuid.NewString()
		},
	}
}

// Deliver runs one fulfillment attempt for a confirmed purchase.
// Unconfigured items are skipped with only a log line; configured items
// whose delivery call fails get the direct-download fallback instead of
// an error. Safe to invoke again for the same purchase: re-sending a
// download link is harmless.
func (d *Dispatcher) Deliver(ctx context.Context, items []domain.LineItem, buyerEmail, buyerName string) []Result {
	results := make([]Result, 0, len(items))

	for _, item := range items {
		entry, ok := catalog.DeliveryConfig(item.ID)
		if !ok {
			log.Printf("e-book %q has no automated delivery configured, skipping", item.Title)
			results = append(results, Result{ItemID: item.ID, Method: MethodSkipped})
			continue
		}

		txnID := d.newTxnID()
		if err := d.postPurchase(ctx, item, entry, buyerEmail, buyerName, txnID); err != nil {
			log.Printf("delivery service unavailable for %q, using direct-download fallback: %v", item.Title, err)
			d.presenter.ShowDirectDownload(item, entry, buyerEmail)
			results = append(results, Result{ItemID: item.ID, Method: MethodDirectDownload, TransactionID: txnID})
			continue
		}

		log.Printf("e-book %q queued for delivery to %s (txn %s)", item.Title, buyerEmail, txnID)
		results = append(results, Result{ItemID: item.ID, Method: MethodEmail, TransactionID: txnID})
	}

	return results
}

func (d *Dispatcher) postPurchase(ctx context.Context, item domain.LineItem, entry catalog.DeliveryEntry, buyerEmail, buyerName, txnID string) error {
	job := purchaseJob{
		Email:         buyerEmail,
		EbookID:       entry.EbookID,
		CustomerName:  buyerName,
		TransactionID: txnID,
		ItemTitle:     item.Title,
		Price:         decimal.New(item.UnitPrice, -2).InexactFloat64(),
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal purchase job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.deliveryURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delivery request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("delivery service returned status %d", resp.StatusCode)
	}
	return nil
}
