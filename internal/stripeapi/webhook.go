package stripeapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance bounds how stale a webhook timestamp may be before
// the signature is rejected, mirroring the provider SDK's default.
const DefaultTolerance = 5 * time.Minute

var (
	ErrInvalidSignatureHeader = errors.New("webhook signature header is malformed")
	ErrSignatureMismatch      = errors.New("webhook signature verification failed")
	ErrTimestampTooOld        = errors.New("webhook timestamp outside of tolerance")
)

// Event is a provider webhook event. Data.Object stays raw until the
// handler knows the event type.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ConstructEvent verifies the signature header against the endpoint
// secret and, only then, parses the payload into an Event. The header
// carries "t=<unix>,v1=<hex hmac>" pairs; the MAC is HMAC-SHA256 over
// "<t>.<payload>".
func ConstructEvent(payload []byte, sigHeader, secret string) (Event, error) {
	return constructEventAt(payload, sigHeader, secret, time.Now(), DefaultTolerance)
}

func constructEventAt(payload []byte, sigHeader, secret string, now time.Time, tolerance time.Duration) (Event, error) {
	var event Event

	ts, sigs, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return event, err
	}

	if now.Sub(time.Unix(ts, 0)) > tolerance {
		return event, ErrTimestampTooOld
	}

	expected := computeSignature(payload, secret, ts)
	match := false
	for _, sig := range sigs {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			match = true
			break
		}
	}
	if !match {
		return event, ErrSignatureMismatch
	}

	if err := json.Unmarshal(payload, &event); err != nil {
		return event, fmt.Errorf("failed to parse webhook payload: %w", err)
	}
	return event, nil
}

func parseSignatureHeader(header string) (ts int64, sigs []string, err error) {
	tsSeen := false
	for _, pair := range strings.Split(header, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			continue
		}
		switch parts[0] {
		case "t":
			ts, err = strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return 0, nil, ErrInvalidSignatureHeader
			}
			tsSeen = true
		case "v1":
			sigs = append(sigs, parts[1])
		}
	}

	if !tsSeen || len(sigs) == 0 {
		return 0, nil, ErrInvalidSignatureHeader
	}
	return ts, sigs, nil
}

func computeSignature(payload []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Sign produces a valid signature header for a payload, as the
// provider would. Used by tests and local webhook replay tooling.
func Sign(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, computeSignature(payload, secret, ts))
}
