package stripeapi

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_testsecret"

var completedPayload = []byte(`{
	"id": "evt_1",
	"type": "checkout.session.completed",
	"data": {"object": {"id": "cs_test_123", "amount_total": 5998}}
}`)

func TestConstructEvent_Valid(t *testing.T) {
	now := time.Now()
	header := Sign(completedPayload, testSecret, now)

	event, err := constructEventAt(completedPayload, header, testSecret, now, DefaultTolerance)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, "checkout.session.completed", event.Type)
	assert.Contains(t, string(event.Data.Object), "cs_test_123")
}

func TestConstructEvent_WrongSecret(t *testing.T) {
	now := time.Now()
	header := Sign(completedPayload, "whsec_other", now)

	_, err := constructEventAt(completedPayload, header, testSecret, now, DefaultTolerance)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestConstructEvent_TamperedPayload(t *testing.T) {
	now := time.Now()
	header := Sign(completedPayload, testSecret, now)

	tampered := append([]byte(nil), completedPayload...)
	tampered[len(tampered)-2] = 'X'

	_, err := constructEventAt(tampered, header, testSecret, now, DefaultTolerance)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestConstructEvent_StaleTimestamp(t *testing.T) {
	signedAt := time.Now().Add(-10 * time.Minute)
	header := Sign(completedPayload, testSecret, signedAt)

	_, err := constructEventAt(completedPayload, header, testSecret, time.Now(), DefaultTolerance)
	assert.ErrorIs(t, err, ErrTimestampTooOld)
}

func TestConstructEvent_MalformedHeader(t *testing.T) {
	for _, header := range []string{"", "garbage", "t=notanumber,v1=abc", "v1=deadbeef", fmt.Sprintf("t=%d", time.Now().Unix())} {
		_, err := ConstructEvent(completedPayload, header, testSecret)
		assert.Error(t, err, "header %q", header)
	}
}

func TestConstructEvent_MultipleSignatures(t *testing.T) {
	// A rotated endpoint sends several v1 entries; any single match passes.
	now := time.Now()
	valid := Sign(completedPayload, testSecret, now)
	header := fmt.Sprintf("%s,v1=%s", valid, "0000000000000000000000000000000000000000000000000000000000000000")

	_, err := constructEventAt(completedPayload, header, testSecret, now, DefaultTolerance)
	assert.NoError(t, err)
}
