package helpers

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQRToken(t *testing.T) {
	eventID := uuid.New()
	ticketTypeID := uuid.New()

	token := NewQRToken(eventID, ticketTypeID)
	assert.True(t, strings.HasPrefix(token, "TKT-"), token)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		tok := NewQRToken(eventID, ticketTypeID)
		assert.False(t, seen[tok], "duplicate token %s", tok)
		seen[tok] = true
	}
}

func TestQRPayloadRoundTrip(t *testing.T) {
	ticketID := uuid.New()
	token := NewQRToken(uuid.New(), uuid.New())

	payload := SignQRPayload(ticketID, token, "secret")

	got, err := VerifyQRPayload(payload, "secret")
	require.NoError(t, err)
	assert.Equal(t, ticketID, got)
}

func TestQRPayloadTampering(t *testing.T) {
	ticketID := uuid.New()
	payload := SignQRPayload(ticketID, "TKT-X", "secret")

	t.Run("wrong secret", func(t *testing.T) {
		_, err := VerifyQRPayload(payload, "other")
		assert.Error(t, err)
	})

	t.Run("swapped ticket id", func(t *testing.T) {
		forged := strings.Replace(payload, ticketID.String(), uuid.NewString(), 1)
		_, err := VerifyQRPayload(forged, "secret")
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := VerifyQRPayload("not-a-payload", "secret")
		assert.Error(t, err)
	})
}

func TestNewTransactionRef(t *testing.T) {
	ref := NewTransactionRef()
	assert.True(t, strings.HasPrefix(ref, "TXN-"), ref)
	assert.NotEqual(t, ref, NewTransactionRef())
}
