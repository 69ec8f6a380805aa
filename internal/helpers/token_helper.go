package helpers

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RandomCode returns n random bytes as an upper-case hex string.
func RandomCode(n int) string {
	byt := make([]byte, n)
	if _, err := rand.Read(byt); err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(err)
	}
	return strings.ToUpper(hex.EncodeToString(byt))
}

// NewQRToken builds the token stored on a ticket and printed into its QR
// image. The event and ticket-type prefixes make tokens greppable; the random
// suffix makes them unique.
func NewQRToken(eventID, ticketTypeID uuid.UUID) string {
	return fmt.Sprintf("TKT-%s-%s-%d-%s",
		shortID(eventID), shortID(ticketTypeID), time.Now().Unix(), RandomCode(4))
}

// NewTransactionRef labels a simulated mobile-money charge.
func NewTransactionRef() string {
	return fmt.Sprintf("TXN-%d-%s", time.Now().UnixMilli(), RandomCode(3))
}

func shortID(id uuid.UUID) string {
	return strings.ToUpper(strings.SplitN(id.String(), "-", 2)[0])
}

// SignQRPayload produces the string encoded into the QR PNG: the raw token
// plus an HMAC so gate scanners can verify it offline.
func SignQRPayload(ticketID uuid.UUID, qrToken, secret string) string {
	return fmt.Sprintf("ticket:%s;code:%s;signature:%s",
		ticketID.String(), qrToken, qrSignature(ticketID, qrToken, secret))
}

// VerifyQRPayload checks a scanned payload against the signing secret and
// returns the embedded ticket id.
func VerifyQRPayload(payload, secret string) (uuid.UUID, error) {
	parts := strings.Split(payload, ";")
	if len(parts) != 3 ||
		!strings.HasPrefix(parts[0], "ticket:") ||
		!strings.HasPrefix(parts[1], "code:") ||
		!strings.HasPrefix(parts[2], "signature:") {
		return uuid.Nil, fmt.Errorf("invalid QR payload format")
	}

	ticketID, err := uuid.Parse(strings.TrimPrefix(parts[0], "ticket:"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid ticket ID in QR payload")
	}
	qrToken := strings.TrimPrefix(parts[1], "code:")
	signature := strings.TrimPrefix(parts[2], "signature:")

	expected := qrSignature(ticketID, qrToken, secret)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return uuid.Nil, fmt.Errorf("QR payload signature mismatch")
	}
	return ticketID, nil
}

func qrSignature(ticketID uuid.UUID, qrToken, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%s:%s", ticketID.String(), qrToken)
	return hex.EncodeToString(h.Sum(nil))
}
