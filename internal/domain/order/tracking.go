package order

import (
	"crypto/rand"

	"github.com/go-faster/errors"
)

// TrackingNumberLength is the fixed length of generated tracking tokens.
const TrackingNumberLength = 16

// trackingAlphabet is a 32-character set without 0/O/1/I, so tokens read
// back unambiguously over the phone. Its size divides 256 evenly, keeping
// the byte-to-character mapping unbiased.
const trackingAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewTrackingNumber generates a random fixed-length tracking token. Tokens
// are not derived from the database sequence and are not guessable from
// previous tokens. Global uniqueness is enforced by the store's unique
// constraint; callers retry with a fresh token on conflict.
func NewTrackingNumber() (string, error) {
	buf := make([]byte, TrackingNumberLength)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "read random bytes")
	}
	for i, b := range buf {
		buf[i] = trackingAlphabet[int(b)%len(trackingAlphabet)]
	}
	return string(buf), nil
}
