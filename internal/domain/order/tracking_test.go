package order

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrackingNumber_FixedLength(t *testing.T) {
	tn, err := NewTrackingNumber()
	require.NoError(t, err)
	assert.Len(t, tn, TrackingNumberLength)
}

func TestNewTrackingNumber_Alphabet(t *testing.T) {
	tn, err := NewTrackingNumber()
	require.NoError(t, err)

	for _, r := range tn {
		assert.True(t, strings.ContainsRune(trackingAlphabet, r),
			"unexpected character %q in tracking number %q", r, tn)
	}
}

func TestNewTrackingNumber_Distinct(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for range 1000 {
		tn, err := NewTrackingNumber()
		require.NoError(t, err)

		_, dup := seen[tn]
		require.False(t, dup, "duplicate tracking number %q", tn)
		seen[tn] = struct{}{}
	}
}
