package otp

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestGenerateDigitsProperty: the code is always exactly the configured
// number of digits, zero-padded, and numeric.
func TestGenerateDigitsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		digits := rapid.IntRange(4, 8).Draw(t, "digits")
		s := &Store{digits: digits}

		code, err := s.generate()
		require.NoError(t, err)
		assert.Len(t, code, digits)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9', "non-digit %q in code %q", c, code)
		}
	})
}

func TestKeyIsolatesChannels(t *testing.T) {
	id := uuid.New()
	assert.NotEqual(t, key(ChannelEmail, id), key(ChannelPhone, id))
}
