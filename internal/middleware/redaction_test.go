package middleware

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactHeaders(t *testing.T) {
	t.Run("redacts sensitive headers and preserves others", func(t *testing.T) {
		h := make(http.Header)
		h.Set("Authorization", "Bearer abc.def.ghi")
		h.Set("Cookie", "session=1")
		h.Set("Content-Type", "application/json")

		redacted := RedactHeaders(h)

		assert.Equal(t, "Bearer [REDACTED]", redacted.Get("Authorization"))
		assert.Equal(t, "[REDACTED]", redacted.Get("Cookie"))
		assert.Equal(t, "application/json", redacted.Get("Content-Type"))

		// Original must be unchanged
		assert.Equal(t, "Bearer abc.def.ghi", h.Get("Authorization"))
	})

	t.Run("handles bare tokens", func(t *testing.T) {
		h := make(http.Header)
		h.Set("Authorization", "abc.def.ghi")

		redacted := RedactHeaders(h)
		assert.Equal(t, "[REDACTED]", redacted.Get("Authorization"))
	})

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, RedactHeaders(nil))
	})
}

func TestStripCredentialHeaders(t *testing.T) {
	h := make(http.Header)
	h.Set("Authorization", "Bearer abc")
	h.Set("Content-Type", "application/json")

	StripCredentialHeaders(h)

	assert.Empty(t, h.Get("Authorization"))
	assert.Equal(t, "application/json", h.Get("Content-Type"))
}
