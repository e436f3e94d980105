package middleware

import (
	"net/http"
	"strings"
)

const redactedValue = "[REDACTED]"

var redactHeaderKeys = []string{
	"Authorization",
	"Cookie",
	"Set-Cookie",
	"X-API-Key",
}

func isHeaderInList(key string, keys []string) bool {
	for _, k := range keys {
		if strings.EqualFold(k, strings.TrimSpace(key)) {
			return true
		}
	}
	return false
}

func redactHeaderValue(key, value string) string {
	if strings.EqualFold(key, "Authorization") {
		scheme, _, ok := strings.Cut(strings.TrimSpace(value), " ")
		if ok && scheme != "" {
			return scheme + " " + redactedValue
		}
	}
	return redactedValue
}

// RedactHeaders returns a copy of h with credentials replaced by a constant,
// for debug logging.
func RedactHeaders(h http.Header) http.Header {
	if h == nil {
		return nil
	}

	out := make(http.Header, len(h))
	for key, values := range h {
		copied := make([]string, len(values))
		for i, v := range values {
			if isHeaderInList(key, redactHeaderKeys) {
				v = redactHeaderValue(key, v)
			}
			copied[i] = v
		}
		out[key] = copied
	}
	return out
}

// StripCredentialHeaders removes the bearer token once it has been verified
func StripCredentialHeaders(h http.Header) {
	if h == nil {
		return
	}
	h.Del("Authorization")
}
