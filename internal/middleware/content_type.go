package middleware

import (
	"fmt"
	"mime"
	"net/http"

	apperrors "github.com/vencura/vencura/pkg/errors"
)

// RequireJSON rejects requests whose Content-Type is not application/json.
// Parameters such as charset are allowed.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			WriteError(w, r, apperrors.BadRequest("Content-Type not provided"))
			return
		}

		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "application/json" {
			WriteError(w, r, apperrors.BadRequest(fmt.Sprintf("Content-Type %s not supported", contentType)))
			return
		}

		next.ServeHTTP(w, r)
	})
}
