package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vencura/vencura/pkg/errors"
)

type stubAuthenticator struct {
	tokens map[string]string
	seen   []string
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	s.seen = append(s.seen, token)
	if user, ok := s.tokens[token]; ok {
		return user, nil
	}
	return "", errors.New("jwks fetch failed: connection refused")
}

func TestAuth(t *testing.T) {
	authn := &stubAuthenticator{tokens: map[string]string{"good.jwt.token": "user-1"}}

	var gotUser, gotHeader string
	handler := Auth(authn)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = GetUserID(r.Context())
		gotHeader = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantToken  string
	}{
		{"bearer", "Bearer good.jwt.token", http.StatusNoContent, "good.jwt.token"},
		{"lowercase scheme", "bearer good.jwt.token", http.StatusNoContent, "good.jwt.token"},
		{"bare token", "good.jwt.token", http.StatusNoContent, "good.jwt.token"},
		{"missing", "", http.StatusUnauthorized, ""},
		{"invalid", "Bearer bad.jwt.token", http.StatusUnauthorized, "bad.jwt.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser, gotHeader = "", ""
			req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantToken, authn.seen[len(authn.seen)-1])

			if tt.wantStatus == http.StatusNoContent {
				assert.Equal(t, "user-1", gotUser)
				assert.Empty(t, gotHeader, "token is stripped after verification")
				return
			}

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, apperrors.ErrCodeUnauthorized, body.Code)
			assert.NotContains(t, rec.Body.String(), "jwks")
		})
	}
}

func TestGetUserID_Empty(t *testing.T) {
	assert.Empty(t, GetUserID(context.Background()))
}
