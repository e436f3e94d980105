package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vencura/vencura/internal/auth/authtest"
	"github.com/vencura/vencura/internal/metrics"
	apperrors "github.com/vencura/vencura/pkg/errors"
)

func TestAuthenticator_Authenticate(t *testing.T) {
	srv := authtest.NewServer(testEnvironment)
	defer srv.Close()
	_, err := srv.AddRSAKey("rsa-1")
	require.NoError(t, err)

	tests := []struct {
		name       string
		token      func() (string, error)
		wantUser   string
		wantReason string
	}{
		{
			name:     "valid token",
			token:    func() (string, error) { return srv.ValidToken("rsa-1", "user-1") },
			wantUser: "user-1",
		},
		{
			name:       "empty token",
			token:      func() (string, error) { return "", nil },
			wantReason: ReasonMissingToken,
		},
		{
			name:       "garbage",
			token:      func() (string, error) { return "abc.def", nil },
			wantReason: ReasonMalformed,
		},
		{
			name: "expired",
			token: func() (string, error) {
				return srv.Token("rsa-1", srv.Claims("user-1", jwt.MapClaims{"exp": time.Now().Add(-time.Second).Unix()}))
			},
			wantReason: ReasonExpired,
		},
		{
			name: "no exp",
			token: func() (string, error) {
				return srv.Token("rsa-1", srv.Claims("user-1", jwt.MapClaims{"exp": nil}))
			},
			wantReason: ReasonExpired,
		},
		{
			name: "other environment",
			token: func() (string, error) {
				return srv.Token("rsa-1", srv.Claims("user-1", jwt.MapClaims{"environment_id": "env-other"}))
			},
			wantReason: ReasonWrongEnvironment,
		},
		{
			name: "HS256 with matching claims",
			token: func() (string, error) {
				return srv.HS256Token("rsa-1", []byte("secret"), srv.Claims("user-1", nil))
			},
			wantReason: ReasonInvalidSignature,
		},
		{
			name: "empty subject",
			token: func() (string, error) {
				return srv.Token("rsa-1", srv.Claims("", nil))
			},
			wantReason: ReasonMissingSubject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			m := metrics.New(reg)
			a := NewAuthenticator(newTestVerifier(t, srv), testEnvironment, m)

			token, err := tt.token()
			require.NoError(t, err)

			user, err := a.Authenticate(context.Background(), token)
			if tt.wantReason == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantUser, user)
				return
			}

			assert.Empty(t, user)
			assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
			assert.Equal(t, float64(1), testutil.ToFloat64(m.AuthFailures.WithLabelValues(tt.wantReason)))
		})
	}
}

type stubVerifier struct {
	decoded     *DecodedToken
	verified    *DecodedToken
	verifyErr   error
	verifyCalls int
}

func (s *stubVerifier) Decode(string) (*DecodedToken, error) {
	return s.decoded, nil
}

func (s *stubVerifier) Verify(context.Context, string) (*DecodedToken, error) {
	s.verifyCalls++
	return s.verified, s.verifyErr
}

func TestAuthenticator_CheckOrder(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("expiry is checked before the signature", func(t *testing.T) {
		v := &stubVerifier{decoded: &DecodedToken{Subject: "u", EnvironmentID: testEnvironment, ExpiresAt: now}}
		a := NewAuthenticator(v, testEnvironment, nil)
		a.now = func() time.Time { return now }

		_, err := a.Authenticate(context.Background(), "token")
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		assert.Zero(t, v.verifyCalls, "exp equal to now is already expired")
	})

	t.Run("environment is checked before the signature", func(t *testing.T) {
		v := &stubVerifier{decoded: &DecodedToken{Subject: "u", EnvironmentID: "x", ExpiresAt: now.Add(time.Minute)}}
		a := NewAuthenticator(v, testEnvironment, nil)
		a.now = func() time.Time { return now }

		_, err := a.Authenticate(context.Background(), "token")
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		assert.Zero(t, v.verifyCalls)
	})

	t.Run("verification errors are not leaked", func(t *testing.T) {
		v := &stubVerifier{
			decoded:   &DecodedToken{Subject: "u", EnvironmentID: testEnvironment, ExpiresAt: now.Add(time.Minute)},
			verifyErr: errors.New("failed to fetch JWKS: dial tcp"),
		}
		a := NewAuthenticator(v, testEnvironment, nil)
		a.now = func() time.Time { return now }

		_, err := a.Authenticate(context.Background(), "token")
		assert.Equal(t, apperrors.ErrUnauthorized, err)
		assert.Equal(t, 1, v.verifyCalls)
	})

	t.Run("subject comes from the verified claims", func(t *testing.T) {
		v := &stubVerifier{
			decoded:  &DecodedToken{Subject: "decoded", EnvironmentID: testEnvironment, ExpiresAt: now.Add(time.Minute)},
			verified: &DecodedToken{Subject: "verified"},
		}
		a := NewAuthenticator(v, testEnvironment, nil)
		a.now = func() time.Time { return now }

		user, err := a.Authenticate(context.Background(), "token")
		require.NoError(t, err)
		assert.Equal(t, "verified", user)
	})
}
