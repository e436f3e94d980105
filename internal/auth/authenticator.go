package auth

import (
	"context"
	"time"

	"github.com/vencura/vencura/internal/logger"
	"github.com/vencura/vencura/internal/metrics"
	apperrors "github.com/vencura/vencura/pkg/errors"
)

// TokenVerifier decodes and verifies bearer tokens
type TokenVerifier interface {
	Decode(token string) (*DecodedToken, error)
	Verify(ctx context.Context, token string) (*DecodedToken, error)
}

// Rejection reasons, used for logs and metrics only
const (
	ReasonMissingToken     = "missing_token"
	ReasonMalformed        = "malformed"
	ReasonExpired          = "expired"
	ReasonWrongEnvironment = "wrong_environment"
	ReasonInvalidSignature = "invalid_signature"
	ReasonMissingSubject   = "missing_subject"
)

// Authenticator resolves a bearer token to a user id for one tenant
type Authenticator struct {
	verifier      TokenVerifier
	environmentID string
	metrics       *metrics.Metrics
	now           func() time.Time
}

func NewAuthenticator(verifier TokenVerifier, environmentID string, m *metrics.Metrics) *Authenticator {
	return &Authenticator{
		verifier:      verifier,
		environmentID: environmentID,
		metrics:       m,
		now:           time.Now,
	}
}

// Authenticate returns the token subject. Every rejection is the same
// Unauthorized error so callers cannot tell which check failed.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", a.reject(ctx, ReasonMissingToken, nil)
	}

	// Cheap checks first; the signature check may hit the network
	claims, err := a.verifier.Decode(token)
	if err != nil {
		return "", a.reject(ctx, ReasonMalformed, err)
	}
	if claims.ExpiresAt.IsZero() || !claims.ExpiresAt.After(a.now()) {
		return "", a.reject(ctx, ReasonExpired, nil)
	}
	if claims.EnvironmentID != a.environmentID {
		return "", a.reject(ctx, ReasonWrongEnvironment, nil)
	}

	verified, err := a.verifier.Verify(ctx, token)
	if err != nil {
		return "", a.reject(ctx, ReasonInvalidSignature, err)
	}
	if verified.Subject == "" {
		return "", a.reject(ctx, ReasonMissingSubject, nil)
	}

	return verified.Subject, nil
}

func (a *Authenticator) reject(ctx context.Context, reason string, err error) error {
	a.metrics.RecordAuthFailure(reason)
	if err != nil {
		logger.Debug(ctx, "token rejected", "reason", reason, "error", err)
	} else {
		logger.Debug(ctx, "token rejected", "reason", reason)
	}
	return apperrors.ErrUnauthorized
}
