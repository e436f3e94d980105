// Package auth verifies bearer tokens issued by the identity provider
// against its published JSON Web Key Set.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/vencura/vencura/internal/logger"
	"github.com/vencura/vencura/internal/metrics"
)

// ErrInvalidToken is returned for any token that fails parsing or verification
var ErrInvalidToken = errors.New("invalid token")

// AllowedAlgorithms are the only signature schemes accepted.
// Symmetric and "none" tokens are rejected before any key lookup.
var AllowedAlgorithms = []string{"RS256", "ES256"}

// DecodedToken holds the claims used for authentication. It is never persisted.
type DecodedToken struct {
	Subject       string
	EnvironmentID string
	Email         string
	KeyID         string
	ExpiresAt     time.Time
}

// Claims is the provider's token payload
type Claims struct {
	jwt.RegisteredClaims
	EnvironmentID string `json:"environment_id"`
	Email         string `json:"email,omitempty"`
}

// JWKSURL returns the tenant's key set endpoint
func JWKSURL(providerURL, environmentID string) string {
	return strings.TrimRight(providerURL, "/") + "/api/v0/sdk/" + url.PathEscape(environmentID) + "/.well-known/jwks"
}

// KeyCache maps key ids to verification keys. Entries are never evicted;
// a rotated-out key stays trusted until the process restarts.
type KeyCache struct {
	mu   sync.RWMutex
	keys map[string]interface{}
}

func NewKeyCache() *KeyCache {
	return &KeyCache{keys: make(map[string]interface{})}
}

func (c *KeyCache) Get(kid string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok := c.keys[kid]
	return key, ok
}

// Put stores key for kid; concurrent first lookups may both write, last write wins
func (c *KeyCache) Put(kid string, key interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[kid] = key
}

func (c *KeyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

// processKeys is shared by every Verifier that does not supply its own cache
var processKeys = NewKeyCache()

// Verifier decodes and verifies bearer tokens
type Verifier struct {
	jwksURL    string
	httpClient *http.Client
	cache      *KeyCache
	metrics    *metrics.Metrics
}

type VerifierOption func(*Verifier)

func WithHTTPClient(c *http.Client) VerifierOption {
	return func(v *Verifier) { v.httpClient = c }
}

func WithKeyCache(c *KeyCache) VerifierOption {
	return func(v *Verifier) { v.cache = c }
}

func WithMetrics(m *metrics.Metrics) VerifierOption {
	return func(v *Verifier) { v.metrics = m }
}

// NewVerifier creates a Verifier for the key set at jwksURL
func NewVerifier(jwksURL string, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		jwksURL:    jwksURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      processKeys,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Decode parses the token without checking its signature
func (v *Verifier) Decode(tokenString string) (*DecodedToken, error) {
	claims := &Claims{}
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return decoded(token, claims), nil
}

// Verify checks the signature against the key set and returns the claims
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*DecodedToken, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("missing kid in token header")
		}
		return v.key(ctx, kid)
	}, jwt.WithValidMethods(AllowedAlgorithms))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return decoded(token, claims), nil
}

// key resolves kid from the cache, fetching the key set on a miss
func (v *Verifier) key(ctx context.Context, kid string) (interface{}, error) {
	if key, ok := v.cache.Get(kid); ok {
		return key, nil
	}

	set, err := jwk.Fetch(ctx, v.jwksURL, jwk.WithHTTPClient(v.httpClient))
	v.metrics.RecordJWKSFetch(err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	logger.Debug(ctx, "fetched JWKS", "url", v.jwksURL, "keys", set.Len())

	jwkKey, ok := set.LookupKeyID(kid)
	if !ok {
		return nil, fmt.Errorf("key %s not found in JWKS", kid)
	}

	var raw interface{}
	if err := jwkKey.Raw(&raw); err != nil {
		return nil, fmt.Errorf("failed to convert key %s: %w", kid, err)
	}

	v.cache.Put(kid, raw)
	return raw, nil
}

func decoded(token *jwt.Token, claims *Claims) *DecodedToken {
	d := &DecodedToken{
		Subject:       claims.Subject,
		EnvironmentID: claims.EnvironmentID,
		Email:         claims.Email,
	}
	if kid, ok := token.Header["kid"].(string); ok {
		d.KeyID = kid
	}
	if claims.ExpiresAt != nil {
		d.ExpiresAt = claims.ExpiresAt.Time
	}
	return d
}
