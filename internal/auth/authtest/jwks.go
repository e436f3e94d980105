// Package authtest serves a JSON Web Key Set and mints tokens for tests
// that exercise bearer authentication.
package authtest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// Server is an identity provider stand-in. It answers
// /api/v0/sdk/{environment}/.well-known/jwks for its own environment only.
type Server struct {
	server        *httptest.Server
	environmentID string

	mu      sync.RWMutex
	rsaKeys map[string]*rsa.PrivateKey
	ecKeys  map[string]*ecdsa.PrivateKey
	fail    bool

	fetches atomic.Int64
}

// NewServer starts a key set server for environmentID
func NewServer(environmentID string) *Server {
	s := &Server{
		environmentID: environmentID,
		rsaKeys:       make(map[string]*rsa.PrivateKey),
		ecKeys:        make(map[string]*ecdsa.PrivateKey),
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handleJWKS))
	return s
}

func (s *Server) handleJWKS(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/v0/sdk/"+s.environmentID+"/.well-known/jwks" {
		http.NotFound(w, r)
		return
	}
	s.fetches.Add(1)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.fail {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "mock server failure"}`))
		return
	}

	set, err := s.buildSet()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(set)
}

func (s *Server) buildSet() (jwk.Set, error) {
	set := jwk.NewSet()
	add := func(kid string, raw interface{}, alg jwa.SignatureAlgorithm) error {
		key, err := jwk.FromRaw(raw)
		if err != nil {
			return err
		}
		if err := key.Set(jwk.KeyIDKey, kid); err != nil {
			return err
		}
		if err := key.Set(jwk.AlgorithmKey, alg); err != nil {
			return err
		}
		if err := key.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
			return err
		}
		return set.AddKey(key)
	}

	for kid, key := range s.rsaKeys {
		if err := add(kid, &key.PublicKey, jwa.RS256); err != nil {
			return nil, err
		}
	}
	for kid, key := range s.ecKeys {
		if err := add(kid, &key.PublicKey, jwa.ES256); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// AddRSAKey publishes a fresh RSA key under kid
func (s *Server) AddRSAKey(kid string) (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}
	s.mu.Lock()
	s.rsaKeys[kid] = key
	s.mu.Unlock()
	return key, nil
}

// AddECKey publishes a fresh P-256 key under kid
func (s *Server) AddECKey(kid string) (*ecdsa.PrivateKey, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate EC key: %w", err)
	}
	s.mu.Lock()
	s.ecKeys[kid] = key
	s.mu.Unlock()
	return key, nil
}

// SetShouldFail makes the key set endpoint return 500
func (s *Server) SetShouldFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

// URL is the provider base URL
func (s *Server) URL() string {
	return s.server.URL
}

func (s *Server) EnvironmentID() string {
	return s.environmentID
}

// JWKSURL is the tenant's key set endpoint
func (s *Server) JWKSURL() string {
	return strings.TrimRight(s.server.URL, "/") + "/api/v0/sdk/" + s.environmentID + "/.well-known/jwks"
}

// Fetches counts key set requests served for this environment
func (s *Server) Fetches() int64 {
	return s.fetches.Load()
}

func (s *Server) Client() *http.Client {
	return s.server.Client()
}

func (s *Server) Close() {
	s.server.Close()
}

// Claims returns a valid claim set for subject in this environment.
// Entries in extra override the defaults; a nil value removes the claim.
func (s *Server) Claims(subject string, extra jwt.MapClaims) jwt.MapClaims {
	claims := jwt.MapClaims{
		"sub":            subject,
		"environment_id": s.environmentID,
		"iat":            time.Now().Unix(),
		"exp":            time.Now().Add(time.Hour).Unix(),
	}
	for k, v := range extra {
		if v == nil {
			delete(claims, k)
			continue
		}
		claims[k] = v
	}
	return claims
}

// Token signs claims with the published key kid, RSA or EC
func (s *Server) Token(kid string, claims jwt.MapClaims) (string, error) {
	s.mu.RLock()
	rsaKey, isRSA := s.rsaKeys[kid]
	ecKey, isEC := s.ecKeys[kid]
	s.mu.RUnlock()

	switch {
	case isRSA:
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		token.Header["kid"] = kid
		return token.SignedString(rsaKey)
	case isEC:
		token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
		token.Header["kid"] = kid
		return token.SignedString(ecKey)
	default:
		return "", fmt.Errorf("key %s not found", kid)
	}
}

// ValidToken is a one hour token for subject signed with kid
func (s *Server) ValidToken(kid, subject string) (string, error) {
	return s.Token(kid, s.Claims(subject, nil))
}

// TokenWithKey signs with a key that is not published under kid
func (s *Server) TokenWithKey(kid string, key *rsa.PrivateKey, claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	return token.SignedString(key)
}

// NoneToken is an unsigned "alg: none" token
func (s *Server) NoneToken(kid string, claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	token.Header["kid"] = kid
	return token.SignedString(jwt.UnsafeAllowNoneSignatureType)
}

// HS256Token signs with an HMAC secret, the classic key confusion attempt
func (s *Server) HS256Token(kid string, secret []byte, claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = kid
	return token.SignedString(secret)
}
