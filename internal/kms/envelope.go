package kms

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

const envelopePrefix = "kms:"

// Envelope optionally wraps an encrypted key blob before it reaches storage.
// With no provider it is the identity, so the stored value keeps the plain
// KeyCipher format.
type Envelope struct {
	provider Provider
}

// NewEnvelope creates an envelope around provider; provider may be nil
func NewEnvelope(provider Provider) *Envelope {
	return &Envelope{provider: provider}
}

// Enabled reports whether values are wrapped
func (e *Envelope) Enabled() bool {
	return e != nil && e.provider != nil
}

// Seal wraps blob as kms:<provider>:<base64 ciphertext>
func (e *Envelope) Seal(ctx context.Context, blob string) (string, error) {
	if !e.Enabled() {
		return blob, nil
	}

	ct, err := e.provider.Encrypt(ctx, []byte(blob))
	if err != nil {
		return "", fmt.Errorf("failed to seal key blob: %w", err)
	}
	return envelopePrefix + e.provider.Provider() + ":" + base64.StdEncoding.EncodeToString(ct), nil
}

// Open unwraps a stored value. Values without the envelope prefix are
// returned unchanged.
func (e *Envelope) Open(ctx context.Context, stored string) (string, error) {
	if !strings.HasPrefix(stored, envelopePrefix) {
		return stored, nil
	}

	rest := strings.TrimPrefix(stored, envelopePrefix)
	name, payload, ok := strings.Cut(rest, ":")
	if !ok {
		return "", fmt.Errorf("malformed key envelope")
	}
	if !e.Enabled() {
		return "", fmt.Errorf("key blob is wrapped by %q but no KMS provider is configured", name)
	}
	if name != e.provider.Provider() {
		return "", fmt.Errorf("key blob is wrapped by %q, configured provider is %q", name, e.provider.Provider())
	}

	ct, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("malformed key envelope: %w", err)
	}

	blob, err := e.provider.Decrypt(ctx, ct)
	if err != nil {
		return "", fmt.Errorf("failed to open key blob: %w", err)
	}
	return string(blob), nil
}
