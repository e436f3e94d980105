package wallet

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/vencura/vencura/internal/crypto"
	"github.com/vencura/vencura/internal/custody"
	"github.com/vencura/vencura/internal/kms"
	"github.com/vencura/vencura/internal/logger"
	"github.com/vencura/vencura/internal/storage"
)

// Options configures the process-wide Manager
type Options struct {
	Accounts storage.AccountRepository

	// APIKey selects remote custody when set
	APIKey           string
	Custody          custody.Client
	TxSigningEnabled bool

	Cipher   *crypto.KeyCipher
	Envelope *kms.Envelope
	Signer   TransactionSigner
}

// InitFunc builds a Manager
type InitFunc func(ctx context.Context) (Manager, error)

// Provider lazily builds one Manager and hands the same instance to every caller.
// Concurrent first callers share a single initialization; a failed
// initialization is not cached.
type Provider struct {
	init  InitFunc
	group singleflight.Group

	mu      sync.RWMutex
	manager Manager
}

// NewProvider chooses remote custody when an API key is configured, local otherwise
func NewProvider(opts Options) *Provider {
	if opts.APIKey != "" {
		return NewProviderFunc(func(ctx context.Context) (Manager, error) {
			if opts.Custody == nil {
				return nil, fmt.Errorf("custody client is required for remote custody")
			}
			if err := opts.Custody.Authenticate(ctx, opts.APIKey); err != nil {
				return nil, fmt.Errorf("failed to authenticate with custody service: %w", err)
			}
			logger.Info(ctx, "remote custody connection initialized")
			return NewRemoteManager(opts.Accounts, opts.Custody, opts.TxSigningEnabled), nil
		})
	}

	return NewProviderFunc(func(ctx context.Context) (Manager, error) {
		cipher := opts.Cipher
		if cipher == nil {
			cipher = crypto.NewKeyCipher()
		}
		logger.Info(ctx, "local custody initialized", "kms_envelope", opts.Envelope.Enabled())
		return NewLocalManager(opts.Accounts, cipher, opts.Envelope, opts.Signer), nil
	})
}

// NewProviderFunc creates a Provider around an arbitrary initializer
func NewProviderFunc(init InitFunc) *Provider {
	return &Provider{init: init}
}

// Get returns the shared Manager, initializing it on first use
func (p *Provider) Get(ctx context.Context) (Manager, error) {
	p.mu.RLock()
	m := p.manager
	p.mu.RUnlock()
	if m != nil {
		return m, nil
	}

	v, err, _ := p.group.Do("manager", func() (interface{}, error) {
		p.mu.RLock()
		m := p.manager
		p.mu.RUnlock()
		if m != nil {
			return m, nil
		}

		// One caller's cancellation must not fail the others sharing this call
		m, err := p.init(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.manager = m
		p.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Manager), nil
}
