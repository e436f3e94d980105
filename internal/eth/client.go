package eth

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/vencura/vencura/internal/chain"
)

// Backend is the subset of the JSON-RPC client used for transfers and balances.
// *ethclient.Client satisfies it.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// BackendSource resolves the RPC backend for a chain
type BackendSource interface {
	Backend(ctx context.Context, c chain.Chain) (Backend, error)
}

// Clients dials one RPC client per chain on first use and keeps it for the
// process lifetime
type Clients struct {
	mu      sync.Mutex
	rpcURLs map[string]string
	clients map[string]*ethclient.Client
}

// NewClients creates a pool. rpcURLs overrides the registry default URL per chain name.
func NewClients(rpcURLs map[string]string) *Clients {
	urls := make(map[string]string, len(rpcURLs))
	for name, url := range rpcURLs {
		if url != "" {
			urls[name] = url
		}
	}
	return &Clients{
		rpcURLs: urls,
		clients: make(map[string]*ethclient.Client),
	}
}

// Backend returns the client for c, dialing it if needed
func (p *Clients) Backend(ctx context.Context, c chain.Chain) (Backend, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.clients[c.Name]; ok {
		return client, nil
	}

	url := p.rpcURLs[c.Name]
	if url == "" {
		url = c.DefaultRPCURL
	}
	if url == "" {
		return nil, fmt.Errorf("RPC URL is required for chain %s", c.Name)
	}

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}
	p.clients[c.Name] = client
	return client, nil
}

// Close closes every dialed client
func (p *Clients) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name, client := range p.clients {
		client.Close()
		delete(p.clients, name)
	}
}
