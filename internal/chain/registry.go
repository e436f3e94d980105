package chain

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnsupportedChain is returned for a chain name outside the registry
var ErrUnsupportedChain = errors.New("unsupported chain")

// Chain describes an EVM network the service can sign for
type Chain struct {
	Name string
	ID   int64

	// PriorityFee marks chains priced with EIP-1559 (max fee + tip)
	PriorityFee bool

	DefaultRPCURL string
	NativeSymbol  string
}

const (
	Sepolia       = "sepolia"
	AvalancheFuji = "avalanche_fuji"
)

var registry = map[string]Chain{
	Sepolia: {
		Name:          Sepolia,
		ID:            11155111,
		PriorityFee:   true,
		DefaultRPCURL: "https://ethereum-sepolia-rpc.publicnode.com",
		NativeSymbol:  "ETH",
	},
	AvalancheFuji: {
		Name:          AvalancheFuji,
		ID:            43113,
		PriorityFee:   true,
		DefaultRPCURL: "https://api.avax-test.network/ext/bc/C/rpc",
		NativeSymbol:  "AVAX",
	},
}

// Lookup returns the parameters for name
func Lookup(name string) (Chain, error) {
	c, ok := registry[name]
	if !ok {
		return Chain{}, fmt.Errorf("%w: %s", ErrUnsupportedChain, name)
	}
	return c, nil
}

// IsSupported reports whether name is in the registry
func IsSupported(name string) bool {
	_, ok := registry[name]
	return ok
}

// Names returns the supported chain names in sorted order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
