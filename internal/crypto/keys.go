package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// GenerateKey generates a new secp256k1 private key
func GenerateKey() (*ecdsa.PrivateKey, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	return privateKey, nil
}

// Address derives the account address from a private key
func Address(privateKey *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(privateKey.PublicKey)
}

// NormalizeAddress returns the lowercase 0x-prefixed form used as the account key
func NormalizeAddress(address string) string {
	return strings.ToLower(address)
}

// AddressString returns the normalized address for a private key
func AddressString(privateKey *ecdsa.PrivateKey) string {
	return NormalizeAddress(Address(privateKey).Hex())
}

// PrivateKeyToHex encodes a private key as 0x-prefixed lowercase hex.
// This is the plaintext sealed by the KeyCipher under local custody.
func PrivateKeyToHex(privateKey *ecdsa.PrivateKey) []byte {
	raw := crypto.FromECDSA(privateKey)
	defer Zero(raw)
	return []byte(hexutil.Encode(raw))
}

// HexToPrivateKey parses the plaintext produced by PrivateKeyToHex.
// The 0x prefix is optional.
func HexToPrivateKey(plaintext []byte) (*ecdsa.PrivateKey, error) {
	s := strings.TrimPrefix(strings.TrimSpace(string(plaintext)), "0x")
	key, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// Zero overwrites b in place
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ZeroKey clears the scalar of a private key once it is no longer needed
func ZeroKey(key *ecdsa.PrivateKey) {
	if key == nil || key.D == nil {
		return
	}
	key.D.SetInt64(0)
}
