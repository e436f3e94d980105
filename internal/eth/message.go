package eth

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// SignMessage produces an EIP-191 personal_sign signature as 0x-prefixed hex
func SignMessage(privateKey *ecdsa.PrivateKey, message string) (string, error) {
	hash := accounts.TextHash([]byte(message))

	signature, err := ethcrypto.Sign(hash, privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}

	// Ethereum wallets expect v in {27, 28}
	signature[64] += 27

	return hexutil.Encode(signature), nil
}

// RecoverMessageSigner returns the address that produced signature over message
func RecoverMessageSigner(message, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(sig) != 65 {
		return "", fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pub, err := ethcrypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", fmt.Errorf("failed to recover signer: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub).Hex(), nil
}
