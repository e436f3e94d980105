// Package wallet holds the custody strategies behind a single Manager interface.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"

	"github.com/vencura/vencura/internal/chain"
	"github.com/vencura/vencura/internal/eth"
	apperrors "github.com/vencura/vencura/pkg/errors"
)

// Manager kinds
const (
	KindLocal  = "local"
	KindRemote = "remote"
)

// CreatedAccount is the custody side of a new account. The caller persists it.
type CreatedAccount struct {
	Address   string
	CreatedAt int64
	WalletID  string

	// EncryptedPrivateKey is only set by the local manager
	EncryptedPrivateKey string
}

// TransactionInput is a native transfer; Amount is a decimal string in whole units
type TransactionInput struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type SignTransactionParams struct {
	Transaction TransactionInput
	Chain       string
	Address     string
	Password    string
}

// Manager creates accounts and signs on behalf of their owners.
// Every operation on an existing account checks that userID owns it.
type Manager interface {
	Kind() string
	CreateAccount(ctx context.Context, userID, password string) (*CreatedAccount, error)
	UpdateAccountPassword(ctx context.Context, userID, address, existingPassword, newPassword string) error
	SignMessage(ctx context.Context, userID, address, message, password string) (string, error)
	// SignTransaction returns the transaction hash (local) or signature (remote)
	SignTransaction(ctx context.Context, userID string, params SignTransactionParams) (string, error)
}

// TransactionSigner signs and broadcasts a transfer with a raw key
type TransactionSigner interface {
	SignAndSend(ctx context.Context, privateKey *ecdsa.PrivateKey, req eth.TransferRequest, chainName string) (string, error)
}

// transferError converts signer and chain errors to client-facing errors
func transferError(err error, chainName string) error {
	switch {
	case errors.Is(err, chain.ErrUnsupportedChain):
		return apperrors.UnsupportedChain(chainName)
	case errors.Is(err, eth.ErrInvalidAmount), errors.Is(err, eth.ErrInvalidRecipient):
		return apperrors.BadRequest(err.Error())
	case errors.Is(err, eth.ErrTransactionFailed):
		return apperrors.ErrTransactionFailed
	default:
		return err
	}
}
