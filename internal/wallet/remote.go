package wallet

import (
	"context"
	"errors"

	"github.com/vencura/vencura/internal/chain"
	"github.com/vencura/vencura/internal/crypto"
	"github.com/vencura/vencura/internal/custody"
	"github.com/vencura/vencura/internal/eth"
	"github.com/vencura/vencura/internal/logger"
	"github.com/vencura/vencura/internal/storage"
	apperrors "github.com/vencura/vencura/pkg/errors"
	"github.com/vencura/vencura/pkg/types"
)

// RemoteManager delegates key custody and signing to the threshold-signature service.
// Ownership is checked against the local account store first because the
// service only knows account addresses.
type RemoteManager struct {
	accounts         storage.AccountRepository
	client           custody.Client
	txSigningEnabled bool
}

// NewRemoteManager wraps an authenticated custody client
func NewRemoteManager(accounts storage.AccountRepository, client custody.Client, txSigningEnabled bool) *RemoteManager {
	return &RemoteManager{
		accounts:         accounts,
		client:           client,
		txSigningEnabled: txSigningEnabled,
	}
}

func (m *RemoteManager) Kind() string {
	return KindRemote
}

func (m *RemoteManager) CreateAccount(ctx context.Context, userID, password string) (*CreatedAccount, error) {
	result, err := m.client.CreateAccount(ctx, custody.CreateAccountRequest{
		Scheme:   custody.SchemeTwoOfTwo,
		Password: password,
		Backup:   true,
	})
	if err != nil {
		return nil, custodyError(ctx, err)
	}

	return &CreatedAccount{
		Address:   crypto.NormalizeAddress(result.AccountAddress),
		CreatedAt: types.NowMillis(),
		WalletID:  result.WalletID,
	}, nil
}

func (m *RemoteManager) UpdateAccountPassword(ctx context.Context, userID, address, existingPassword, newPassword string) error {
	if err := m.assertOwned(ctx, userID, address); err != nil {
		return err
	}

	err := m.client.UpdatePassword(ctx, custody.UpdatePasswordRequest{
		AccountAddress:   address,
		ExistingPassword: existingPassword,
		NewPassword:      newPassword,
		Backup:           true,
	})
	if err != nil {
		return custodyError(ctx, err)
	}
	return nil
}

func (m *RemoteManager) SignMessage(ctx context.Context, userID, address, message, password string) (string, error) {
	if err := m.assertOwned(ctx, userID, address); err != nil {
		return "", err
	}

	signature, err := m.client.SignMessage(ctx, custody.SignMessageRequest{
		AccountAddress: address,
		Message:        message,
		Password:       password,
	})
	if err != nil {
		return "", custodyError(ctx, err)
	}
	return signature, nil
}

// SignTransaction returns the signed transaction from the service. It is
// refused unless enabled, since the provider's risk policy may forbid it.
func (m *RemoteManager) SignTransaction(ctx context.Context, userID string, params SignTransactionParams) (string, error) {
	if !m.txSigningEnabled {
		return "", apperrors.Unsupported("Signing transactions is not supported.")
	}

	c, err := chain.Lookup(params.Chain)
	if err != nil {
		return "", apperrors.UnsupportedChain(params.Chain)
	}
	value, err := eth.ParseAmount(params.Transaction.Amount)
	if err != nil {
		return "", transferError(err, params.Chain)
	}

	if err := m.assertOwned(ctx, userID, params.Address); err != nil {
		return "", err
	}

	signature, err := m.client.SignTransaction(ctx, custody.SignTransactionRequest{
		SenderAddress: params.Address,
		Transaction: custody.Transaction{
			To:      params.Transaction.To,
			Value:   value.String(),
			ChainID: c.ID,
		},
		Password: params.Password,
	})
	if err != nil {
		return "", custodyError(ctx, err)
	}
	return signature, nil
}

func (m *RemoteManager) assertOwned(ctx context.Context, userID, address string) error {
	account, err := m.accounts.Get(ctx, userID, address)
	if err != nil {
		return err
	}
	if account == nil {
		return apperrors.AccountNotFound(address)
	}
	if account.UserID != userID {
		return apperrors.ErrForbidden
	}
	return nil
}

func custodyError(ctx context.Context, err error) error {
	if errors.Is(err, custody.ErrInvalidPassword) {
		return apperrors.ErrInvalidPassword
	}
	logger.Error(ctx, "custody request failed", "error", err)
	return err
}

var _ Manager = (*RemoteManager)(nil)
