package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/vencura/vencura/internal/chain"
	"github.com/vencura/vencura/internal/crypto"
	"github.com/vencura/vencura/internal/eth"
	"github.com/vencura/vencura/internal/kms"
	"github.com/vencura/vencura/internal/logger"
	"github.com/vencura/vencura/internal/storage"
	apperrors "github.com/vencura/vencura/pkg/errors"
	"github.com/vencura/vencura/pkg/types"
)

// LocalManager keeps password-encrypted private keys in the account store
// and signs in process
type LocalManager struct {
	accounts storage.AccountRepository
	cipher   *crypto.KeyCipher
	envelope *kms.Envelope
	signer   TransactionSigner
}

// NewLocalManager creates a LocalManager. envelope may be nil.
func NewLocalManager(accounts storage.AccountRepository, cipher *crypto.KeyCipher, envelope *kms.Envelope, signer TransactionSigner) *LocalManager {
	if envelope == nil {
		envelope = kms.NewEnvelope(nil)
	}
	return &LocalManager{
		accounts: accounts,
		cipher:   cipher,
		envelope: envelope,
		signer:   signer,
	}
}

func (m *LocalManager) Kind() string {
	return KindLocal
}

var errPasswordRequired = apperrors.BadRequest("Password is required")

func (m *LocalManager) CreateAccount(ctx context.Context, userID, password string) (*CreatedAccount, error) {
	if password == "" {
		return nil, errPasswordRequired
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	defer crypto.ZeroKey(key)

	sealed, err := m.seal(ctx, key, password)
	if err != nil {
		return nil, err
	}

	return &CreatedAccount{
		Address:             crypto.AddressString(key),
		CreatedAt:           types.NowMillis(),
		WalletID:            uuid.NewString(),
		EncryptedPrivateKey: sealed,
	}, nil
}

func (m *LocalManager) UpdateAccountPassword(ctx context.Context, userID, address, existingPassword, newPassword string) error {
	if existingPassword == "" || newPassword == "" {
		return errPasswordRequired
	}

	key, err := m.unlock(ctx, userID, address, existingPassword)
	if err != nil {
		return err
	}
	defer crypto.ZeroKey(key)

	sealed, err := m.seal(ctx, key, newPassword)
	if err != nil {
		return err
	}

	if err := m.accounts.Update(ctx, userID, address, types.AccountPatch{EncryptedPrivateKey: &sealed}); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.AccountNotFound(address)
		}
		return err
	}

	logger.Info(ctx, "account password updated", "user_id", userID, "address", address)
	return nil
}

func (m *LocalManager) SignMessage(ctx context.Context, userID, address, message, password string) (string, error) {
	if password == "" {
		return "", errPasswordRequired
	}

	key, err := m.unlock(ctx, userID, address, password)
	if err != nil {
		return "", err
	}
	defer crypto.ZeroKey(key)

	return eth.SignMessage(key, message)
}

// SignTransaction broadcasts the transfer and returns its hash
func (m *LocalManager) SignTransaction(ctx context.Context, userID string, params SignTransactionParams) (string, error) {
	if params.Password == "" {
		return "", errPasswordRequired
	}
	if !chain.IsSupported(params.Chain) {
		return "", apperrors.UnsupportedChain(params.Chain)
	}

	key, err := m.unlock(ctx, userID, params.Address, params.Password)
	if err != nil {
		return "", err
	}
	defer crypto.ZeroKey(key)

	hash, err := m.signer.SignAndSend(ctx, key, eth.TransferRequest{
		To:     params.Transaction.To,
		Amount: params.Transaction.Amount,
	}, params.Chain)
	if err != nil {
		return "", transferError(err, params.Chain)
	}
	return hash, nil
}

func (m *LocalManager) seal(ctx context.Context, key *ecdsa.PrivateKey, password string) (string, error) {
	plaintext := crypto.PrivateKeyToHex(key)
	defer crypto.Zero(plaintext)

	blob, err := m.cipher.Encrypt(plaintext, password)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt private key: %w", err)
	}
	return m.envelope.Seal(ctx, blob)
}

// unlock loads the owner's account and decrypts its key. The caller zeroes the key.
func (m *LocalManager) unlock(ctx context.Context, userID, address, password string) (*ecdsa.PrivateKey, error) {
	account, err := m.accounts.Get(ctx, userID, address)
	if err != nil {
		return nil, err
	}
	if account == nil || account.EncryptedPrivateKey == "" {
		return nil, apperrors.NewWithDetail(apperrors.ErrCodeAccountNotFound,
			"Account not found or private key not found", "address: "+address, http.StatusNotFound)
	}
	if account.UserID != userID {
		return nil, apperrors.ErrForbidden
	}

	blob, err := m.envelope.Open(ctx, account.EncryptedPrivateKey)
	if err != nil {
		return nil, err
	}

	plaintext, err := m.cipher.Decrypt(blob, password)
	if err != nil {
		if errors.Is(err, crypto.ErrInvalidPassword) || errors.Is(err, crypto.ErrMalformedBlob) {
			logger.Debug(ctx, "private key decryption failed", "address", address, "error", err)
			return nil, apperrors.ErrInvalidPassword
		}
		return nil, err
	}
	defer crypto.Zero(plaintext)

	return crypto.HexToPrivateKey(plaintext)
}

var _ Manager = (*LocalManager)(nil)
