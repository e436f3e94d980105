package wallet

import (
	"context"
	"crypto/ecdsa"
	"strings"
	"sync"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vencura/vencura/internal/chain"
	"github.com/vencura/vencura/internal/crypto"
	"github.com/vencura/vencura/internal/eth"
	"github.com/vencura/vencura/internal/kms"
	"github.com/vencura/vencura/internal/storage"
	apperrors "github.com/vencura/vencura/pkg/errors"
	"github.com/vencura/vencura/pkg/types"
)

const (
	testUser     = "user-1"
	testPassword = "p@ssw0rd1"
	testTo       = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
)

type recordingSigner struct {
	mu    sync.Mutex
	from  []string
	reqs  []eth.TransferRequest
	chain []string
	err   error
}

func (s *recordingSigner) SignAndSend(ctx context.Context, key *ecdsa.PrivateKey, req eth.TransferRequest, chainName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.from = append(s.from, strings.ToLower(ethcrypto.PubkeyToAddress(key.PublicKey).Hex()))
	s.reqs = append(s.reqs, req)
	s.chain = append(s.chain, chainName)
	return "0xhash", nil
}

func newLocal(t *testing.T, envelope *kms.Envelope) (*LocalManager, *storage.MemoryStore, *recordingSigner) {
	t.Helper()
	store := storage.NewMemoryStore(types.MaxAccountsPerUser)
	signer := &recordingSigner{}
	return NewLocalManager(store, crypto.NewKeyCipher(), envelope, signer), store, signer
}

// createStored creates an account and persists it the way the account service does
func createStored(t *testing.T, m Manager, store storage.AccountRepository, userID string) *CreatedAccount {
	t.Helper()
	ctx := context.Background()

	created, err := m.CreateAccount(ctx, userID, testPassword)
	require.NoError(t, err)

	require.NoError(t, store.Create(ctx, &types.Account{
		UserID:              userID,
		Address:             created.Address,
		Alias:               "main",
		WalletID:            created.WalletID,
		EncryptedPrivateKey: created.EncryptedPrivateKey,
		CreatedAt:           created.CreatedAt,
	}))
	return created
}

func TestLocalManager_CreateAccount(t *testing.T) {
	m, _, _ := newLocal(t, nil)
	assert.Equal(t, KindLocal, m.Kind())

	created, err := m.CreateAccount(context.Background(), testUser, testPassword)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(created.Address, "0x"))
	assert.Equal(t, strings.ToLower(created.Address), created.Address)
	assert.NotEmpty(t, created.WalletID)
	assert.NotZero(t, created.CreatedAt)
	require.NotEmpty(t, created.EncryptedPrivateKey)

	// The blob holds the 0x-hex key for the returned address
	plaintext, err := crypto.NewKeyCipher().Decrypt(created.EncryptedPrivateKey, testPassword)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(plaintext), "0x"))
	key, err := crypto.HexToPrivateKey(plaintext)
	require.NoError(t, err)
	assert.Equal(t, created.Address, crypto.AddressString(key))

	t.Run("password required", func(t *testing.T) {
		_, err := m.CreateAccount(context.Background(), testUser, "")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBadRequest))
	})
}

func TestLocalManager_SignMessage(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newLocal(t, nil)
	created := createStored(t, m, store, testUser)

	sig, err := m.SignMessage(ctx, testUser, created.Address, "hello", testPassword)
	require.NoError(t, err)

	signer, err := eth.RecoverMessageSigner("hello", sig)
	require.NoError(t, err)
	assert.Equal(t, created.Address, strings.ToLower(signer))

	t.Run("wrong password", func(t *testing.T) {
		_, err := m.SignMessage(ctx, testUser, created.Address, "hello", "wrong-password")
		assert.ErrorIs(t, err, apperrors.ErrInvalidPassword)
	})

	t.Run("other user", func(t *testing.T) {
		_, err := m.SignMessage(ctx, "user-2", created.Address, "hello", testPassword)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAccountNotFound))
	})

	t.Run("unknown address", func(t *testing.T) {
		_, err := m.SignMessage(ctx, testUser, "0x0000000000000000000000000000000000000001", "hello", testPassword)
		appErr, ok := apperrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, 404, appErr.StatusCode)
	})

	t.Run("password required", func(t *testing.T) {
		_, err := m.SignMessage(ctx, testUser, created.Address, "hello", "")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBadRequest))
	})

	t.Run("corrupted blob reads as invalid password", func(t *testing.T) {
		bad := "not base64!"
		require.NoError(t, store.Update(ctx, testUser, created.Address, types.AccountPatch{EncryptedPrivateKey: &bad}))
		_, err := m.SignMessage(ctx, testUser, created.Address, "hello", testPassword)
		assert.ErrorIs(t, err, apperrors.ErrInvalidPassword)
	})
}

func TestLocalManager_UpdateAccountPassword(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newLocal(t, nil)
	created := createStored(t, m, store, testUser)

	err := m.UpdateAccountPassword(ctx, testUser, created.Address, "wrong-password", "n3wpassword")
	assert.ErrorIs(t, err, apperrors.ErrInvalidPassword)

	require.NoError(t, m.UpdateAccountPassword(ctx, testUser, created.Address, testPassword, "n3wpassword"))

	_, err = m.SignMessage(ctx, testUser, created.Address, "hello", testPassword)
	assert.ErrorIs(t, err, apperrors.ErrInvalidPassword)

	sig, err := m.SignMessage(ctx, testUser, created.Address, "hello", "n3wpassword")
	require.NoError(t, err)
	signer, err := eth.RecoverMessageSigner("hello", sig)
	require.NoError(t, err)
	assert.Equal(t, created.Address, strings.ToLower(signer), "the key itself is unchanged")
}

func TestLocalManager_SignTransaction(t *testing.T) {
	ctx := context.Background()
	m, store, signer := newLocal(t, nil)
	created := createStored(t, m, store, testUser)

	params := SignTransactionParams{
		Transaction: TransactionInput{To: testTo, Amount: "0.01"},
		Chain:       chain.Sepolia,
		Address:     created.Address,
		Password:    testPassword,
	}

	hash, err := m.SignTransaction(ctx, testUser, params)
	require.NoError(t, err)
	assert.Equal(t, "0xhash", hash)
	require.Len(t, signer.from, 1)
	assert.Equal(t, created.Address, signer.from[0])
	assert.Equal(t, eth.TransferRequest{To: testTo, Amount: "0.01"}, signer.reqs[0])
	assert.Equal(t, chain.Sepolia, signer.chain[0])

	t.Run("unsupported chain", func(t *testing.T) {
		p := params
		p.Chain = "mainnet"
		_, err := m.SignTransaction(ctx, testUser, p)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeChainNotSupported))
	})

	t.Run("wrong password", func(t *testing.T) {
		p := params
		p.Password = "wrong-password"
		_, err := m.SignTransaction(ctx, testUser, p)
		assert.ErrorIs(t, err, apperrors.ErrInvalidPassword)
	})

	t.Run("broadcast failure is generic", func(t *testing.T) {
		signer.err = eth.ErrTransactionFailed
		defer func() { signer.err = nil }()

		_, err := m.SignTransaction(ctx, testUser, params)
		assert.ErrorIs(t, err, apperrors.ErrTransactionFailed)
	})

	t.Run("invalid amount", func(t *testing.T) {
		signer.err = eth.ErrInvalidAmount
		defer func() { signer.err = nil }()

		_, err := m.SignTransaction(ctx, testUser, params)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBadRequest))
	})
}

func TestLocalManager_WithEnvelope(t *testing.T) {
	ctx := context.Background()
	provider, err := kms.NewLocalProvider(strings.Repeat("42", 32))
	require.NoError(t, err)

	m, store, _ := newLocal(t, kms.NewEnvelope(provider))
	created := createStored(t, m, store, testUser)
	assert.True(t, strings.HasPrefix(created.EncryptedPrivateKey, "kms:local:"))

	_, err = m.SignMessage(ctx, testUser, created.Address, "hello", testPassword)
	require.NoError(t, err)

	require.NoError(t, m.UpdateAccountPassword(ctx, testUser, created.Address, testPassword, "n3wpassword"))
	account, err := store.Get(ctx, testUser, created.Address)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(account.EncryptedPrivateKey, "kms:local:"))

	_, err = m.SignMessage(ctx, testUser, created.Address, "hello", "n3wpassword")
	require.NoError(t, err)
}
