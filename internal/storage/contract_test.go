package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vencura/vencura/pkg/types"
)

// Contract tests shared by the memory and Postgres backends. Each test uses
// fresh user ids so the backends need no cleanup between runs.

func newUserID() string {
	return "user-" + uuid.NewString()
}

func testAddress(i int) string {
	return fmt.Sprintf("0x%040x", i+1)
}

func seedAccounts(t *testing.T, repo AccountRepository, userID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := repo.Create(context.Background(), &types.Account{
			UserID:   userID,
			Address:  testAddress(i),
			Alias:    fmt.Sprintf("acct%d", i),
			WalletID: uuid.NewString(),
		})
		require.NoError(t, err)
	}
}

func testAccountCRUD(t *testing.T, repo AccountRepository) {
	ctx := context.Background()
	userID := newUserID()

	account := &types.Account{
		UserID:              userID,
		Address:             testAddress(0),
		Alias:               "savings",
		WalletID:            "wallet-1",
		EncryptedPrivateKey: "blob",
	}
	require.NoError(t, repo.Create(ctx, account))
	assert.NotZero(t, account.CreatedAt)
	assert.Equal(t, account.CreatedAt, account.UpdatedAt)

	got, err := repo.Get(ctx, userID, testAddress(0))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "savings", got.Alias)
	assert.Equal(t, "wallet-1", got.WalletID)
	assert.Equal(t, "blob", got.EncryptedPrivateKey)

	missing, err := repo.Get(ctx, userID, testAddress(99))
	require.NoError(t, err)
	assert.Nil(t, missing)

	other, err := repo.Get(ctx, newUserID(), testAddress(0))
	require.NoError(t, err)
	assert.Nil(t, other, "accounts are scoped by owner")

	t.Run("duplicate address", func(t *testing.T) {
		err := repo.Create(ctx, &types.Account{UserID: userID, Address: testAddress(0), Alias: "dupe"})
		assert.ErrorIs(t, err, ErrAccountExists)
	})

	t.Run("update stamps updatedAt", func(t *testing.T) {
		alias := "checking"
		require.NoError(t, repo.Update(ctx, userID, testAddress(0), types.AccountPatch{Alias: &alias}))

		got, err := repo.Get(ctx, userID, testAddress(0))
		require.NoError(t, err)
		assert.Equal(t, "checking", got.Alias)
		assert.Equal(t, "blob", got.EncryptedPrivateKey)
		assert.GreaterOrEqual(t, got.UpdatedAt, account.UpdatedAt)

		blob := "new-blob"
		require.NoError(t, repo.Update(ctx, userID, testAddress(0), types.AccountPatch{EncryptedPrivateKey: &blob}))
		got, err = repo.Get(ctx, userID, testAddress(0))
		require.NoError(t, err)
		assert.Equal(t, "checking", got.Alias)
		assert.Equal(t, "new-blob", got.EncryptedPrivateKey)
	})

	t.Run("update missing", func(t *testing.T) {
		alias := "nope"
		err := repo.Update(ctx, userID, testAddress(42), types.AccountPatch{Alias: &alias})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list and count", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, &types.Account{UserID: userID, Address: testAddress(1), Alias: "second"}))

		list, err := repo.List(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, list, 2)

		count, err := repo.Count(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		empty, err := repo.List(ctx, newUserID())
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})
}

func testQuota(t *testing.T, repo AccountRepository, max int) {
	ctx := context.Background()

	t.Run("sequential", func(t *testing.T) {
		userID := newUserID()
		seedAccounts(t, repo, userID, max)

		err := repo.Create(ctx, &types.Account{UserID: userID, Address: testAddress(max), Alias: "overflow"})
		assert.ErrorIs(t, err, ErrQuotaExceeded)
	})

	t.Run("concurrent burst at cap", func(t *testing.T) {
		userID := newUserID()
		seedAccounts(t, repo, userID, max)

		const n = 8
		errs := createConcurrently(repo, userID, max, n)

		for _, err := range errs {
			assert.ErrorIs(t, err, ErrQuotaExceeded)
		}
		count, err := repo.Count(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, max, count)
	})

	t.Run("two concurrent at cap minus one", func(t *testing.T) {
		userID := newUserID()
		seedAccounts(t, repo, userID, max-1)

		errs := createConcurrently(repo, userID, max-1, 2)

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, ErrQuotaExceeded)
		}
		assert.Equal(t, 1, succeeded)

		count, err := repo.Count(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, max, count)
	})
}

func createConcurrently(repo AccountRepository, userID string, offset, n int) []error {
	var wg sync.WaitGroup
	errs := make([]error, n)
	start := make(chan struct{})

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = repo.Create(context.Background(), &types.Account{
				UserID:  userID,
				Address: testAddress(offset + i),
				Alias:   fmt.Sprintf("burst%d", i),
			})
		}(i)
	}
	close(start)
	wg.Wait()
	return errs
}

func testOperationLog(t *testing.T, log OperationLog) {
	ctx := context.Background()
	userID := newUserID()
	address := testAddress(0)

	for i := 0; i < 25; i++ {
		op := &types.Operation{
			UserID:      userID,
			Address:     address,
			Type:        types.OperationSignMessage,
			Description: fmt.Sprintf("Signed the following message: m%d", i),
			CreatedAt:   int64(1_700_000_000_000 + i),
		}
		require.NoError(t, log.Record(ctx, op))
		assert.NotZero(t, op.ID)
	}

	// Another account's entries never leak in
	require.NoError(t, log.Record(ctx, &types.Operation{
		UserID: userID, Address: testAddress(1), Type: types.OperationCreateAccount, Description: "other",
	}))

	history, err := log.History(ctx, userID, address)
	require.NoError(t, err)
	require.Len(t, history, types.HistoryLimit)

	assert.Equal(t, "Signed the following message: m24", history[0].Description)
	assert.Equal(t, "Signed the following message: m5", history[len(history)-1].Description)
	for i := 1; i < len(history); i++ {
		assert.Greater(t, history[i-1].CreatedAt, history[i].CreatedAt)
	}

	empty, err := log.History(ctx, newUserID(), address)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
