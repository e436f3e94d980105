package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vencura/vencura/pkg/types"
)

// AccountRepo is the Postgres AccountRepository
type AccountRepo struct {
	store       *Store
	maxAccounts int
}

// NewAccountRepo creates an AccountRepo capping each user at maxAccounts
func NewAccountRepo(store *Store, maxAccounts int) *AccountRepo {
	if maxAccounts <= 0 {
		maxAccounts = types.MaxAccountsPerUser
	}
	return &AccountRepo{store: store, maxAccounts: maxAccounts}
}

const accountColumns = `user_id, address, alias, wallet_id, COALESCE(encrypted_private_key, ''), created_at, updated_at`

func scanAccount(row pgx.Row) (*types.Account, error) {
	var a types.Account
	err := row.Scan(
		&a.UserID,
		&a.Address,
		&a.Alias,
		&a.WalletID,
		&a.EncryptedPrivateKey,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create counts and inserts in one serializable transaction so concurrent
// creates by the same user cannot both pass the quota check
func (r *AccountRepo) Create(ctx context.Context, account *types.Account) error {
	now := types.NowMillis()
	if account.CreatedAt == 0 {
		account.CreatedAt = now
	}
	if account.UpdatedAt == 0 {
		account.UpdatedAt = account.CreatedAt
	}

	var encrypted *string
	if account.EncryptedPrivateKey != "" {
		encrypted = &account.EncryptedPrivateKey
	}

	err := r.store.Serializable(ctx, func(tx pgx.Tx) error {
		count, err := r.countTx(ctx, tx, account.UserID)
		if err != nil {
			return err
		}
		if count >= r.maxAccounts {
			return ErrQuotaExceeded
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO accounts (user_id, address, alias, wallet_id, encrypted_private_key, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			account.UserID,
			account.Address,
			account.Alias,
			account.WalletID,
			encrypted,
			account.CreatedAt,
			account.UpdatedAt,
		)
		return err
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrQuotaExceeded):
		return err
	case isUniqueViolation(err):
		return ErrAccountExists
	default:
		return fmt.Errorf("failed to create account: %w", err)
	}
}

// Get returns nil, nil when no account matches
func (r *AccountRepo) Get(ctx context.Context, userID, address string) (*types.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 AND address = $2`

	account, err := scanAccount(r.store.pool.QueryRow(ctx, query, userID, address))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (r *AccountRepo) List(ctx context.Context, userID string) ([]*types.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY created_at, address`

	rows, err := r.store.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*types.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (r *AccountRepo) Update(ctx context.Context, userID, address string, patch types.AccountPatch) error {
	tag, err := r.store.pool.Exec(ctx, `
		UPDATE accounts
		SET alias = COALESCE($3, alias),
		    encrypted_private_key = COALESCE($4, encrypted_private_key),
		    updated_at = $5
		WHERE user_id = $1 AND address = $2
	`, userID, address, patch.Alias, patch.EncryptedPrivateKey, types.NowMillis())
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountRepo) Count(ctx context.Context, userID string) (int, error) {
	return r.countTx(ctx, r.store.pool, userID)
}

func (r *AccountRepo) countTx(ctx context.Context, db DBTX, userID string) (int, error) {
	var count int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

var _ AccountRepository = (*AccountRepo)(nil)
