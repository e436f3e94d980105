package storage

import (
	"context"
	"errors"

	"github.com/vencura/vencura/pkg/types"
)

var (
	// ErrQuotaExceeded is returned by Create when the user already owns the maximum number of accounts
	ErrQuotaExceeded = errors.New("account quota exceeded")

	// ErrAccountExists is returned by Create for a duplicate (user, address) pair
	ErrAccountExists = errors.New("account already exists")

	// ErrNotFound is returned by Update when no account matches
	ErrNotFound = errors.New("account not found")
)

// AccountRepository persists accounts. Get returns (nil, nil) when the account does not exist.
type AccountRepository interface {
	// Create inserts account unless its owner is at the quota. The count and
	// the insert are atomic with respect to concurrent creates.
	Create(ctx context.Context, account *types.Account) error
	Get(ctx context.Context, userID, address string) (*types.Account, error)
	List(ctx context.Context, userID string) ([]*types.Account, error)
	// Update applies patch and always stamps updatedAt
	Update(ctx context.Context, userID, address string, patch types.AccountPatch) error
	Count(ctx context.Context, userID string) (int, error)
}

// OperationLog is the append-only audit trail of custody actions
type OperationLog interface {
	Record(ctx context.Context, op *types.Operation) error
	// History returns the most recent operations for an account, newest first
	History(ctx context.Context, userID, address string) ([]*types.Operation, error)
}
