package storage

import (
	"context"
	"fmt"

	"github.com/vencura/vencura/pkg/types"
)

// OperationRepo is the Postgres OperationLog
type OperationRepo struct {
	store *Store
}

func NewOperationRepo(store *Store) *OperationRepo {
	return &OperationRepo{store: store}
}

func (r *OperationRepo) Record(ctx context.Context, op *types.Operation) error {
	if op.CreatedAt == 0 {
		op.CreatedAt = types.NowMillis()
	}

	err := r.store.pool.QueryRow(ctx, `
		INSERT INTO operations (user_id, address, type, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, op.UserID, op.Address, string(op.Type), op.Description, op.CreatedAt).Scan(&op.ID)
	if err != nil {
		return fmt.Errorf("failed to record operation: %w", err)
	}
	return nil
}

func (r *OperationRepo) History(ctx context.Context, userID, address string) ([]*types.Operation, error) {
	rows, err := r.store.pool.Query(ctx, `
		SELECT id, user_id, address, type, description, created_at
		FROM operations
		WHERE user_id = $1 AND address = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, userID, address, types.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	ops := make([]*types.Operation, 0)
	for rows.Next() {
		var op types.Operation
		var opType string
		if err := rows.Scan(&op.ID, &op.UserID, &op.Address, &opType, &op.Description, &op.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		op.Type = types.OperationType(opType)
		ops = append(ops, &op)
	}
	return ops, rows.Err()
}

var _ OperationLog = (*OperationRepo)(nil)
