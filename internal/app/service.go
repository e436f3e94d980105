// Package app composes the wallet manager, account repository and operation
// log into the operations exposed over HTTP.
package app

import (
	"context"
	"fmt"

	"github.com/vencura/vencura/internal/eth"
	"github.com/vencura/vencura/internal/logger"
	"github.com/vencura/vencura/internal/metrics"
	"github.com/vencura/vencura/internal/storage"
	"github.com/vencura/vencura/internal/wallet"
	"github.com/vencura/vencura/pkg/types"
)

// ManagerSource yields the process-wide wallet manager
type ManagerSource interface {
	Get(ctx context.Context) (wallet.Manager, error)
}

// BalanceReader reads native balances
type BalanceReader interface {
	Balance(ctx context.Context, address, chainName string) (*eth.Balance, error)
}

// Deps are shared by the services
type Deps struct {
	Managers    ManagerSource
	Accounts    storage.AccountRepository
	Operations  storage.OperationLog
	Balances    BalanceReader
	Metrics     *metrics.Metrics
	MaxAccounts int
}

// record appends an operation after the action it describes has succeeded.
// The action is not rolled back if the append fails.
func record(ctx context.Context, log storage.OperationLog, userID, address string, opType types.OperationType, description string) error {
	op := &types.Operation{
		UserID:      userID,
		Address:     address,
		Type:        opType,
		Description: description,
		CreatedAt:   types.NowMillis(),
	}
	if err := log.Record(ctx, op); err != nil {
		logger.Error(ctx, "failed to record operation", "type", opType, "address", address, "error", err)
		return fmt.Errorf("failed to record operation: %w", err)
	}
	return nil
}
