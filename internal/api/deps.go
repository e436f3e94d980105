package api

import (
	"context"

	"github.com/vencura/vencura/internal/app"
	"github.com/vencura/vencura/internal/eth"
	"github.com/vencura/vencura/pkg/types"
)

// AccountService is the subset of app.AccountService used by the API layer.
// It is an interface to allow handler-level unit tests without a database.
type AccountService interface {
	ListAccounts(ctx context.Context, userID string) ([]*types.Account, error)
	GetAccount(ctx context.Context, userID, address string) (*types.Account, error)
	CreateAccount(ctx context.Context, req app.CreateAccountRequest) (*types.Account, error)
	UpdateAccount(ctx context.Context, req app.UpdateAccountRequest) error
	GetBalance(ctx context.Context, userID, address, chainName string) (*eth.Balance, error)
	GetHistory(ctx context.Context, userID, address string) ([]*types.Operation, error)
}

// OperationService is the subset of app.OperationService used by the API layer
type OperationService interface {
	SignMessage(ctx context.Context, req app.SignMessageRequest) (string, error)
	SignTransaction(ctx context.Context, req app.SignTransactionRequest) (string, error)
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker func(ctx context.Context) error

var (
	_ AccountService   = (*app.AccountService)(nil)
	_ OperationService = (*app.OperationService)(nil)
)
