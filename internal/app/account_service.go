package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vencura/vencura/internal/crypto"
	"github.com/vencura/vencura/internal/eth"
	"github.com/vencura/vencura/internal/logger"
	"github.com/vencura/vencura/internal/storage"
	apperrors "github.com/vencura/vencura/pkg/errors"
	"github.com/vencura/vencura/pkg/types"
)

// AccountService handles account lifecycle and read operations
type AccountService struct {
	deps Deps
}

func NewAccountService(deps Deps) *AccountService {
	if deps.MaxAccounts <= 0 {
		deps.MaxAccounts = types.MaxAccountsPerUser
	}
	return &AccountService{deps: deps}
}

// CreateAccountRequest holds a validated create request
type CreateAccountRequest struct {
	UserID   string
	Alias    string
	Password string
}

// UpdateAccountRequest changes the alias and/or the password. The password
// is only changed when both the existing and the new one are given.
type UpdateAccountRequest struct {
	UserID           string
	Address          string
	Alias            *string
	ExistingPassword string
	NewPassword      string
}

func (r UpdateAccountRequest) changesPassword() bool {
	return r.ExistingPassword != "" && r.NewPassword != ""
}

func (s *AccountService) ListAccounts(ctx context.Context, userID string) ([]*types.Account, error) {
	accounts, err := s.deps.Accounts.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	if accounts == nil {
		accounts = []*types.Account{}
	}
	return accounts, nil
}

// GetAccount returns the caller's account or account_not_found
func (s *AccountService) GetAccount(ctx context.Context, userID, address string) (*types.Account, error) {
	address = crypto.NormalizeAddress(address)

	account, err := s.deps.Accounts.Get(ctx, userID, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, apperrors.AccountNotFound(address)
	}
	return account, nil
}

// CreateAccount provisions a key with the wallet manager and persists the account
func (s *AccountService) CreateAccount(ctx context.Context, req CreateAccountRequest) (account *types.Account, err error) {
	defer func() { s.deps.Metrics.RecordOperation(string(types.OperationCreateAccount), err) }()

	// Early rejection; the repository enforces the cap atomically
	count, err := s.deps.Accounts.Count(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}
	if count >= s.deps.MaxAccounts {
		return nil, apperrors.QuotaExceeded(s.deps.MaxAccounts)
	}

	manager, err := s.deps.Managers.Get(ctx)
	if err != nil {
		return nil, err
	}

	created, err := manager.CreateAccount(ctx, req.UserID, req.Password)
	if err != nil {
		return nil, err
	}

	account = &types.Account{
		UserID:              req.UserID,
		Address:             created.Address,
		Alias:               req.Alias,
		WalletID:            created.WalletID,
		EncryptedPrivateKey: created.EncryptedPrivateKey,
		CreatedAt:           created.CreatedAt,
		UpdatedAt:           created.CreatedAt,
	}

	if err := s.deps.Accounts.Create(ctx, account); err != nil {
		switch {
		case errors.Is(err, storage.ErrQuotaExceeded):
			return nil, apperrors.QuotaExceeded(s.deps.MaxAccounts)
		case errors.Is(err, storage.ErrAccountExists):
			return nil, apperrors.ErrConflict
		default:
			return nil, fmt.Errorf("failed to store account: %w", err)
		}
	}

	logger.Info(ctx, "account created", "address", account.Address, "custody", manager.Kind())

	if err := record(ctx, s.deps.Operations, req.UserID, account.Address, types.OperationCreateAccount,
		fmt.Sprintf("Created account %s", account.Address)); err != nil {
		return nil, err
	}
	return account, nil
}

// UpdateAccount applies an alias change and/or a password rotation
func (s *AccountService) UpdateAccount(ctx context.Context, req UpdateAccountRequest) error {
	address := crypto.NormalizeAddress(req.Address)

	if _, err := s.GetAccount(ctx, req.UserID, address); err != nil {
		return err
	}

	if req.Alias != nil {
		err := s.deps.Accounts.Update(ctx, req.UserID, address, types.AccountPatch{Alias: req.Alias})
		s.deps.Metrics.RecordOperation(string(types.OperationUpdateAccount), err)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return apperrors.AccountNotFound(address)
			}
			return fmt.Errorf("failed to update account: %w", err)
		}
		if err := record(ctx, s.deps.Operations, req.UserID, address, types.OperationUpdateAccount,
			fmt.Sprintf("Updated account alias to %s", *req.Alias)); err != nil {
			return err
		}
	}

	if req.changesPassword() {
		manager, err := s.deps.Managers.Get(ctx)
		if err != nil {
			return err
		}
		err = manager.UpdateAccountPassword(ctx, req.UserID, address, req.ExistingPassword, req.NewPassword)
		s.deps.Metrics.RecordOperation(string(types.OperationUpdateAccountPassword), err)
		if err != nil {
			return err
		}
		if err := record(ctx, s.deps.Operations, req.UserID, address, types.OperationUpdateAccountPassword,
			"Updated account password"); err != nil {
			return err
		}
	}

	return nil
}

// GetBalance returns the native balance of one of the caller's accounts
func (s *AccountService) GetBalance(ctx context.Context, userID, address, chainName string) (*eth.Balance, error) {
	account, err := s.GetAccount(ctx, userID, address)
	if err != nil {
		return nil, err
	}

	balance, err := s.deps.Balances.Balance(ctx, account.Address, chainName)
	if err != nil {
		return nil, transferError(err, chainName)
	}
	return balance, nil
}

// GetHistory returns the most recent operations on one of the caller's accounts
func (s *AccountService) GetHistory(ctx context.Context, userID, address string) ([]*types.Operation, error) {
	account, err := s.GetAccount(ctx, userID, address)
	if err != nil {
		return nil, err
	}

	ops, err := s.deps.Operations.History(ctx, userID, account.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if ops == nil {
		ops = []*types.Operation{}
	}
	return ops, nil
}
