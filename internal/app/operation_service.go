package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vencura/vencura/internal/chain"
	"github.com/vencura/vencura/internal/crypto"
	"github.com/vencura/vencura/internal/eth"
	"github.com/vencura/vencura/internal/wallet"
	apperrors "github.com/vencura/vencura/pkg/errors"
	"github.com/vencura/vencura/pkg/types"
)

// OperationService signs on behalf of account owners and logs what was signed
type OperationService struct {
	deps Deps
}

func NewOperationService(deps Deps) *OperationService {
	return &OperationService{deps: deps}
}

type SignMessageRequest struct {
	UserID   string
	Address  string
	Message  string
	Password string
}

type SignTransactionRequest struct {
	UserID      string
	Address     string
	Chain       string
	Transaction wallet.TransactionInput
	Password    string
}

// SignMessage returns an EIP-191 signature. Nothing is logged on failure.
func (s *OperationService) SignMessage(ctx context.Context, req SignMessageRequest) (signature string, err error) {
	defer func() { s.deps.Metrics.RecordOperation(string(types.OperationSignMessage), err) }()

	address := crypto.NormalizeAddress(req.Address)

	manager, err := s.deps.Managers.Get(ctx)
	if err != nil {
		return "", err
	}

	signature, err = manager.SignMessage(ctx, req.UserID, address, req.Message, req.Password)
	if err != nil {
		return "", err
	}

	if err := record(ctx, s.deps.Operations, req.UserID, address, types.OperationSignMessage,
		fmt.Sprintf("Signed the following message: %s", req.Message)); err != nil {
		return "", err
	}
	return signature, nil
}

// SignTransaction signs a native transfer. Local custody broadcasts it and
// returns the hash; remote custody returns the provider's signature.
func (s *OperationService) SignTransaction(ctx context.Context, req SignTransactionRequest) (result string, err error) {
	defer func() { s.deps.Metrics.RecordOperation(string(types.OperationSignTransaction), err) }()

	address := crypto.NormalizeAddress(req.Address)

	manager, err := s.deps.Managers.Get(ctx)
	if err != nil {
		return "", err
	}

	result, err = manager.SignTransaction(ctx, req.UserID, wallet.SignTransactionParams{
		Transaction: req.Transaction,
		Chain:       req.Chain,
		Address:     address,
		Password:    req.Password,
	})
	if err != nil {
		return "", err
	}

	if err := record(ctx, s.deps.Operations, req.UserID, address, types.OperationSignTransaction,
		fmt.Sprintf("Signed the following transaction: %s", result)); err != nil {
		return "", err
	}
	return result, nil
}

// transferError maps chain and RPC errors from read paths
func transferError(err error, chainName string) error {
	switch {
	case errors.Is(err, chain.ErrUnsupportedChain):
		return apperrors.UnsupportedChain(chainName)
	case errors.Is(err, eth.ErrTransactionFailed):
		return apperrors.ErrTransactionFailed
	default:
		return err
	}
}
