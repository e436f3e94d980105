package eth

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/vencura/vencura/internal/chain"
	"github.com/vencura/vencura/internal/logger"
)

// TransferGasLimit is the fixed gas for a plain native transfer
const TransferGasLimit uint64 = 21000

var (
	// ErrTransactionFailed hides node and signing errors from callers.
	// The underlying cause is logged where it happens.
	ErrTransactionFailed = errors.New("transaction failed")

	ErrInvalidRecipient = errors.New("invalid recipient address")
)

// TransferRequest is a native asset transfer; Amount is in whole units
type TransferRequest struct {
	To     string
	Amount string
}

// Balance is a native balance in wei and whole units
type Balance struct {
	Chain     string `json:"chain"`
	Symbol    string `json:"symbol"`
	Wei       string `json:"wei"`
	Formatted string `json:"balance"`
}

// Signer builds, signs and broadcasts native transfers
type Signer struct {
	backends BackendSource
}

// NewSigner creates a Signer that resolves RPC clients from backends
func NewSigner(backends BackendSource) *Signer {
	return &Signer{backends: backends}
}

// SignAndSend transfers req.Amount to req.To on chainName and returns the tx hash.
// The key is only read; the caller owns and clears it.
func (s *Signer) SignAndSend(ctx context.Context, privateKey *ecdsa.PrivateKey, req TransferRequest, chainName string) (string, error) {
	c, err := chain.Lookup(chainName)
	if err != nil {
		return "", err
	}
	return s.signAndSend(ctx, privateKey, req, c)
}

func (s *Signer) signAndSend(ctx context.Context, privateKey *ecdsa.PrivateKey, req TransferRequest, c chain.Chain) (string, error) {
	if !common.IsHexAddress(req.To) {
		return "", fmt.Errorf("%w: %s", ErrInvalidRecipient, req.To)
	}
	value, err := ParseAmount(req.Amount)
	if err != nil {
		return "", err
	}

	backend, err := s.backends.Backend(ctx, c)
	if err != nil {
		return "", s.failed(ctx, c, "dial", err)
	}

	from := ethcrypto.PubkeyToAddress(privateKey.PublicKey)
	nonce, err := backend.PendingNonceAt(ctx, from)
	if err != nil {
		return "", s.failed(ctx, c, "nonce", err)
	}

	to := common.HexToAddress(req.To)
	chainID := big.NewInt(c.ID)

	var txData types.TxData
	if c.PriorityFee {
		tip, err := backend.SuggestGasTipCap(ctx)
		if err != nil {
			return "", s.failed(ctx, c, "gas tip", err)
		}
		head, err := backend.HeaderByNumber(ctx, nil)
		if err != nil {
			return "", s.failed(ctx, c, "latest header", err)
		}
		if head.BaseFee == nil {
			return "", s.failed(ctx, c, "latest header", fmt.Errorf("no base fee in block %s", head.Number))
		}

		txData = &types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			To:        &to,
			Value:     value,
			Gas:       TransferGasLimit,
			GasTipCap: tip,
			GasFeeCap: maxFeePerGas(head.BaseFee, tip),
		}
	} else {
		gasPrice, err := backend.SuggestGasPrice(ctx)
		if err != nil {
			return "", s.failed(ctx, c, "gas price", err)
		}

		txData = &types.LegacyTx{
			Nonce:    nonce,
			To:       &to,
			Value:    value,
			Gas:      TransferGasLimit,
			GasPrice: gasPrice,
		}
	}

	signedTx, err := types.SignNewTx(privateKey, types.LatestSignerForChainID(chainID), txData)
	if err != nil {
		return "", s.failed(ctx, c, "sign", err)
	}

	if err := backend.SendTransaction(ctx, signedTx); err != nil {
		return "", s.failed(ctx, c, "broadcast", err)
	}

	hash := signedTx.Hash().Hex()
	logger.Info(ctx, "transaction broadcast", "chain", c.Name, "from", from.Hex(), "tx_hash", hash, "nonce", nonce)
	return hash, nil
}

// Balance returns the native balance of address on chainName
func (s *Signer) Balance(ctx context.Context, address, chainName string) (*Balance, error) {
	c, err := chain.Lookup(chainName)
	if err != nil {
		return nil, err
	}

	backend, err := s.backends.Backend(ctx, c)
	if err != nil {
		return nil, err
	}

	wei, err := backend.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	return &Balance{
		Chain:     c.Name,
		Symbol:    c.NativeSymbol,
		Wei:       wei.String(),
		Formatted: FormatAmount(wei),
	}, nil
}

// maxFeePerGas allows the base fee to rise 20% before the tx is priced out
func maxFeePerGas(baseFee, tip *big.Int) *big.Int {
	fee := new(big.Int).Mul(baseFee, big.NewInt(12))
	fee.Div(fee, big.NewInt(10))
	return fee.Add(fee, tip)
}

func (s *Signer) failed(ctx context.Context, c chain.Chain, stage string, err error) error {
	logger.Error(ctx, "transaction failed", "chain", c.Name, "stage", stage, "error", err)
	return ErrTransactionFailed
}
