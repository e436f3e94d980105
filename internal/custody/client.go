// Package custody is the boundary to the remote threshold-signature custody service.
package custody

import (
	"context"
	"errors"
)

// SchemeTwoOfTwo splits the key between the service and its client share backup
const SchemeTwoOfTwo = "TWO_OF_TWO"

var (
	// ErrInvalidPassword is returned when the service rejects the account password
	ErrInvalidPassword = errors.New("custody: invalid password")

	// ErrNotAuthenticated is returned when a call is made before Authenticate succeeds
	ErrNotAuthenticated = errors.New("custody: client not authenticated")

	// ErrRequestFailed covers every other non-success response
	ErrRequestFailed = errors.New("custody: request failed")
)

type CreateAccountRequest struct {
	Scheme   string `json:"thresholdSignatureScheme"`
	Password string `json:"password,omitempty"`
	Backup   bool   `json:"backUpToClientShareService"`
}

type CreateAccountResult struct {
	AccountAddress string `json:"accountAddress"`
	WalletID       string `json:"walletId"`
}

type UpdatePasswordRequest struct {
	AccountAddress   string `json:"accountAddress"`
	ExistingPassword string `json:"existingPassword"`
	NewPassword      string `json:"newPassword"`
	Backup           bool   `json:"backUpToClientShareService"`
}

type SignMessageRequest struct {
	AccountAddress string `json:"accountAddress"`
	Message        string `json:"message"`
	Password       string `json:"password,omitempty"`
}

// Transaction is an unsigned native transfer. Value is in wei.
type Transaction struct {
	To      string `json:"to"`
	Value   string `json:"value"`
	ChainID int64  `json:"chainId"`
}

type SignTransactionRequest struct {
	SenderAddress string      `json:"senderAddress"`
	Transaction   Transaction `json:"transaction"`
	Password      string      `json:"password,omitempty"`
}

// Client is the remote custody API. Accounts are addressed by chain address;
// the service knows nothing about this system's users.
type Client interface {
	Authenticate(ctx context.Context, apiKey string) error
	CreateAccount(ctx context.Context, req CreateAccountRequest) (*CreateAccountResult, error)
	UpdatePassword(ctx context.Context, req UpdatePasswordRequest) error
	SignMessage(ctx context.Context, req SignMessageRequest) (string, error)
	SignTransaction(ctx context.Context, req SignTransactionRequest) (string, error)
}
