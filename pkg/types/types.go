package types

import "time"

// MaxAccountsPerUser is the default number of accounts a single user may own
const MaxAccountsPerUser = 10

// HistoryLimit is the number of operations returned by an account history query
const HistoryLimit = 20

// Account is a custodied chain account owned by a user
type Account struct {
	UserID  string `json:"userId"`
	Address string `json:"address"`
	Alias   string `json:"alias"`

	// WalletID is the custody provider handle (a random UUID under local custody)
	WalletID string `json:"walletId"`

	// EncryptedPrivateKey is only populated under local custody
	EncryptedPrivateKey string `json:"-"`

	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

// AccountPatch holds the mutable account fields; nil fields are left untouched
type AccountPatch struct {
	Alias               *string
	EncryptedPrivateKey *string
}

// IsEmpty reports whether the patch changes nothing besides updatedAt
func (p AccountPatch) IsEmpty() bool {
	return p.Alias == nil && p.EncryptedPrivateKey == nil
}

// OperationType identifies a custody action recorded in the operation log
type OperationType string

const (
	OperationCreateAccount         OperationType = "create_account"
	OperationUpdateAccount         OperationType = "update_account"
	OperationUpdateAccountPassword OperationType = "update_account_password"
	OperationSignMessage           OperationType = "sign_message"
	OperationSignTransaction       OperationType = "sign_transaction"
)

// Valid reports whether t is one of the known operation types
func (t OperationType) Valid() bool {
	switch t {
	case OperationCreateAccount, OperationUpdateAccount, OperationUpdateAccountPassword,
		OperationSignMessage, OperationSignTransaction:
		return true
	}
	return false
}

// Operation is an immutable audit record of a custody action
type Operation struct {
	ID          int64         `json:"-"`
	UserID      string        `json:"-"`
	Address     string        `json:"-"`
	Type        OperationType `json:"type"`
	Description string        `json:"description"`
	CreatedAt   int64         `json:"createdAt"`
}

// NowMillis returns the current time as epoch milliseconds
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
