package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/vencura/vencura/pkg/types"
)

type accountKey struct {
	userID  string
	address string
}

// MemoryStore keeps accounts and operations in process memory.
// It implements both AccountRepository and OperationLog; state is lost on restart.
type MemoryStore struct {
	mu          sync.Mutex
	maxAccounts int
	accounts    map[accountKey]types.Account
	operations  []types.Operation
	nextOpID    int64
}

// NewMemoryStore creates an empty store capping each user at maxAccounts
func NewMemoryStore(maxAccounts int) *MemoryStore {
	if maxAccounts <= 0 {
		maxAccounts = types.MaxAccountsPerUser
	}
	return &MemoryStore{
		maxAccounts: maxAccounts,
		accounts:    make(map[accountKey]types.Account),
	}
}

func (m *MemoryStore) countLocked(userID string) int {
	n := 0
	for k := range m.accounts {
		if k.userID == userID {
			n++
		}
	}
	return n
}

func (m *MemoryStore) Create(ctx context.Context, account *types.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.countLocked(account.UserID) >= m.maxAccounts {
		return ErrQuotaExceeded
	}

	key := accountKey{account.UserID, account.Address}
	if _, exists := m.accounts[key]; exists {
		return ErrAccountExists
	}

	if account.CreatedAt == 0 {
		account.CreatedAt = types.NowMillis()
	}
	if account.UpdatedAt == 0 {
		account.UpdatedAt = account.CreatedAt
	}
	m.accounts[key] = *account
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, userID, address string) (*types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[accountKey{userID, address}]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *MemoryStore) List(ctx context.Context, userID string) ([]*types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	accounts := make([]*types.Account, 0)
	for k, a := range m.accounts {
		if k.userID == userID {
			a := a
			accounts = append(accounts, &a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt != accounts[j].CreatedAt {
			return accounts[i].CreatedAt < accounts[j].CreatedAt
		}
		return accounts[i].Address < accounts[j].Address
	})
	return accounts, nil
}

func (m *MemoryStore) Update(ctx context.Context, userID, address string, patch types.AccountPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := accountKey{userID, address}
	a, ok := m.accounts[key]
	if !ok {
		return ErrNotFound
	}
	if patch.Alias != nil {
		a.Alias = *patch.Alias
	}
	if patch.EncryptedPrivateKey != nil {
		a.EncryptedPrivateKey = *patch.EncryptedPrivateKey
	}
	a.UpdatedAt = types.NowMillis()
	m.accounts[key] = a
	return nil
}

func (m *MemoryStore) Count(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(userID), nil
}

func (m *MemoryStore) Record(ctx context.Context, op *types.Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextOpID++
	op.ID = m.nextOpID
	if op.CreatedAt == 0 {
		op.CreatedAt = types.NowMillis()
	}
	m.operations = append(m.operations, *op)
	return nil
}

func (m *MemoryStore) History(ctx context.Context, userID, address string) ([]*types.Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ops := make([]*types.Operation, 0)
	for i := range m.operations {
		op := m.operations[i]
		if op.UserID == userID && op.Address == address {
			ops = append(ops, &op)
		}
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].CreatedAt != ops[j].CreatedAt {
			return ops[i].CreatedAt > ops[j].CreatedAt
		}
		return ops[i].ID > ops[j].ID
	})
	if len(ops) > types.HistoryLimit {
		ops = ops[:types.HistoryLimit]
	}
	return ops, nil
}

var (
	_ AccountRepository = (*MemoryStore)(nil)
	_ OperationLog      = (*MemoryStore)(nil)
)
