package storage

import (
	"testing"

	"github.com/vencura/vencura/pkg/types"
)

func TestMemoryStore_Accounts(t *testing.T) {
	testAccountCRUD(t, NewMemoryStore(types.MaxAccountsPerUser))
}

func TestMemoryStore_Quota(t *testing.T) {
	testQuota(t, NewMemoryStore(types.MaxAccountsPerUser), types.MaxAccountsPerUser)
}

func TestMemoryStore_CustomQuota(t *testing.T) {
	testQuota(t, NewMemoryStore(3), 3)
}

func TestMemoryStore_OperationLog(t *testing.T) {
	testOperationLog(t, NewMemoryStore(types.MaxAccountsPerUser))
}
