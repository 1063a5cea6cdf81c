package store

import (
	"sync"
	"time"

	"chatvault/pkg/domain"
)

// MemoryStore keeps accounts in-process. It mirrors GormStore semantics and
// backs the app and server tests.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account // key: normalized email
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]domain.Account)}
}

// CreateAccount stores a new account keyed by email.
func (m *MemoryStore) CreateAccount(account domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.Email] = copyAccount(account)
	return nil
}

// GetAccountByEmail retrieves one account by email.
func (m *MemoryStore) GetAccountByEmail(email string) (domain.Account, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[email]
	if !ok {
		return domain.Account{}, false, nil
	}
	return copyAccount(account), true, nil
}

// UpdateProfile applies the supplied fields and returns the updated account.
func (m *MemoryStore) UpdateProfile(email string, update ProfileUpdate) (domain.Account, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[email]
	if !ok {
		return domain.Account{}, false, nil
	}
	if update.Name != nil {
		account.Name = *update.Name
	}
	if update.SurName != nil {
		account.SurName = *update.SurName
	}
	if update.Age != nil {
		account.Age = *update.Age
	}
	account.UpdatedAt = time.Now().UTC()
	m.accounts[email] = account
	return copyAccount(account), true, nil
}

// ReplaceMessages overwrites the account's history.
func (m *MemoryStore) ReplaceMessages(email string, messages []domain.MessagePair) (domain.Account, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[email]
	if !ok {
		return domain.Account{}, false, nil
	}
	account.Messages = append([]domain.MessagePair(nil), messages...)
	account.UpdatedAt = time.Now().UTC()
	m.accounts[email] = account
	return copyAccount(account), true, nil
}

// ClearMessages empties the history, matching Postgres row-matched counting:
// a repeat call on an already-empty history still reports 1.
func (m *MemoryStore) ClearMessages(email string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[email]
	if !ok {
		return 0, nil
	}
	account.Messages = []domain.MessagePair{}
	account.UpdatedAt = time.Now().UTC()
	m.accounts[email] = account
	return 1, nil
}

func copyAccount(a domain.Account) domain.Account {
	out := a
	out.Messages = append([]domain.MessagePair(nil), a.Messages...)
	return out
}
