package store

import "chatvault/pkg/domain"

// ProfileUpdate carries the mutable profile fields for a partial update.
// A nil field is left untouched. Email and password hash are not updatable
// through this path.
type ProfileUpdate struct {
	Name    *string
	SurName *string
	Age     *int
}

// Store defines persistence operations for accounts and their histories.
// Each call is individually atomic at the single-row level; callers get no
// cross-call isolation.
type Store interface {
	CreateAccount(account domain.Account) error
	GetAccountByEmail(email string) (domain.Account, bool, error)
	UpdateProfile(email string, update ProfileUpdate) (domain.Account, bool, error)
	ReplaceMessages(email string, messages []domain.MessagePair) (domain.Account, bool, error)
	// ClearMessages empties the history and reports rows matched. Postgres
	// counts a row as modified even when the value was already empty, so a
	// repeat call still reports 1.
	ClearMessages(email string) (int64, error)
}
