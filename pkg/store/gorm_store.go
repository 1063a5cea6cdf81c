package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"chatvault/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&AccountModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateAccount inserts a new account row. The unique index on email backs
// the duplicate pre-check done by the caller.
func (s *GormStore) CreateAccount(account domain.Account) error {
	model, err := toModel(account)
	if err != nil {
		return err
	}
	if err := s.db.Create(&model).Error; err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// GetAccountByEmail fetches one account; the bool reports existence.
func (s *GormStore) GetAccountByEmail(email string) (domain.Account, bool, error) {
	var model AccountModel
	err := s.db.Where("email = ?", email).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Account{}, false, nil
	}
	if err != nil {
		return domain.Account{}, false, fmt.Errorf("get account: %w", err)
	}
	account, err := toDomain(model)
	if err != nil {
		return domain.Account{}, false, err
	}
	return account, true, nil
}

// UpdateProfile applies the supplied fields to one row and returns the
// resulting account.
func (s *GormStore) UpdateProfile(email string, update ProfileUpdate) (domain.Account, bool, error) {
	fields := map[string]any{}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.SurName != nil {
		fields["sur_name"] = *update.SurName
	}
	if update.Age != nil {
		fields["age"] = *update.Age
	}
	if len(fields) > 0 {
		res := s.db.Model(&AccountModel{}).Where("email = ?", email).Updates(fields)
		if res.Error != nil {
			return domain.Account{}, false, fmt.Errorf("update profile: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.Account{}, false, nil
		}
	}
	return s.GetAccountByEmail(email)
}

// ReplaceMessages overwrites the history column in one atomic row update.
func (s *GormStore) ReplaceMessages(email string, messages []domain.MessagePair) (domain.Account, bool, error) {
	raw, err := encodeMessages(messages)
	if err != nil {
		return domain.Account{}, false, err
	}
	res := s.db.Model(&AccountModel{}).Where("email = ?", email).Update("messages", raw)
	if res.Error != nil {
		return domain.Account{}, false, fmt.Errorf("replace messages: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Account{}, false, nil
	}
	return s.GetAccountByEmail(email)
}

// ClearMessages empties the history column and reports rows matched.
func (s *GormStore) ClearMessages(email string) (int64, error) {
	empty, err := encodeMessages(nil)
	if err != nil {
		return 0, err
	}
	res := s.db.Model(&AccountModel{}).Where("email = ?", email).Update("messages", empty)
	if res.Error != nil {
		return 0, fmt.Errorf("clear messages: %w", res.Error)
	}
	return res.RowsAffected, nil
}
