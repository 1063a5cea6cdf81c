package store

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"chatvault/pkg/domain"
)

// AccountModel is the GORM row backing a domain.Account. The message history
// lives in a single JSONB column so replacing it is one atomic row update.
type AccountModel struct {
	ID           string         `gorm:"primaryKey"`
	Email        string         `gorm:"uniqueIndex;not null"`
	Name         string         `gorm:"not null"`
	SurName      string         `gorm:"not null"`
	PasswordHash string         `gorm:"not null"`
	Age          int            `gorm:"not null"`
	Messages     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"not null"`
	UpdatedAt    time.Time
}

func toModel(a domain.Account) (AccountModel, error) {
	msgs, err := encodeMessages(a.Messages)
	if err != nil {
		return AccountModel{}, err
	}
	return AccountModel{
		ID:           a.ID,
		Email:        a.Email,
		Name:         a.Name,
		SurName:      a.SurName,
		PasswordHash: a.PasswordHash,
		Age:          a.Age,
		Messages:     msgs,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}, nil
}

func toDomain(m AccountModel) (domain.Account, error) {
	msgs, err := decodeMessages(m.Messages)
	if err != nil {
		return domain.Account{}, err
	}
	return domain.Account{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		SurName:      m.SurName,
		PasswordHash: m.PasswordHash,
		Age:          m.Age,
		Messages:     msgs,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}, nil
}

func encodeMessages(msgs []domain.MessagePair) (datatypes.JSON, error) {
	if msgs == nil {
		msgs = []domain.MessagePair{}
	}
	raw, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("encode messages: %w", err)
	}
	return datatypes.JSON(raw), nil
}

func decodeMessages(raw datatypes.JSON) ([]domain.MessagePair, error) {
	if len(raw) == 0 {
		return []domain.MessagePair{}, nil
	}
	var msgs []domain.MessagePair
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	if msgs == nil {
		msgs = []domain.MessagePair{}
	}
	return msgs, nil
}
