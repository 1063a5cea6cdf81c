package domain

import "time"

// Account is a registered user and the owner of a bounded chat history.
type Account struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	SurName      string        `json:"surName"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Age          int           `json:"age"`
	Messages     []MessagePair `json:"messages"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// MessagePair is one conversation turn: what the user wrote and what the
// assistant answered, under a stable identifier.
type MessagePair struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// TokenPair carries both credentials issued on login.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
