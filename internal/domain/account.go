package domain

import (
	"errors"

	"github.com/google/uuid"
)

const (
	MinAccountNameLen = 3
	MaxAccountNameLen = 32
)

var ErrAccountNameSize = errors.New("account name length out of range")

type AccountID string

// Account is a registered identity on the auth boundary. Accounts live
// in memory only; the realtime channel never consults them beyond the
// display name carried in the token.
type Account struct {
	ID           AccountID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"-"`
}

func NewAccount(username string, hash []byte) (*Account, error) {
	if len(username) < MinAccountNameLen || len(username) > MaxAccountNameLen {
		return nil, ErrAccountNameSize
	}
	return &Account{
		ID:           AccountID(uuid.NewString()),
		Username:     username,
		PasswordHash: hash,
	}, nil
}
