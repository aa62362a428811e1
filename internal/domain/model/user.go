package model

import (
	"strings"
	"time"

	"telegram-p2p-trading/internal/domain"

	"github.com/google/uuid"
)

// User is a Telegram user known to the bot.
type User struct {
	ID         string    `json:"id"`
	TelegramID int64     `json:"tg_id"`
	Username   string    `json:"username"`
	Language   string    `json:"language"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewUser(id string, tgID int64, username string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if tgID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		ID:         id,
		TelegramID: tgID,
		Username:   NormalizeUsername(username),
		Language:   "en",
		CreatedAt:  time.Now(),
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

// NormalizeUsername strips the leading @ Telegram clients show in front of handles.
func NormalizeUsername(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "@")
}
