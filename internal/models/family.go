package models

import "time"

// TelegramChat binds a Telegram chat to a family namespace
type TelegramChat struct {
	ChatID  int64     `json:"chat_id" db:"chat_id"`
	Family  string    `json:"family" db:"family"`
	BoundBy string    `json:"bound_by" db:"bound_by"`
	BoundAt time.Time `json:"bound_at" db:"bound_at"`
}
