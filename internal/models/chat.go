package models

import "time"

// ChatMessage is one stored turn of a user's conversation with the assistant.
type ChatMessage struct {
	MessageID int64     `json:"message_id"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
