package repository

import (
	"context"

	"github.com/eg0renkov/bot-sub000/internal/database"
	"github.com/eg0renkov/bot-sub000/internal/models"
)

type ChatRepository struct {
	db *database.DB
}

func NewChatRepository(db *database.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Append(ctx context.Context, userID int64, role, content string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO chat_messages (user_id, role, content) VALUES ($1, $2, $3)`,
		userID, role, content,
	)
	return err
}

// Recent returns the user's last limit messages in chronological order.
func (r *ChatRepository) Recent(ctx context.Context, userID int64, limit int) ([]*models.ChatMessage, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT message_id, user_id, role, content, created_at FROM (
		   SELECT message_id, user_id, role, content, created_at
		   FROM chat_messages WHERE user_id = $1
		   ORDER BY message_id DESC LIMIT $2
		 ) recent ORDER BY message_id ASC`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		msg := &models.ChatMessage{}
		if err := rows.Scan(&msg.MessageID, &msg.UserID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (r *ChatRepository) Clear(ctx context.Context, userID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM chat_messages WHERE user_id = $1`,
		userID,
	)
	return err
}
