package cortex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cortexchat/internal/models"

	"github.com/google/uuid"
)

// Store persists cortex chat messages. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveMessage appends one immutable row to the thread and returns its id.
// An empty channelContext is stored as NULL.
func (s *Store) SaveMessage(ctx context.Context, threadID string, role models.Role, content, channelContext string) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{
		ID:             uuid.NewString(),
		ThreadID:       threadID,
		Role:           role,
		Content:        content,
		ChannelContext: channelContext,
		CreatedAt:      time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cortex_chat_messages (id, thread_id, role, content, channel_context, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ThreadID, msg.Role, msg.Content,
		sql.NullString{String: channelContext, Valid: channelContext != ""},
		msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("save chat message: %w", err)
	}
	return msg, nil
}

// LoadHistory returns up to limit most-recent messages of the thread in
// chronological order. Timestamp ties resolve by insertion order.
func (s *Store) LoadHistory(ctx context.Context, threadID string, limit int) ([]*models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, thread_id, role, content, COALESCE(channel_context, ''), created_at
		 FROM cortex_chat_messages
		 WHERE thread_id = ?
		 ORDER BY created_at DESC, seq DESC
		 LIMIT ?`,
		threadID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query chat history: %w", err)
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.ThreadID, &msg.Role, &msg.Content, &msg.ChannelContext, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat history: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// LatestThreadID returns the thread of the globally newest message, or ""
// when the store is empty.
func (s *Store) LatestThreadID(ctx context.Context) (string, error) {
	var threadID string
	err := s.db.QueryRowContext(ctx,
		`SELECT thread_id FROM cortex_chat_messages
		 ORDER BY created_at DESC, seq DESC
		 LIMIT 1`,
	).Scan(&threadID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query latest thread: %w", err)
	}
	return threadID, nil
}
