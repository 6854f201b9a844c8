package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is one persisted turn of a cortex chat thread. Rows are
// immutable once written; a thread is the set of rows sharing a thread id.
type ChatMessage struct {
	ID             string    `json:"id"`
	ThreadID       string    `json:"thread_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	ChannelContext string    `json:"channel_context,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
