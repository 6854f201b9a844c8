// Package history stores and serves the per-channel activity timeline the
// cortex reads for situational context: channel messages plus the outcomes
// of branch and worker runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	kindMessage   = "message"
	kindBranchRun = "branch_run"
	kindWorkerRun = "worker_run"
)

// TimelineItem is a closed set: MessageItem, BranchRunItem, WorkerRunItem.
// Consumers type-switch over these and treat any other type as a defect.
type TimelineItem interface {
	timelineItem()
}

// MessageItem is a message observed on the channel. SenderName is empty when
// the sender is only known by role.
type MessageItem struct {
	Role       string
	Content    string
	SenderName string
}

// BranchRunItem records a finished branch evaluation. Conclusion is empty
// when the branch produced no outcome.
type BranchRunItem struct {
	Description string
	Conclusion  string
}

// WorkerRunItem records a finished worker task. Result is empty when the
// worker produced no outcome.
type WorkerRunItem struct {
	Task   string
	Result string
}

func (MessageItem) timelineItem()   {}
func (BranchRunItem) timelineItem() {}
func (WorkerRunItem) timelineItem() {}

// Service appends and loads timeline rows.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// RecordMessage appends a channel message to the timeline.
func (s *Service) RecordMessage(ctx context.Context, channelID, role, content, senderName string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO channel_timeline (channel_id, kind, role, content, sender_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		channelID, kindMessage, role, content, nullable(senderName), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record channel message: %w", err)
	}
	return nil
}

// RecordBranchRun appends a finished branch evaluation to the timeline.
func (s *Service) RecordBranchRun(ctx context.Context, channelID, description, conclusion string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO channel_timeline (channel_id, kind, description, conclusion, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		channelID, kindBranchRun, description, nullable(conclusion), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record branch run: %w", err)
	}
	return nil
}

// RecordWorkerRun appends a finished worker task to the timeline.
func (s *Service) RecordWorkerRun(ctx context.Context, channelID, task, result string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO channel_timeline (channel_id, kind, task, result, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		channelID, kindWorkerRun, task, nullable(result), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record worker run: %w", err)
	}
	return nil
}

// LoadChannelTimeline returns up to limit most-recent items for the channel
// in chronological order.
func (s *Service) LoadChannelTimeline(ctx context.Context, channelID string, limit int) ([]TimelineItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, role, content, sender_name, description, conclusion, task, result
		 FROM channel_timeline
		 WHERE channel_id = ?
		 ORDER BY created_at DESC, seq DESC
		 LIMIT ?`,
		channelID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query channel timeline: %w", err)
	}
	defer rows.Close()

	var items []TimelineItem
	for rows.Next() {
		var (
			kind                                                             string
			role, content, senderName, description, conclusion, task, result sql.NullString
		)
		if err := rows.Scan(&kind, &role, &content, &senderName, &description, &conclusion, &task, &result); err != nil {
			return nil, fmt.Errorf("scan timeline row: %w", err)
		}
		switch kind {
		case kindMessage:
			items = append(items, MessageItem{
				Role:       role.String,
				Content:    content.String,
				SenderName: senderName.String,
			})
		case kindBranchRun:
			items = append(items, BranchRunItem{
				Description: description.String,
				Conclusion:  conclusion.String,
			})
		case kindWorkerRun:
			items = append(items, WorkerRunItem{
				Task:   task.String,
				Result: result.String,
			})
		default:
			return nil, fmt.Errorf("unknown timeline kind %q", kind)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline rows: %w", err)
	}

	// Query returns newest first; callers want chronological order.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
