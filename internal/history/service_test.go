package history

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"cortexchat/internal/config"
	"cortexchat/internal/storage"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return db
}

func TestTimelineRoundTrip(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db)
	ctx := context.Background()

	if err := svc.RecordMessage(ctx, "chan-1", "user", "good morning", "alice"); err != nil {
		t.Fatalf("record message: %v", err)
	}
	if err := svc.RecordBranchRun(ctx, "chan-1", "triage alerts", "nothing urgent"); err != nil {
		t.Fatalf("record branch run: %v", err)
	}
	if err := svc.RecordWorkerRun(ctx, "chan-1", "rotate logs", ""); err != nil {
		t.Fatalf("record worker run: %v", err)
	}
	if err := svc.RecordMessage(ctx, "chan-2", "user", "other channel", ""); err != nil {
		t.Fatalf("record message: %v", err)
	}

	items, err := svc.LoadChannelTimeline(ctx, "chan-1", 10)
	if err != nil {
		t.Fatalf("load timeline: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	msg, ok := items[0].(MessageItem)
	if !ok {
		t.Fatalf("expected MessageItem first, got %T", items[0])
	}
	if msg.Role != "user" || msg.Content != "good morning" || msg.SenderName != "alice" {
		t.Fatalf("unexpected message item: %+v", msg)
	}

	branch, ok := items[1].(BranchRunItem)
	if !ok {
		t.Fatalf("expected BranchRunItem second, got %T", items[1])
	}
	if branch.Description != "triage alerts" || branch.Conclusion != "nothing urgent" {
		t.Fatalf("unexpected branch item: %+v", branch)
	}

	worker, ok := items[2].(WorkerRunItem)
	if !ok {
		t.Fatalf("expected WorkerRunItem third, got %T", items[2])
	}
	if worker.Task != "rotate logs" || worker.Result != "" {
		t.Fatalf("unexpected worker item: %+v", worker)
	}
}

func TestLoadChannelTimelineLimitKeepsNewest(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	for i, content := range []string{"one", "two", "three"} {
		_, err := db.Exec(
			`INSERT INTO channel_timeline (channel_id, kind, role, content, created_at) VALUES (?, 'message', 'user', ?, ?)`,
			"chan-1", content, base.Add(time.Duration(i)*time.Second),
		)
		if err != nil {
			t.Fatalf("insert row: %v", err)
		}
	}

	items, err := svc.LoadChannelTimeline(ctx, "chan-1", 2)
	if err != nil {
		t.Fatalf("load timeline: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	first := items[0].(MessageItem)
	second := items[1].(MessageItem)
	if first.Content != "two" || second.Content != "three" {
		t.Fatalf("expected the newest two chronologically, got %q then %q", first.Content, second.Content)
	}
}

func TestLoadChannelTimelineRejectsUnknownKind(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db)

	_, err := db.Exec(
		`INSERT INTO channel_timeline (channel_id, kind, created_at) VALUES ('chan-1', 'mystery', ?)`,
		time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("insert row: %v", err)
	}
	if _, err := svc.LoadChannelTimeline(context.Background(), "chan-1", 10); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
