package cortex

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"cortexchat/internal/config"
	"cortexchat/internal/models"
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

func insertMessageAt(t *testing.T, db *sql.DB, id, threadID, role, content string, createdAt time.Time) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO cortex_chat_messages (id, thread_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, threadID, role, content, createdAt,
	)
	if err != nil {
		t.Fatalf("insert message: %v", err)
	}
}

func TestSaveMessageRoundTrip(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	store := NewStore(db)
	ctx := context.Background()

	saved, err := store.SaveMessage(ctx, "thread-1", models.RoleUser, "hello", "chan-9")
	if err != nil {
		t.Fatalf("save message: %v", err)
	}
	if saved.ID == "" {
		t.Fatalf("expected generated id")
	}

	messages, err := store.LoadHistory(ctx, "thread-1", 10)
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	got := messages[0]
	if got.ID != saved.ID || got.Role != models.RoleUser || got.Content != "hello" || got.ChannelContext != "chan-9" {
		t.Fatalf("unexpected message: %+v", got)
	}
}

func TestLoadHistoryOrderAndLimit(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	store := NewStore(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	insertMessageAt(t, db, "m1", "thread-1", "user", "first", base)
	insertMessageAt(t, db, "m2", "thread-1", "assistant", "second", base.Add(time.Second))
	insertMessageAt(t, db, "m3", "thread-1", "user", "third", base.Add(2*time.Second))
	insertMessageAt(t, db, "other", "thread-2", "user", "elsewhere", base.Add(time.Hour))

	messages, err := store.LoadHistory(ctx, "thread-1", 2)
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].ID != "m2" || messages[1].ID != "m3" {
		t.Fatalf("expected the two newest in chronological order, got %s, %s", messages[0].ID, messages[1].ID)
	}
}

func TestLoadHistoryBreaksTimestampTiesByInsertion(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	store := NewStore(db)
	ctx := context.Background()

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	insertMessageAt(t, db, "a", "thread-1", "user", "one", at)
	insertMessageAt(t, db, "b", "thread-1", "assistant", "two", at)
	insertMessageAt(t, db, "c", "thread-1", "user", "three", at)

	messages, err := store.LoadHistory(ctx, "thread-1", 10)
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for i, want := range []string{"a", "b", "c"} {
		if messages[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, messages[i].ID)
		}
	}
}

func TestLatestThreadID(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	store := NewStore(db)
	ctx := context.Background()

	threadID, err := store.LatestThreadID(ctx)
	if err != nil {
		t.Fatalf("latest thread on empty store: %v", err)
	}
	if threadID != "" {
		t.Fatalf("expected empty thread id, got %q", threadID)
	}

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	insertMessageAt(t, db, "m1", "thread-old", "user", "old", base)
	insertMessageAt(t, db, "m2", "thread-new", "user", "new", base.Add(time.Minute))

	threadID, err = store.LatestThreadID(ctx)
	if err != nil {
		t.Fatalf("latest thread: %v", err)
	}
	if threadID != "thread-new" {
		t.Fatalf("expected thread-new, got %q", threadID)
	}
}
