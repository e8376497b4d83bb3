package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"party-planner/domain"
	"party-planner/storage"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func useSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "party.db")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", path)
	t.Setenv("LOCAL_TZ", "UTC")
	return path
}

func TestResetRequiresYes(t *testing.T) {
	if _, err := runCommand(t, "reset"); err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("expected confirmation error, got %v", err)
	}
}

func TestFeedRejectsBadDate(t *testing.T) {
	if _, err := runCommand(t, "feed", "--date", "June 1"); err == nil {
		t.Fatalf("expected invalid date error")
	}
}

func TestFeedAndResetOnSQLite(t *testing.T) {
	path := useSQLite(t)
	db, err := storage.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store := storage.New(db)
	events := []domain.Event{
		{ID: "e1", Title: "BBQ", Datetime: "2025-06-01T16:00:00.000Z"},
		{ID: "e2", Title: "Cleanup", Datetime: "2025-06-02T10:00:00.000Z"},
	}
	if err := store.Write(context.Background(), storage.KeyEvents, events); err != nil {
		t.Fatalf("seed events: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	out, err := runCommand(t, "feed", "--date", "2025-06-02")
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if !strings.Contains(out, "Cleanup") || strings.Contains(out, "BBQ") {
		t.Fatalf("unexpected feed output %s", out)
	}

	if _, err := runCommand(t, "reset", "--yes"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	out, err = runCommand(t, "feed")
	if err != nil {
		t.Fatalf("feed after reset: %v", err)
	}
	if strings.TrimSpace(out) != "{}" {
		t.Fatalf("expected empty feed after reset, got %s", out)
	}
}

func TestMigrateNeedsSQLite(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")
	if _, err := runCommand(t, "migrate"); err == nil {
		t.Fatalf("expected migrate to refuse non-sqlite backend")
	}
	useSQLite(t)
	if _, err := runCommand(t, "migrate"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}
