package sink

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/conversem/server-side-query-fan-out-session-reporting/bundler"
)

func TestMemory_RejectsDuplicateSessionID(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	first := []bundler.Session{{SessionID: "p:0:0"}}
	if err := m.WriteSessions(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dup := []bundler.Session{{SessionID: "p:0:0"}}
	if err := m.WriteSessions(ctx, dup); err == nil {
		t.Errorf("expected error on duplicate session id")
	}
}

func TestMemory_AccumulatesBatches(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if err := m.WriteSessions(ctx, []bundler.Session{{SessionID: "a"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.WriteSessions(ctx, []bundler.Session{{SessionID: "b"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Sessions) != 2 {
		t.Errorf("expected 2 accumulated sessions, got %d", len(m.Sessions))
	}
}

func TestJSONFile_WritesSessionsAndReport(t *testing.T) {
	dir := t.TempDir()
	f := NewJSONFile(dir)
	ctx := context.Background()

	if err := f.WriteSessions(ctx, []bundler.Session{{SessionID: "a"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.WriteReport(ctx, map[string]int{"window_ms": 100}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := filepath.Glob(filepath.Join(dir, "sessions-*.json")); err != nil {
		t.Fatalf("unexpected glob error: %v", err)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "sessions-*.json"))
	if err != nil || len(matches) != 1 {
		t.Errorf("expected one sessions file, got %v (err=%v)", matches, err)
	}
}
