package source

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/conversem/server-side-query-fan-out-session-reporting/request"
)

func TestSlice_Load(t *testing.T) {
	requests := []request.Request{
		{ID: "1", Timestamp: time.Unix(0, 0), Provider: request.ProviderOpenAI},
	}
	s := NewSlice("test", requests)
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("expected passthrough of wrapped requests, got %+v", got)
	}
}

func TestJSONLSource_Load(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "requests-*.jsonl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.Close()

	_, err = f.WriteString(`{"id":"1","timestamp":"2024-01-01T00:00:00Z","provider":"OpenAI"}
{"id":"2","timestamp":"2024-01-01T00:00:01Z","provider":"Anthropic"}
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := NewJSONLSource("test", f.Name())
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(got))
	}
	if got[0].ID != "1" || got[1].ID != "2" {
		t.Errorf("expected ids in file order, got %+v", got)
	}
}
