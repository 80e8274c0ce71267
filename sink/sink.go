// Package sink implements the session sink collaborator (spec §6): it
// accepts duplicate-free batches of sessions and the final
// OptScoreReport, with all-or-nothing batch semantics.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/conversem/server-side-query-fan-out-session-reporting/bundler"
)

// SessionSink accepts session batches and the final report produced
// by one optimizer run.
type SessionSink interface {
	WriteSessions(ctx context.Context, sessions []bundler.Session) error
	WriteReport(ctx context.Context, report any) error
}

// Memory is an in-memory SessionSink used by tests and by callers that
// want the sessions and report back as Go values rather than
// serialized.
type Memory struct {
	Sessions []bundler.Session
	Report   any
}

// NewMemory returns an empty in-memory sink.
func NewMemory() *Memory { return &Memory{} }

// WriteSessions appends sessions to the sink, rejecting any batch that
// would introduce a duplicate session id (spec §6: "accepts
// duplicate-free session ids").
func (m *Memory) WriteSessions(ctx context.Context, sessions []bundler.Session) error {
	seen := make(map[string]struct{}, len(m.Sessions))
	for _, s := range m.Sessions {
		seen[s.SessionID] = struct{}{}
	}
	for _, s := range sessions {
		if _, dup := seen[s.SessionID]; dup {
			return fmt.Errorf("sink: duplicate session id %q", s.SessionID)
		}
		seen[s.SessionID] = struct{}{}
	}
	m.Sessions = append(m.Sessions, sessions...)
	return nil
}

func (m *Memory) WriteReport(ctx context.Context, report any) error {
	m.Report = report
	return nil
}

// JSONFile writes sessions and the final report as JSON files under a
// directory, one file per batch write plus a single report.json.
type JSONFile struct {
	Dir      string
	batchNum int
}

// NewJSONFile returns a SessionSink that writes each session batch as
// one JSON array (sessions-NNNN.json) and the report as report.json
// under dir.
func NewJSONFile(dir string) *JSONFile {
	return &JSONFile{Dir: dir}
}

func (f *JSONFile) WriteSessions(ctx context.Context, sessions []bundler.Session) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("sink: mkdir %s: %w", f.Dir, err)
	}
	f.batchNum++
	path := fmt.Sprintf("%s/sessions-%04d.json", f.Dir, f.batchNum)
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("sink: marshal sessions: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("sink: write %s: %w", path, err)
	}
	return nil
}

func (f *JSONFile) WriteReport(ctx context.Context, report any) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("sink: mkdir %s: %w", f.Dir, err)
	}
	path := f.Dir + "/report.json"
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("sink: marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("sink: write %s: %w", path, err)
	}
	return nil
}
