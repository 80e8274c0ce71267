// Package source implements the request source collaborator (spec
// §6): it yields normalized Request records, in arbitrary order, from
// a finite stream. Grounded on the teacher's eval.Dataset (JSONDataset
// loads a fixed slice and serves it through a uniform Load interface).
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/conversem/server-side-query-fan-out-session-reporting/request"
)

// RequestSource yields the full request snapshot for one optimization
// pass. The engine partitions and sorts internally; a source need not
// guarantee any ordering.
type RequestSource interface {
	Name() string
	Load(ctx context.Context) ([]request.Request, error)
}

// Slice is an in-memory RequestSource, used by tests and by callers
// that already have requests loaded.
type Slice struct {
	SourceName string
	Requests   []request.Request
}

// NewSlice wraps requests as a RequestSource.
func NewSlice(name string, requests []request.Request) *Slice {
	return &Slice{SourceName: name, Requests: requests}
}

func (s *Slice) Name() string { return s.SourceName }

func (s *Slice) Load(ctx context.Context) ([]request.Request, error) {
	return s.Requests, nil
}

// JSONLSource reads one JSON-encoded Request per line from a file,
// mirroring the CDN access-log shape described in spec §3.
type JSONLSource struct {
	SourceName string
	Path       string
}

// NewJSONLSource constructs a JSONLSource over path.
func NewJSONLSource(name, path string) *JSONLSource {
	return &JSONLSource{SourceName: name, Path: path}
}

func (s *JSONLSource) Name() string { return s.SourceName }

func (s *JSONLSource) Load(ctx context.Context) ([]request.Request, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", s.Path, err)
	}
	defer f.Close()

	var requests []request.Request
	dec := json.NewDecoder(f)
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var r request.Request
		if err := dec.Decode(&r); err != nil {
			return nil, fmt.Errorf("source: decode %s: %w", s.Path, err)
		}
		requests = append(requests, r)
	}
	return requests, nil
}
