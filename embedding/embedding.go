// Package embedding implements the QFOS semantic embedder (spec §4.2):
// TF-IDF vectorization with L2-normalized rows, cosine similarity, and
// a pluggable capability set so a dense transformer backend can stand
// in for TF-IDF without the rest of the engine noticing. The interface
// shape is adapted from the teacher's Embedder/EmbedderCapabilities
// (libaf/embeddings), generalized from multi-modal content parts down
// to token-sequence documents, since QFOS embeds tokenized URLs only.
package embedding

import "context"

// Capabilities describes what an Embedder backend supports. Unlike
// the teacher's multi-modal EmbedderCapabilities (MIME types, fusion),
// QFOS embedders are token-sequence-in, dense-vector-out, so the
// capability set is narrower: just whether dimensions are fixed and
// what the default is.
type Capabilities struct {
	// Name identifies the backend ("tfidf", "transformer").
	Name string

	// FixedDimension is the output dimension when the backend has one
	// (e.g. a transformer backend); 0 means the dimension is corpus-
	// dependent (TF-IDF's vocabulary size).
	FixedDimension int
}

// Embedder maps a set of per-request token sequences to L2-normalized
// row vectors. The rest of the engine depends only on this interface
// (spec §4.2: "produces L2-normalized row vectors supporting dot-
// product cosine"), never on a concrete backend.
type Embedder interface {
	Capabilities() Capabilities
	Embed(ctx context.Context, docs [][]string) (*Matrix, error)
}
