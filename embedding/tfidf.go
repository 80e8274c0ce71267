package embedding

import (
	"context"
	"math"
	"sort"

	"github.com/conversem/server-side-query-fan-out-session-reporting/tokenizer"
)

// sparseVector is the per-document intermediate representation before
// densifying into a Matrix row. Adapted from the teacher's
// embeddings.SparseVector (libaf/embeddings/sparse.go): a QFOS
// vocabulary is typically far larger than any single request's token
// set, so accumulating term weights sparsely first avoids allocating
// a full dense row per document during vocabulary construction.
type sparseVector struct {
	Indices []int32
	Values  []float32
}

// TFIDF is the default embedding backend (spec §4.2). The vocabulary,
// document frequencies, and idf weights are built fresh for every
// (window, fold) evaluation pass -- cheap to rebuild, and avoids
// sharing mutable vocabulary state across concurrent optimizer tasks
// (spec §5: "not shared across tasks").
type TFIDF struct{}

// NewTFIDF returns the TF-IDF embedder.
func NewTFIDF() *TFIDF { return &TFIDF{} }

// Capabilities implements Embedder.
func (*TFIDF) Capabilities() Capabilities {
	return Capabilities{Name: "tfidf"}
}

// Embed builds a vocabulary over all given token-sequence documents,
// computes idf per spec §4.2's formula, and returns one L2-normalized
// TF-IDF row per document.
func (*TFIDF) Embed(ctx context.Context, docs [][]string) (*Matrix, error) {
	vocab, df := buildVocabulary(docs)
	n := len(docs)
	idf := make([]float32, len(vocab))
	for term, col := range vocab {
		idf[col] = float32(math.Log((1.0+float64(n))/(1.0+float64(df[term]))) + 1.0)
	}

	m := NewMatrix(n)
	for i, doc := range docs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		sv := vectorize(doc, vocab, idf)
		row := densify(sv, len(vocab))
		m.Zero[i] = normalizeRow(row)
		m.Rows[i] = row
	}
	return m, nil
}

// buildVocabulary assigns a stable column index to every distinct
// token across docs (first-seen order, for determinism) and counts
// document frequency per token.
func buildVocabulary(docs [][]string) (vocab map[string]int32, df map[string]int) {
	vocab = make(map[string]int32)
	df = make(map[string]int)
	for _, doc := range docs {
		for _, t := range tokenizer.Dedup(doc) {
			if _, ok := vocab[t]; !ok {
				vocab[t] = int32(len(vocab))
			}
			df[t]++
		}
	}
	return vocab, df
}

// vectorize computes raw term frequency per document token (including
// repeats, per spec §4.2) weighted by idf, as a sparse vector with
// indices sorted ascending.
func vectorize(doc []string, vocab map[string]int32, idf []float32) sparseVector {
	tf := make(map[int32]float32, len(doc))
	for _, t := range doc {
		col, ok := vocab[t]
		if !ok {
			continue
		}
		tf[col]++
	}
	indices := make([]int32, 0, len(tf))
	for col := range tf {
		indices = append(indices, col)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float32, len(indices))
	for i, col := range indices {
		values[i] = tf[col] * idf[col]
	}
	return sparseVector{Indices: indices, Values: values}
}

func densify(sv sparseVector, dim int) []float32 {
	row := make([]float32, dim)
	for i, col := range sv.Indices {
		row[col] = sv.Values[i]
	}
	return row
}
