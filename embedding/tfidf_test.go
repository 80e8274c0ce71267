package embedding

import (
	"context"
	"math"
	"testing"
)

func TestTFIDF_RowsAreUnitNorm(t *testing.T) {
	docs := [][]string{
		{"weather", "today", "forecast"},
		{"weather", "tomorrow"},
		{"stocks", "nasdaq"},
	}
	m, err := NewTFIDF().Embed(context.Background(), docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, row := range m.Rows {
		if m.Zero[i] {
			continue
		}
		var sumSq float64
		for _, v := range row {
			sumSq += float64(v) * float64(v)
		}
		norm := math.Sqrt(sumSq)
		if math.Abs(norm-1.0) > 1e-4 {
			t.Errorf("row %d: expected unit norm, got %f", i, norm)
		}
	}
}

func TestTFIDF_EmptyDocIsZeroVector(t *testing.T) {
	docs := [][]string{
		{"weather"},
		{},
	}
	m, err := NewTFIDF().Embed(context.Background(), docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.Zero[1] {
		t.Errorf("expected empty-token document to be flagged zero")
	}
	if m.Cosine(0, 1) != 0 {
		t.Errorf("expected similarity to zero row to be 0")
	}
}

func TestTFIDF_SimilarDocsScoreHigherThanDissimilar(t *testing.T) {
	docs := [][]string{
		{"weather", "forecast", "today"},
		{"weather", "forecast", "tomorrow"},
		{"stocks", "nasdaq", "price"},
	}
	m, err := NewTFIDF().Embed(context.Background(), docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	simWeather := m.Cosine(0, 1)
	simCross := m.Cosine(0, 2)
	if simWeather <= simCross {
		t.Errorf("expected weather docs to be more similar to each other (%f) than to stocks doc (%f)", simWeather, simCross)
	}
}

func TestCosine_BoundedRange(t *testing.T) {
	docs := [][]string{
		{"a", "b", "c"},
		{"a", "b"},
		{"x", "y", "z"},
	}
	m, err := NewTFIDF().Embed(context.Background(), docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < m.Len(); i++ {
		for j := 0; j < m.Len(); j++ {
			sim := m.Cosine(i, j)
			if sim < -1.0001 || sim > 1.0001 {
				t.Errorf("cosine(%d,%d) = %f out of [-1,1]", i, j, sim)
			}
		}
	}
}
