package embedding

import "math"

// Matrix holds one L2-normalized row vector per request. Rows for
// requests whose tokenization was empty are the zero vector and
// marked in Zero; cosine similarity involving them is defined as 0
// (spec §4.2).
type Matrix struct {
	Rows [][]float32
	Zero []bool
}

// NewMatrix allocates a Matrix for n rows.
func NewMatrix(n int) *Matrix {
	return &Matrix{
		Rows: make([][]float32, n),
		Zero: make([]bool, n),
	}
}

// Len returns the number of rows.
func (m *Matrix) Len() int { return len(m.Rows) }

// Cosine returns the cosine similarity between rows i and j. Since
// rows are L2-normalized, this is just the dot product. Returns 0 if
// either row is the zero vector.
func (m *Matrix) Cosine(i, j int) float32 {
	if m.Zero[i] || m.Zero[j] {
		return 0
	}
	return dot(m.Rows[i], m.Rows[j])
}

func dot(a, b []float32) float32 {
	var sum float32
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for k := 0; k < n; k++ {
		sum += a[k] * b[k]
	}
	return sum
}

// normalizeRow L2-normalizes v in place and reports whether the row
// was the zero vector (norm == 0).
func normalizeRow(v []float32) (isZero bool) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return true
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range v {
		v[i] /= norm
	}
	return false
}
