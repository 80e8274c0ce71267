package embedding

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/daulet/tokenizers"
	ort "github.com/yalue/onnxruntime_go"
)

// Transformer is the optional dense-embedding backend
// (embedding_backend: transformer, spec §4.2, §6). It wraps a
// quantized sentence-transformer ONNX model behind the same Embedder
// interface the TF-IDF backend satisfies, so swapping backends never
// touches the bundler, refiner, or optimizer. Grounded on the ONNX
// Runtime + HuggingFace-tokenizer wiring used elsewhere in the
// retrieved corpus for local sentence embedding.
type Transformer struct {
	session   *ort.DynamicAdvancedSession
	tok       *tokenizers.Tokenizer
	dim       int
	maxSeqLen int
}

// TransformerConfig configures the optional transformer backend.
type TransformerConfig struct {
	// ModelDir must contain model.onnx and tokenizer.json.
	ModelDir string
	// Dimension is the model's output embedding dimension.
	Dimension int
	// MaxSeqLen caps token length per input document.
	MaxSeqLen int
	// NumThreads bounds intra-op parallelism; 0 picks min(4, NumCPU).
	NumThreads int
}

// NewTransformer loads the ONNX session and tokenizer from cfg.ModelDir.
func NewTransformer(cfg TransformerConfig) (*Transformer, error) {
	modelPath := filepath.Join(cfg.ModelDir, "model.onnx")
	tokenPath := filepath.Join(cfg.ModelDir, "tokenizer.json")

	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("transformer backend: Dimension must be positive, got %d", cfg.Dimension)
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("transformer backend: model not found at %s: %w", modelPath, err)
	}
	if _, err := os.Stat(tokenPath); err != nil {
		return nil, fmt.Errorf("transformer backend: tokenizer not found at %s: %w", tokenPath, err)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("transformer backend: init onnxruntime: %w", err)
	}

	numThreads := cfg.NumThreads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
		if numThreads > 4 {
			numThreads = 4
		}
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("transformer backend: session options: %w", err)
	}
	defer opts.Destroy()
	if err := opts.SetIntraOpNumThreads(numThreads); err != nil {
		return nil, fmt.Errorf("transformer backend: set intra threads: %w", err)
	}
	if err := opts.SetInterOpNumThreads(1); err != nil {
		return nil, fmt.Errorf("transformer backend: set inter threads: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("transformer backend: create session: %w", err)
	}

	tok, err := tokenizers.FromFile(tokenPath)
	if err != nil {
		session.Destroy()
		return nil, fmt.Errorf("transformer backend: load tokenizer: %w", err)
	}

	maxSeqLen := cfg.MaxSeqLen
	if maxSeqLen <= 0 {
		maxSeqLen = 256
	}

	return &Transformer{
		session:   session,
		tok:       tok,
		dim:       cfg.Dimension,
		maxSeqLen: maxSeqLen,
	}, nil
}

// Close releases the ONNX session and tokenizer.
func (t *Transformer) Close() error {
	if t.session != nil {
		t.session.Destroy()
	}
	if t.tok != nil {
		t.tok.Close()
	}
	return nil
}

// Capabilities implements Embedder.
func (t *Transformer) Capabilities() Capabilities {
	return Capabilities{Name: "transformer", FixedDimension: t.dim}
}

// Embed joins each request's token sequence into a pseudo-sentence
// (tokens were already extracted deterministically by the tokenizer
// package) and runs it through the sentence-transformer model,
// CLS-pooling and L2-normalizing the output per request.
func (t *Transformer) Embed(ctx context.Context, docs [][]string) (*Matrix, error) {
	m := NewMatrix(len(docs))
	for i, doc := range docs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if len(doc) == 0 {
			m.Zero[i] = true
			m.Rows[i] = make([]float32, t.dim)
			continue
		}
		vec, err := t.embedOne(strings.Join(doc, " "))
		if err != nil {
			return nil, fmt.Errorf("transformer backend: embed request %d: %w", i, err)
		}
		m.Zero[i] = normalizeRow(vec)
		m.Rows[i] = vec
	}
	return m, nil
}

func (t *Transformer) embedOne(text string) ([]float32, error) {
	enc := t.tok.EncodeWithOptions(text, true, tokenizers.WithReturnAttentionMask())
	ids := enc.IDs
	if len(ids) > t.maxSeqLen {
		ids = ids[:t.maxSeqLen]
	}
	seqLen := len(ids)
	if seqLen == 0 {
		return make([]float32, t.dim), nil
	}

	flatIDs := make([]int64, seqLen)
	flatMask := make([]int64, seqLen)
	flatType := make([]int64, seqLen)
	for j, v := range ids {
		flatIDs[j] = int64(v)
		flatMask[j] = 1
	}
	if len(enc.AttentionMask) >= seqLen {
		for j := range flatMask {
			flatMask[j] = int64(enc.AttentionMask[j])
		}
	}

	shape := ort.NewShape(1, int64(seqLen))
	idsTensor, err := ort.NewTensor(shape, flatIDs)
	if err != nil {
		return nil, err
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, flatMask)
	if err != nil {
		return nil, err
	}
	defer maskTensor.Destroy()
	typeTensor, err := ort.NewTensor(shape, flatType)
	if err != nil {
		return nil, err
	}
	defer typeTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := t.session.Run([]ort.Value{idsTensor, maskTensor, typeTensor}, outputs); err != nil {
		return nil, err
	}
	defer func() {
		if outputs[0] != nil {
			outputs[0].Destroy()
		}
	}()

	hiddenTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type")
	}
	hidden := hiddenTensor.GetData()

	// CLS token (position 0) as the sentence embedding.
	vec := make([]float32, t.dim)
	copy(vec, hidden[:t.dim])
	return vec, nil
}
