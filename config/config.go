// Package config defines the QFOS engine's configuration surface
// (spec §6): candidate windows, OptScore weights, session/refiner
// thresholds, embedding backend selection, and cross-validation
// parameters. Loading follows the teacher's eval.Config pattern:
// YAML-first, with defaults filled in after unmarshaling.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/conversem/server-side-query-fan-out-session-reporting/qfoserr"
)

// Weights holds the six OptScore component weights (spec §4.6): they
// need not sum to 1; they are independently tunable.
type Weights struct {
	Alpha float64 `yaml:"alpha" json:"alpha"`     // MIBCS
	Beta  float64 `yaml:"beta" json:"beta"`       // Silhouette
	Gamma float64 `yaml:"gamma" json:"gamma"`     // BPS
	Delta float64 `yaml:"delta" json:"delta"`     // SingletonRate (subtracted)
	Eps   float64 `yaml:"epsilon" json:"epsilon"` // GiantRate (subtracted)
	Zeta  float64 `yaml:"zeta" json:"zeta"`       // ThematicVariance (subtracted)
}

// DefaultWeights returns the spec §4.6 default weights.
func DefaultWeights() Weights {
	return Weights{Alpha: 0.30, Beta: 0.25, Gamma: 0.25, Delta: 0.10, Eps: 0.05, Zeta: 0.05}
}

// Config is the full QFOS engine configuration (spec §6).
type Config struct {
	CandidateWindowsMS []int64 `yaml:"candidate_windows_ms" json:"candidate_windows_ms"`
	OptScoreWeights    Weights `yaml:"opt_score_weights" json:"opt_score_weights"`

	GiantThreshold int `yaml:"giant_threshold" json:"giant_threshold"`
	SingletonSize  int `yaml:"singleton_size" json:"singleton_size"`

	CoherenceFloor      float64 `yaml:"coherence_floor" json:"coherence_floor"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`
	MinSubBundleSize    int     `yaml:"min_sub_bundle_size" json:"min_sub_bundle_size"`
	MinMIBCSImprovement float64 `yaml:"min_mibcs_improvement" json:"min_mibcs_improvement"`
	RefinementEnabled   bool    `yaml:"refinement_enabled" json:"refinement_enabled"`
	IPRefinementEnabled bool    `yaml:"ip_refinement_enabled" json:"ip_refinement_enabled"`

	EmbeddingBackend    string `yaml:"embedding_backend" json:"embedding_backend"`
	MaxIntraBundlePairs int    `yaml:"max_intra_bundle_pairs" json:"max_intra_bundle_pairs"`

	Folds               int   `yaml:"folds" json:"folds"`
	SilhouetteSampleCap int   `yaml:"silhouette_sample_cap" json:"silhouette_sample_cap"`
	Seed                int64 `yaml:"seed" json:"seed"`

	ExcludeProviders []string `yaml:"exclude_providers" json:"exclude_providers"`

	// MaxEvalsPerSecond throttles admission of (window, fold) candidate
	// evaluations into the work pool. Zero disables throttling; the
	// errgroup's concurrency limit is the only admission control.
	MaxEvalsPerSecond float64 `yaml:"max_evals_per_second" json:"max_evals_per_second"`

	// TransformerModelDir points to an ONNX model + tokenizer.json pair
	// when EmbeddingBackend is "transformer". Not part of the spec's
	// enumerated defaults; required only for that backend.
	TransformerModelDir string `yaml:"transformer_model_dir,omitempty" json:"transformer_model_dir,omitempty"`

	// TransformerDimension is the selected ONNX model's output embedding
	// width. Required (and validated) only when EmbeddingBackend is
	// "transformer"; a zero value there would silently emit all-zero
	// rows instead of real sentence vectors.
	TransformerDimension int `yaml:"transformer_dimension,omitempty" json:"transformer_dimension,omitempty"`
}

const (
	EmbeddingBackendTFIDF       = "tfidf"
	EmbeddingBackendTransformer = "transformer"
)

// Default is the spec §6 default configuration.
func Default() Config {
	return Config{
		CandidateWindowsMS: []int64{50, 100, 500, 1000, 3000, 5000},
		OptScoreWeights:    DefaultWeights(),

		GiantThreshold: 50,
		SingletonSize:  1,

		CoherenceFloor:      0.5,
		SimilarityThreshold: 0.5,
		MinSubBundleSize:    2,
		MinMIBCSImprovement: 0.05,
		RefinementEnabled:   true,
		IPRefinementEnabled: false,

		EmbeddingBackend:    EmbeddingBackendTFIDF,
		MaxIntraBundlePairs: 200,

		Folds:               5,
		SilhouetteSampleCap: 5000,
		Seed:                42,

		ExcludeProviders: []string{"Microsoft", "Bing"},
	}
}

// Load reads and parses a YAML config file, filling in any zero-valued
// field with its default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return LoadBytes(data)
}

// LoadBytes parses YAML config bytes, filling in any zero-valued field
// with its default.
func LoadBytes(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults fills any field left zero-valued by a partial override
// document with the corresponding spec §6 default.
func applyDefaults(cfg *Config) {
	def := Default()
	if len(cfg.CandidateWindowsMS) == 0 {
		cfg.CandidateWindowsMS = def.CandidateWindowsMS
	}
	if cfg.OptScoreWeights == (Weights{}) {
		cfg.OptScoreWeights = def.OptScoreWeights
	}
	if cfg.GiantThreshold == 0 {
		cfg.GiantThreshold = def.GiantThreshold
	}
	if cfg.SingletonSize == 0 {
		cfg.SingletonSize = def.SingletonSize
	}
	if cfg.CoherenceFloor == 0 {
		cfg.CoherenceFloor = def.CoherenceFloor
	}
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = def.SimilarityThreshold
	}
	if cfg.MinSubBundleSize == 0 {
		cfg.MinSubBundleSize = def.MinSubBundleSize
	}
	if cfg.MinMIBCSImprovement == 0 {
		cfg.MinMIBCSImprovement = def.MinMIBCSImprovement
	}
	if cfg.EmbeddingBackend == "" {
		cfg.EmbeddingBackend = def.EmbeddingBackend
	}
	if cfg.MaxIntraBundlePairs == 0 {
		cfg.MaxIntraBundlePairs = def.MaxIntraBundlePairs
	}
	if cfg.Folds == 0 {
		cfg.Folds = def.Folds
	}
	if cfg.SilhouetteSampleCap == 0 {
		cfg.SilhouetteSampleCap = def.SilhouetteSampleCap
	}
	if cfg.ExcludeProviders == nil {
		cfg.ExcludeProviders = def.ExcludeProviders
	}
}

// Validate checks every configured value against its spec §7 range,
// returning the first violation found as a *qfoserr.ConfigError.
func (c Config) Validate() error {
	if len(c.CandidateWindowsMS) == 0 {
		return &qfoserr.ConfigError{Field: "candidate_windows_ms", Reason: "must be non-empty"}
	}
	for _, w := range c.CandidateWindowsMS {
		if w <= 0 {
			return &qfoserr.ConfigError{Field: "candidate_windows_ms", Reason: "all windows must be positive"}
		}
	}
	for name, v := range map[string]float64{
		"opt_score_weights.alpha":   c.OptScoreWeights.Alpha,
		"opt_score_weights.beta":    c.OptScoreWeights.Beta,
		"opt_score_weights.gamma":   c.OptScoreWeights.Gamma,
		"opt_score_weights.delta":   c.OptScoreWeights.Delta,
		"opt_score_weights.epsilon": c.OptScoreWeights.Eps,
		"opt_score_weights.zeta":    c.OptScoreWeights.Zeta,
	} {
		if v < 0 {
			return &qfoserr.ConfigError{Field: name, Reason: "weights must be non-negative"}
		}
	}
	if c.GiantThreshold <= 0 {
		return &qfoserr.ConfigError{Field: "giant_threshold", Reason: "must be positive"}
	}
	if c.SingletonSize <= 0 {
		return &qfoserr.ConfigError{Field: "singleton_size", Reason: "must be positive"}
	}
	if c.CoherenceFloor < -1 || c.CoherenceFloor > 1 {
		return &qfoserr.ConfigError{Field: "coherence_floor", Reason: "must be in [-1, 1]"}
	}
	if c.SimilarityThreshold < -1 || c.SimilarityThreshold > 1 {
		return &qfoserr.ConfigError{Field: "similarity_threshold", Reason: "must be in [-1, 1]"}
	}
	if c.MinSubBundleSize <= 0 {
		return &qfoserr.ConfigError{Field: "min_sub_bundle_size", Reason: "must be positive"}
	}
	if c.MinMIBCSImprovement < 0 {
		return &qfoserr.ConfigError{Field: "min_mibcs_improvement", Reason: "must be non-negative"}
	}
	switch c.EmbeddingBackend {
	case EmbeddingBackendTFIDF:
	case EmbeddingBackendTransformer:
		if c.TransformerModelDir == "" {
			return &qfoserr.ConfigError{Field: "transformer_model_dir", Reason: "required when embedding_backend is \"transformer\""}
		}
		if c.TransformerDimension <= 0 {
			return &qfoserr.ConfigError{Field: "transformer_dimension", Reason: "must be positive when embedding_backend is \"transformer\""}
		}
	default:
		return &qfoserr.ConfigError{Field: "embedding_backend", Reason: fmt.Sprintf("unknown backend %q", c.EmbeddingBackend)}
	}
	if c.MaxIntraBundlePairs <= 0 {
		return &qfoserr.ConfigError{Field: "max_intra_bundle_pairs", Reason: "must be positive"}
	}
	if c.Folds <= 0 {
		return &qfoserr.ConfigError{Field: "folds", Reason: "must be positive"}
	}
	if c.SilhouetteSampleCap <= 0 {
		return &qfoserr.ConfigError{Field: "silhouette_sample_cap", Reason: "must be positive"}
	}
	if c.MaxEvalsPerSecond < 0 {
		return &qfoserr.ConfigError{Field: "max_evals_per_second", Reason: "must be non-negative"}
	}
	return nil
}

// ExcludeProviderSet returns ExcludeProviders as a lookup set.
func (c Config) ExcludeProviderSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.ExcludeProviders))
	for _, p := range c.ExcludeProviders {
		set[p] = struct{}{}
	}
	return set
}
