package config

import (
	"github.com/spf13/viper"
)

// LoadWithEnv loads a YAML config file (or just the defaults, when
// path is empty) and overlays a fixed set of QFOS_* environment
// variables on top of it, grounded on the evalaf module's viper
// dependency even though Load/LoadBytes use yaml.v3 directly. The
// overlay belongs to the driver layer: the optimizer itself only ever
// sees the resulting plain Config value, so this is the one place in
// the module that reads the process environment.
func LoadWithEnv(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	v := viper.New()
	v.SetEnvPrefix("QFOS")
	v.AutomaticEnv()
	for _, key := range []string{
		"seed", "folds", "giant_threshold", "coherence_floor",
		"similarity_threshold", "embedding_backend",
		"transformer_model_dir", "transformer_dimension", "max_evals_per_second",
	} {
		_ = v.BindEnv(key)
	}

	if v.IsSet("seed") {
		cfg.Seed = v.GetInt64("seed")
	}
	if v.IsSet("folds") {
		cfg.Folds = v.GetInt("folds")
	}
	if v.IsSet("giant_threshold") {
		cfg.GiantThreshold = v.GetInt("giant_threshold")
	}
	if v.IsSet("coherence_floor") {
		cfg.CoherenceFloor = v.GetFloat64("coherence_floor")
	}
	if v.IsSet("similarity_threshold") {
		cfg.SimilarityThreshold = v.GetFloat64("similarity_threshold")
	}
	if v.IsSet("embedding_backend") {
		cfg.EmbeddingBackend = v.GetString("embedding_backend")
	}
	if v.IsSet("transformer_model_dir") {
		cfg.TransformerModelDir = v.GetString("transformer_model_dir")
	}
	if v.IsSet("transformer_dimension") {
		cfg.TransformerDimension = v.GetInt("transformer_dimension")
	}
	if v.IsSet("max_evals_per_second") {
		cfg.MaxEvalsPerSecond = v.GetFloat64("max_evals_per_second")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
