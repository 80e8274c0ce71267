package config

import "testing"

func TestLoadWithEnv_OverridesSeedFromEnvironment(t *testing.T) {
	t.Setenv("QFOS_SEED", "7")
	cfg, err := LoadWithEnv("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Seed != 7 {
		t.Errorf("expected env override seed=7, got %d", cfg.Seed)
	}
}

func TestLoadWithEnv_NoEnvLeavesDefaults(t *testing.T) {
	cfg, err := LoadWithEnv("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Seed != Default().Seed {
		t.Errorf("expected default seed unchanged, got %d", cfg.Seed)
	}
}

func TestDefault_PassesValidation(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestLoadBytes_PartialOverrideFillsDefaults(t *testing.T) {
	cfg, err := LoadBytes([]byte(`
giant_threshold: 100
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GiantThreshold != 100 {
		t.Errorf("expected override giant_threshold=100, got %d", cfg.GiantThreshold)
	}
	if len(cfg.CandidateWindowsMS) == 0 {
		t.Errorf("expected default candidate_windows_ms to be filled in")
	}
	if cfg.Folds != 5 {
		t.Errorf("expected default folds=5, got %d", cfg.Folds)
	}
}

func TestValidate_RejectsNegativeWeight(t *testing.T) {
	cfg := Default()
	cfg.OptScoreWeights.Alpha = -0.1
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error for negative weight")
	}
}

func TestValidate_RejectsEmptyCandidateWindows(t *testing.T) {
	cfg := Default()
	cfg.CandidateWindowsMS = nil
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error for empty candidate_windows_ms")
	}
}

func TestValidate_TransformerBackendRequiresModelDir(t *testing.T) {
	cfg := Default()
	cfg.EmbeddingBackend = EmbeddingBackendTransformer
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error when transformer backend has no model dir")
	}
	cfg.TransformerModelDir = "/models/bge-small"
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error when transformer backend has no dimension")
	}
	cfg.TransformerDimension = 384
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config once model dir and dimension are set, got: %v", err)
	}
}

func TestValidate_RejectsUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.EmbeddingBackend = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error for unknown embedding backend")
	}
}

func TestExcludeProviderSet(t *testing.T) {
	cfg := Default()
	set := cfg.ExcludeProviderSet()
	if _, ok := set["Microsoft"]; !ok {
		t.Errorf("expected Microsoft in default exclude set")
	}
	if _, ok := set["OpenAI"]; ok {
		t.Errorf("did not expect OpenAI in default exclude set")
	}
}
