package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Matching.Variant != VariantDating || cfg.Matching.RecommendThreshold != 70 {
		t.Errorf("unexpected matching defaults %+v", cfg.Matching)
	}
	if cfg.Matching.MaxLimit != 100 || cfg.Matching.CacheTTL != 24*time.Hour {
		t.Errorf("unexpected limits %+v", cfg.Matching)
	}
}

func TestLoadTrainingVariant(t *testing.T) {
	t.Setenv("MATCHING_VARIANT", "Training")
	t.Setenv("MATCHING_CATEGORY_LADDER", "novice, intermediate ,advanced,,elite")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Matching.RecommendThreshold != 60 {
		t.Errorf("threshold = %d, want 60", cfg.Matching.RecommendThreshold)
	}
	want := []string{"novice", "intermediate", "advanced", "elite"}
	if len(cfg.Matching.CategoryLadder) != len(want) {
		t.Fatalf("ladder = %v, want %v", cfg.Matching.CategoryLadder, want)
	}
	for i := range want {
		if cfg.Matching.CategoryLadder[i] != want[i] {
			t.Errorf("ladder[%d] = %q, want %q", i, cfg.Matching.CategoryLadder[i], want[i])
		}
	}
}

func TestLoadWeightsOverride(t *testing.T) {
	t.Setenv("MATCHING_WEIGHTS", `{
		"full": {"astrological": 0.5, "questionnaire": 0.5},
		"questionnaire_only": {"questionnaire": 1},
		"astrological_only": {"astrological": 1},
		"basic": {"interests": 0.5, "traits": 0.5}
	}`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Matching.Weights.Full.Astrological != 0.5 {
		t.Errorf("weights not applied: %+v", cfg.Matching.Weights.Full)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("override should be valid: %v", err)
	}

	t.Setenv("MATCHING_WEIGHTS", `{"full":`)
	if _, err := Load(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("malformed weights: err = %v, want ErrInvalidConfig", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"weights not summing to one", map[string]string{
			"MATCHING_WEIGHTS": `{"full":{"astrological":0.9,"questionnaire":0.9},"questionnaire_only":{"questionnaire":1},"astrological_only":{"astrological":1},"basic":{"age":1}}`,
		}},
		{"unknown variant", map[string]string{"MATCHING_VARIANT": "chess"}},
		{"threshold out of range", map[string]string{"MATCHING_RECOMMEND_THRESHOLD": "101"}},
		{"unparseable int", map[string]string{"MATCHING_CONCURRENCY": "lots"}},
		{"unparseable duration", map[string]string{"MATCHING_CACHE_TTL": "a day"}},
		{"default above max", map[string]string{"MATCHING_DEFAULT_LIMIT": "200"}},
		{"duplicate ladder step", map[string]string{"MATCHING_CATEGORY_LADDER": "a,b,a"}},
		{"bad cache backend", map[string]string{"CACHE_BACKEND": "memcached"}},
		{"default secret in production", map[string]string{"ENVIRONMENT": "production"}},
		{"zero questionnaire groups", map[string]string{"QUESTIONNAIRE_GROUPS": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
