package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"HOST", "PORT", "REQUEST_TIMEOUT", "MAX_ANALYSIS_DIM", "ANALYSIS_WORKERS",
		"MAX_DECODE_PIXELS", "FEEDBACK_DIR", "AZURE_STORAGE_ACCOUNT", "AZURE_STORAGE_KEY", "MAX_REQUEST_BODY_SIZE"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.ServerAddress() != "0.0.0.0:8080" {
		t.Errorf("Unexpected address %s", cfg.ServerAddress())
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("Unexpected request timeout %s", cfg.RequestTimeout)
	}
	if cfg.MaxAnalysisDim != 900 {
		t.Errorf("Expected MaxAnalysisDim 900, got %d", cfg.MaxAnalysisDim)
	}
	if cfg.MaxDecodePixels != 40_000_000 {
		t.Errorf("Expected MaxDecodePixels 40000000, got %d", cfg.MaxDecodePixels)
	}
	if cfg.FeedbackDir != "feedback" {
		t.Errorf("Expected feedback dir 'feedback', got %q", cfg.FeedbackDir)
	}
	if cfg.AzureEnabled() {
		t.Error("Expected Azure to be disabled without credentials")
	}
}

func TestLoadFromEnv_AnalysisDimIsClamped(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"1", 16},
		{"512", 512},
		{"100000", 4096},
		{"not-a-number", 900},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("MAX_ANALYSIS_DIM", tt.value)
			cfg, err := LoadFromEnv()
			if err != nil {
				t.Fatal(err)
			}
			if cfg.MaxAnalysisDim != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, cfg.MaxAnalysisDim)
			}
		})
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad port", map[string]string{"PORT": "http"}},
		{"port out of range", map[string]string{"PORT": "70000"}},
		{"zero body size", map[string]string{"MAX_REQUEST_BODY_SIZE": "0"}},
		{"negative workers", map[string]string{"ANALYSIS_WORKERS": "-2"}},
		{"zero decode pixels", map[string]string{"MAX_DECODE_PIXELS": "0"}},
		{"account without key", map[string]string{"AZURE_STORAGE_ACCOUNT": "acct", "AZURE_STORAGE_KEY": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadFromEnv(); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestLoadFromEnv_Azure(t *testing.T) {
	t.Setenv("AZURE_STORAGE_ACCOUNT", "acct")
	t.Setenv("AZURE_STORAGE_KEY", "a2V5")
	t.Setenv("AZURE_FEEDBACK_CONTAINER", "bgs")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.AzureEnabled() || cfg.AzureFeedbackContainer != "bgs" {
		t.Errorf("Unexpected Azure config %+v", cfg)
	}
}
