package config

import (
	"math"
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "DB_PATH", "LOG_LEVEL", "JWT_SECRET", "ORACLE_PROVIDER",
		"GEMINI_API_KEY", "GEMINI_MODEL", "GROQ_API_KEY", "GROQ_MODEL",
		"STORE_TIMEOUT", "MAX_CANDIDATES", "SESSION_TTL", "MIN_CONFIDENCE",
		"PLAN_MIN_SAVINGS", "ITEM_MIN_SAVINGS", "ITEM_MIN_SAVINGS_PCT",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("GEMINI_API_KEY", "test-key")
}

func TestNewFromEnv_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv failed: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.OracleProvider != ProviderGemini {
		t.Errorf("OracleProvider = %q, want %q", cfg.OracleProvider, ProviderGemini)
	}
	if cfg.StoreTimeout != 45*time.Second {
		t.Errorf("StoreTimeout = %s, want 45s", cfg.StoreTimeout)
	}
	if cfg.MaxCandidates != 5 {
		t.Errorf("MaxCandidates = %d, want 5", cfg.MaxCandidates)
	}
	if math.Abs(cfg.Thresholds.PlanMinSavings-5.0) > 0.001 {
		t.Errorf("PlanMinSavings = %v, want 5.0", cfg.Thresholds.PlanMinSavings)
	}
	if math.Abs(cfg.Thresholds.ItemMinSavings-0.5) > 0.001 {
		t.Errorf("ItemMinSavings = %v, want 0.5", cfg.Thresholds.ItemMinSavings)
	}
	if math.Abs(cfg.Thresholds.ItemMinSavingsPct-0.1) > 0.001 {
		t.Errorf("ItemMinSavingsPct = %v, want 0.1", cfg.Thresholds.ItemMinSavingsPct)
	}
}

func TestNewFromEnv_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ORACLE_PROVIDER", "GROQ")
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_TIMEOUT", "10s")
	t.Setenv("PLAN_MIN_SAVINGS", "2.5")
	t.Setenv("MIN_CONFIDENCE", "7")

	cfg, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv failed: %v", err)
	}

	if cfg.OracleProvider != ProviderGroq {
		t.Errorf("OracleProvider = %q, want groq", cfg.OracleProvider)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.StoreTimeout != 10*time.Second {
		t.Errorf("StoreTimeout = %s, want 10s", cfg.StoreTimeout)
	}
	if math.Abs(cfg.Thresholds.PlanMinSavings-2.5) > 0.001 {
		t.Errorf("PlanMinSavings = %v, want 2.5", cfg.Thresholds.PlanMinSavings)
	}
	if cfg.Thresholds.MinConfidence != 7 {
		t.Errorf("MinConfidence = %d, want 7", cfg.Thresholds.MinConfidence)
	}
}

func TestNewFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantMsg string
	}{
		{
			name:    "missing gemini key",
			env:     map[string]string{"GEMINI_API_KEY": ""},
			wantMsg: "GEMINI_API_KEY",
		},
		{
			name:    "missing groq key",
			env:     map[string]string{"ORACLE_PROVIDER": "groq"},
			wantMsg: "GROQ_API_KEY",
		},
		{
			name:    "unknown provider",
			env:     map[string]string{"ORACLE_PROVIDER": "crystal-ball"},
			wantMsg: "unknown ORACLE_PROVIDER",
		},
		{
			name:    "bad port",
			env:     map[string]string{"PORT": "eighty"},
			wantMsg: "invalid PORT",
		},
		{
			name:    "bad timeout",
			env:     map[string]string{"STORE_TIMEOUT": "soon"},
			wantMsg: "invalid STORE_TIMEOUT",
		},
		{
			name:    "confidence out of range",
			env:     map[string]string{"MIN_CONFIDENCE": "11"},
			wantMsg: "MIN_CONFIDENCE",
		},
		{
			name:    "negative gate",
			env:     map[string]string{"PLAN_MIN_SAVINGS": "-1"},
			wantMsg: "cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := NewFromEnv()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to mention %q", err.Error(), tt.wantMsg)
			}
		})
	}
}
