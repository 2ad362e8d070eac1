package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	if cfg.App.Name != "AniGen" {
		t.Errorf("App.Name = %q, want AniGen", cfg.App.Name)
	}
	if cfg.Ledger.MonthlyGrant != 9 || cfg.Ledger.GenerationCost != 3 {
		t.Errorf("Ledger = %+v", cfg.Ledger)
	}
	if cfg.Ledger.RenewalPeriod != 720*time.Hour {
		t.Errorf("RenewalPeriod = %v, want 720h", cfg.Ledger.RenewalPeriod)
	}
	if cfg.Audio.SampleRate != 24000 {
		t.Errorf("SampleRate = %d, want 24000", cfg.Audio.SampleRate)
	}
	if cfg.Providers.Speech.Voice != "Kore" {
		t.Errorf("Speech.Voice = %q, want Kore", cfg.Providers.Speech.Voice)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults err = %v", err)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anigen.yaml")
	yaml := `
app:
  name: TestStudio
ledger:
  monthly_grant: 12
store:
  driver: memory
providers:
  gemini:
    api_key: ${ANIGEN_TEST_GEMINI_KEY}
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ANIGEN_TEST_GEMINI_KEY", "secret-key")
	t.Setenv("ANIGEN_LEDGER_GENERATION_COST", "5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	if cfg.App.Name != "TestStudio" || cfg.Ledger.MonthlyGrant != 12 || cfg.Store.Driver != "memory" {
		t.Errorf("file values not applied: %+v %+v %+v", cfg.App, cfg.Ledger, cfg.Store)
	}
	if cfg.Ledger.GenerationCost != 5 {
		t.Errorf("GenerationCost = %d, want 5 from env", cfg.Ledger.GenerationCost)
	}
	if cfg.Providers.Gemini.APIKey != "secret-key" {
		t.Errorf("Gemini.APIKey = %q, want resolved env ref", cfg.Providers.Gemini.APIKey)
	}
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anigen.yaml")
	if err := os.WriteFile(path, []byte("app: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() err = nil, want parse error")
	}
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	base, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero cost", func(c *Config) { c.Ledger.GenerationCost = 0 }, "costs must be positive"},
		{"negative grant", func(c *Config) { c.Ledger.MonthlyGrant = -1 }, "monthly_grant"},
		{"zero sample rate", func(c *Config) { c.Audio.SampleRate = 0 }, "sample_rate"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }, "store.driver"},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = "postgres" }, "dsn"},
		{"unknown describer", func(c *Config) { c.Providers.Describer.Backend = "bard" }, "describer"},
		{"unknown speech", func(c *Config) { c.Providers.Speech.Backend = "espeak" }, "speech"},
		{"stripe without secret", func(c *Config) { c.Billing.Stripe.Enabled = true }, "webhook_secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolveEnvRef(t *testing.T) {
	t.Setenv("ANIGEN_TEST_REF", "value")
	tests := []struct {
		in, want string
	}{
		{"${ANIGEN_TEST_REF}", "value"},
		{"${ANIGEN_TEST_UNSET_REF}", "${ANIGEN_TEST_UNSET_REF}"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := resolveEnvRef(tt.in); got != tt.want {
			t.Errorf("resolveEnvRef(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
