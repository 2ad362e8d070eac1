package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anigen/anigen/internal/app"
	"github.com/anigen/anigen/internal/domain"
	"github.com/anigen/anigen/internal/ledger"
	"github.com/anigen/anigen/internal/workflow"
)

type stubDescriber struct{}

func (stubDescriber) Name() string { return "stub" }
func (stubDescriber) Describe(context.Context, domain.Params) (string, error) {
	return "Rain on neon streets, a saxophone drifting between towers.", nil
}
func (stubDescriber) Close() error { return nil }

type stubSpeech struct{}

func (stubSpeech) Name() string { return "stub" }
func (stubSpeech) Synthesize(context.Context, string, string) (string, bool, error) {
	// 0.1s of silence at 24 kHz.
	return base64.StdEncoding.EncodeToString(make([]byte, 4800)), true, nil
}
func (stubSpeech) Close() error { return nil }

type env struct {
	config string
	export string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	e := env{
		config: filepath.Join(dir, "anigen.yaml"),
		export: filepath.Join(dir, "exports"),
	}
	yaml := fmt.Sprintf(`app:
  export_dir: %q
  default_account: hikari
store:
  driver: sqlite
  sqlite:
    path: %q
providers:
  describer:
    backend: local
  speech:
    enabled: false
  imager:
    enabled: false
metrics:
  enabled: false
logging:
  level: error
`, e.export, filepath.Join(dir, "anigen.db"))
	if err := os.WriteFile(e.config, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return e
}

func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	opts := &rootOptions{appOptions: app.Options{Describer: stubDescriber{}, Speech: stubSpeech{}}}
	cmd := newRootCmd(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBalance_OpensAccountWithGrant(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "balance", "--format", "json")
	if err != nil {
		t.Fatalf("balance err = %v", err)
	}
	var snap ledger.Snapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if snap.AccountID != "hikari" || snap.Balance != 9 {
		t.Errorf("snapshot = %+v, want hikari with 9", snap)
	}
}

func TestCompose_ChargesUntilRejected(t *testing.T) {
	e := newEnv(t)
	for i, want := range []int64{6, 3, 0} {
		out, err := e.run(t, "compose", "--genre", "Jazz", "--mood", "Epic", "--format", "json")
		if err != nil {
			t.Fatalf("compose #%d err = %v", i+1, err)
		}
		var res composeResult
		if err := json.Unmarshal([]byte(out), &res); err != nil {
			t.Fatalf("decode %q: %v", out, err)
		}
		if res.State != workflow.StateReady || res.Balance != want || !res.HasAudio {
			t.Errorf("compose #%d = %+v, want ready with balance %d", i+1, res, want)
		}
	}

	_, err := e.run(t, "compose")
	if err == nil || !strings.Contains(err.Error(), domain.ErrInsufficientCredits.Error()) {
		t.Errorf("fourth compose err = %v, want insufficient credits", err)
	}

	if _, err := e.run(t, "credit", "3", "--reference", "gift"); err != nil {
		t.Fatalf("credit err = %v", err)
	}
	out, err := e.run(t, "ledger", "--format", "json", "--limit", "1")
	if err != nil {
		t.Fatalf("ledger err = %v", err)
	}
	var entries []ledger.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(entries) != 1 || entries[0].Type != ledger.EntryPurchase || entries[0].BalanceAfter != 3 {
		t.Errorf("latest entry = %+v, want purchase to 3", entries)
	}
}

func TestCompose_InvalidParams(t *testing.T) {
	e := newEnv(t)
	tests := [][]string{
		{"compose", "--genre", "Polka"},
		{"compose", "--duration", "1.25"},
		{"compose", "--duration", "9"},
	}
	for _, args := range tests {
		if _, err := e.run(t, args...); err == nil {
			t.Errorf("%v should fail", args)
		}
	}
	out, err := e.run(t, "balance")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "9 credits") {
		t.Errorf("balance after invalid requests = %q, want 9 credits", out)
	}
}

func TestCompose_ExportSaveAndInspect(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "compose", "--export", "--save", "--format", "json")
	if err != nil {
		t.Fatalf("compose err = %v", err)
	}
	var res composeResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if res.ThemeID == "" {
		t.Error("theme was not saved")
	}
	if !strings.HasPrefix(filepath.Base(res.ExportPath), "AniGen_Synth_Lo-Fi_") {
		t.Errorf("export path = %q", res.ExportPath)
	}

	out, err = e.run(t, "wav", "inspect", res.ExportPath)
	if err != nil {
		t.Fatalf("wav inspect err = %v", err)
	}
	if !strings.Contains(out, "24000 Hz, 1 ch, 16-bit, 2400 frames") {
		t.Errorf("inspect = %q", out)
	}
	if !strings.Contains(out, "Lo-Fi / Chill / Moderate") {
		t.Errorf("inspect missing sidecar: %q", out)
	}

	out, err = e.run(t, "themes", "list")
	if err != nil {
		t.Fatalf("themes list err = %v", err)
	}
	if !strings.Contains(out, res.ThemeID) {
		t.Errorf("themes list = %q, want %s", out, res.ThemeID)
	}
	if _, err := e.run(t, "themes", "rm", res.ThemeID); err != nil {
		t.Fatalf("themes rm err = %v", err)
	}
	if _, err := e.run(t, "themes", "rm", res.ThemeID); err == nil {
		t.Error("second rm should fail")
	}
}

func TestImage_NotConfigured(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "image", "--character", "a fox spirit", "--environment", "bamboo forest")
	if err == nil {
		t.Fatal("image without imager should fail")
	}
	if _, err := e.run(t, "image", "--character", "a fox spirit"); err == nil {
		t.Error("image without environment should fail")
	}
}

func TestPrint_UnknownFormat(t *testing.T) {
	e := newEnv(t)
	if _, err := e.run(t, "balance", "--format", "xml"); err == nil {
		t.Error("unknown format should fail")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	e := newEnv(t)
	t.Setenv("ANIGEN_STORE_DRIVER", "bolt")
	if _, err := e.run(t, "balance"); err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("balance err = %v, want invalid configuration", err)
	}
}
