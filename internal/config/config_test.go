package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/codepad/internal/language"
)

// Feature: codepad, Property 10: Config merge precedence
func TestConfigMergePrecedence(t *testing.T) {
	nonEmptyString := rapid.StringMatching(`[a-zA-Z0-9/_.-]{1,20}`)

	configGen := rapid.Custom(func(t *rapid.T) *Config {
		cfg := &Config{}
		if rapid.Bool().Draw(t, "hasModel") {
			cfg.Model = nonEmptyString.Draw(t, "model")
		}
		if rapid.Bool().Draw(t, "hasEndpoint") {
			cfg.Endpoint = nonEmptyString.Draw(t, "endpoint")
		}
		if rapid.Bool().Draw(t, "hasAPIKeyEnv") {
			cfg.APIKeyEnv = nonEmptyString.Draw(t, "apiKeyEnv")
		}
		if rapid.Bool().Draw(t, "hasAutoCorrect") {
			v := rapid.Bool().Draw(t, "autoCorrect")
			cfg.AutoCorrect = &v
		}
		if rapid.Bool().Draw(t, "hasLatency") {
			v := rapid.IntRange(0, 5000).Draw(t, "latency")
			cfg.LatencyMS = &v
		}
		return cfg
	})

	rapid.Check(t, func(t *rapid.T) {
		global := configGen.Draw(t, "global")
		project := configGen.Draw(t, "project")

		merged := Merge(global, project)
		defaults := Defaults()

		checkStringField(t, "Model", global.Model, project.Model, defaults.Model, merged.Model)
		checkStringField(t, "Endpoint", global.Endpoint, project.Endpoint, defaults.Endpoint, merged.Endpoint)
		checkStringField(t, "APIKeyEnv", global.APIKeyEnv, project.APIKeyEnv, defaults.APIKeyEnv, merged.APIKeyEnv)

		wantAuto := *defaults.AutoCorrect
		if global.AutoCorrect != nil {
			wantAuto = *global.AutoCorrect
		}
		if project.AutoCorrect != nil {
			wantAuto = *project.AutoCorrect
		}
		if merged.AutoCorrectEnabled() != wantAuto {
			t.Fatalf("AutoCorrect: want %v, got %v", wantAuto, merged.AutoCorrectEnabled())
		}

		wantLatency := *defaults.LatencyMS
		if global.LatencyMS != nil {
			wantLatency = *global.LatencyMS
		}
		if project.LatencyMS != nil {
			wantLatency = *project.LatencyMS
		}
		if merged.Latency() != time.Duration(wantLatency)*time.Millisecond {
			t.Fatalf("Latency: want %dms, got %v", wantLatency, merged.Latency())
		}
	})
}

// checkStringField asserts the merge precedence rule for a single string field:
//   - project non-empty  → merged == project
//   - project empty, global non-empty → merged == global
//   - both empty → merged == defaultVal
func checkStringField(t *rapid.T, name, globalVal, projectVal, defaultVal, mergedVal string) {
	t.Helper()
	switch {
	case projectVal != "":
		if mergedVal != projectVal {
			t.Fatalf("%s: both set — expected project value %q, got %q", name, projectVal, mergedVal)
		}
	case globalVal != "":
		if mergedVal != globalVal {
			t.Fatalf("%s: only global set — expected global value %q, got %q", name, globalVal, mergedVal)
		}
	default:
		if mergedVal != defaultVal {
			t.Fatalf("%s: neither set — expected default %q, got %q", name, defaultVal, mergedVal)
		}
	}
}

func TestDefaultsValues(t *testing.T) {
	d := Defaults()
	if err := d.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if d.Debounce() != 800*time.Millisecond {
		t.Errorf("Debounce: want 800ms, got %v", d.Debounce())
	}
	if d.APIKeyEnv != "GEMINI_API_KEY" {
		t.Errorf("APIKeyEnv: want GEMINI_API_KEY, got %q", d.APIKeyEnv)
	}
	if !d.AutoCorrectEnabled() {
		t.Error("AutoCorrect should default to on")
	}
	if d.ExecutionMode != ModeSimulate {
		t.Errorf("ExecutionMode: want %q, got %q", ModeSimulate, d.ExecutionMode)
	}
}

func TestAPIKeyComesFromEnvironment(t *testing.T) {
	cfg := Defaults()
	cfg.APIKeyEnv = "CODEPAD_TEST_KEY"
	t.Setenv("CODEPAD_TEST_KEY", "  abc123 \n")
	if got := cfg.APIKey(); got != "abc123" {
		t.Fatalf("APIKey: want %q, got %q", "abc123", got)
	}
	t.Setenv("CODEPAD_TEST_KEY", "")
	if got := cfg.APIKey(); got != "" {
		t.Fatalf("APIKey: want empty, got %q", got)
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.ExecutionMode = "docker"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown execution mode")
	}
	cfg = Defaults()
	cfg.DefaultLanguage = "cobol"
	if err := cfg.Validate(); !errors.Is(err, language.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestLoadGlobalMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config, got nil")
	}
	if cfg.Model != Defaults().Model {
		t.Errorf("Model: want %q, got %q", Defaults().Model, cfg.Model)
	}
}

func TestSaveGlobalRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	off := false
	want := &Config{DefaultLanguage: "python", AutoCorrect: &off, ExecutionMode: ModeRemote}
	if err := SaveGlobal(want); err != nil {
		t.Fatalf("SaveGlobal: %v", err)
	}
	got, err := LoadGlobal()
	if err != nil {
		t.Fatalf("LoadGlobal: %v", err)
	}
	if got.DefaultLanguage != "python" || got.AutoCorrectEnabled() || got.ExecutionMode != ModeRemote {
		t.Errorf("round-trip mismatch: %+v", got)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

func TestLoadProjectMissingFileReturnsNil(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadProject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Errorf("expected nil config, got %+v", cfg)
	}
}

func TestLoadProjectTOML(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	data := `default_language = "java"
debounce_ms = 250
auto_correct = false
latency_ms = 0
`
	if err := os.WriteFile(filepath.Join(dir, ProjectFile), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	project, err := LoadProject()
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	merged := Merge(nil, project)
	if lang, _ := merged.Language(); lang != language.Java {
		t.Errorf("Language: want java, got %q", merged.DefaultLanguage)
	}
	if merged.Debounce() != 250*time.Millisecond {
		t.Errorf("Debounce: want 250ms, got %v", merged.Debounce())
	}
	if merged.AutoCorrectEnabled() {
		t.Error("AutoCorrect: want false")
	}
	if merged.Latency() != 0 {
		t.Errorf("Latency: want 0, got %v", merged.Latency())
	}
}

func TestLoadProjectUnknownKey(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ProjectFile), []byte("api_key = \"oops\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadProject()
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "api_key") {
		t.Errorf("error should name the key: %v", err)
	}
}

func TestLoadGlobalParseError(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	cfgDir := filepath.Join(tmp, ".config", "codepad")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.json"), []byte("{invalid json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadGlobal()
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("expected *ParseError, got %T: %v", err, err)
	}
}

func TestRunSetup(t *testing.T) {
	in := strings.NewReader("ruby\npy\nMY_KEY\n\nn\ny\nhttp://runner.local/execute\n500\n")
	var out strings.Builder

	cfg, err := RunSetup(in, &out, nil)
	if err != nil {
		t.Fatalf("RunSetup: %v", err)
	}
	if cfg.DefaultLanguage != string(language.Python) {
		t.Errorf("DefaultLanguage: want python, got %q", cfg.DefaultLanguage)
	}
	if cfg.APIKeyEnv != "MY_KEY" {
		t.Errorf("APIKeyEnv: want MY_KEY, got %q", cfg.APIKeyEnv)
	}
	if cfg.Model != Defaults().Model {
		t.Errorf("Model: want default, got %q", cfg.Model)
	}
	if cfg.AutoCorrectEnabled() {
		t.Error("AutoCorrect: want false")
	}
	if cfg.ExecutionMode != ModeRemote || cfg.ExecutionEndpoint != "http://runner.local/execute" {
		t.Errorf("execution: got %q %q", cfg.ExecutionMode, cfg.ExecutionEndpoint)
	}
	if cfg.DebounceMS != 500 {
		t.Errorf("DebounceMS: want 500, got %d", cfg.DebounceMS)
	}
	if !strings.Contains(out.String(), `unknown language "ruby"`) {
		t.Errorf("expected a retry prompt, got:\n%s", out.String())
	}
}

func TestRunSetupAcceptsDefaultsOnEOF(t *testing.T) {
	cfg, err := RunSetup(strings.NewReader(""), &strings.Builder{}, nil)
	if err != nil {
		t.Fatalf("RunSetup: %v", err)
	}
	if cfg.DefaultLanguage != Defaults().DefaultLanguage || cfg.ExecutionMode != ModeSimulate {
		t.Errorf("unexpected config %+v", cfg)
	}
}
