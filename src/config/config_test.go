package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var configKeys = []string{
	EnvFileEnvVar, ConfigFileEnvVar,
	"HOTKEY", "ENABLE_FILE_LOGGING", "CAPTURE_BACKEND", "DISPLAY_INDEX",
	"SETTLE_DELAY_MS", "CAPTURE_DEADLINE_SEC", "TOAST_DURATION_MS",
	"PREVIEW_DURATION_MS", "PREVIEW_SIZE", "PREVIEW_DIR",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Hotkey != "Ctrl+Shift+Q" {
		t.Errorf("Expected Hotkey 'Ctrl+Shift+Q', got '%s'", cfg.Hotkey)
	}
	if cfg.CaptureBackend != "kbinani" {
		t.Errorf("Expected backend 'kbinani', got '%s'", cfg.CaptureBackend)
	}
	if cfg.SettleDelay != 50*time.Millisecond || cfg.CaptureDeadline != 10*time.Second {
		t.Errorf("timing defaults = %v, %v", cfg.SettleDelay, cfg.CaptureDeadline)
	}
	if cfg.ToastDuration != 3*time.Second || cfg.PreviewDuration != 5*time.Second {
		t.Errorf("display defaults = %v, %v", cfg.ToastDuration, cfg.PreviewDuration)
	}
	if cfg.PreviewSize != 180 || cfg.EnableFileLogging || cfg.PreviewDir != "" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOTKEY", "Ctrl+Alt+Q")
	t.Setenv("ENABLE_FILE_LOGGING", "TRUE")
	t.Setenv("CAPTURE_BACKEND", "Vova616")
	t.Setenv("DISPLAY_INDEX", "1")
	t.Setenv("SETTLE_DELAY_MS", "120")
	t.Setenv("CAPTURE_DEADLINE_SEC", "4")
	t.Setenv("TOAST_DURATION_MS", "1500")
	t.Setenv("PREVIEW_DURATION_MS", "0")
	t.Setenv("PREVIEW_SIZE", "40")
	t.Setenv("PREVIEW_DIR", "/tmp/previews")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Hotkey != "Ctrl+Alt+Q" || !cfg.EnableFileLogging || cfg.CaptureBackend != "vova616" {
		t.Errorf("string/bool keys not applied: %+v", cfg)
	}
	if cfg.DisplayIndex != 1 || cfg.SettleDelay != 120*time.Millisecond || cfg.CaptureDeadline != 4*time.Second {
		t.Errorf("integer keys not applied: %+v", cfg)
	}
	if cfg.ToastDuration != 1500*time.Millisecond {
		t.Errorf("ToastDuration = %v", cfg.ToastDuration)
	}
	if cfg.PreviewDuration != DefaultPreviewDuration {
		t.Errorf("zero preview duration should keep the default, got %v", cfg.PreviewDuration)
	}
	if cfg.PreviewSize != 100 {
		t.Errorf("PreviewSize = %d, expected clamp to 100", cfg.PreviewSize)
	}
	if cfg.PreviewDir != "/tmp/previews" {
		t.Errorf("PreviewDir = %q", cfg.PreviewDir)
	}
}

func TestPrecedence(t *testing.T) {
	clearEnv(t)
	yamlPath := writeFile(t, "qr.yaml", strings.Join([]string{
		"hotkey: Alt+F9",
		"capture_backend: vova616",
		"settle_delay_ms: 80",
		"preview_size: 150",
		"preview_dir: /from/yaml",
		"enable_file_logging: true",
	}, "\n"))

	// YAML over defaults.
	cfg, err := LoadWithOptions(LoadOptions{ConfigPath: yamlPath})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Hotkey != "Alt+F9" || cfg.CaptureBackend != "vova616" || cfg.SettleDelay != 80*time.Millisecond {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
	if cfg.PreviewSize != 150 || !cfg.EnableFileLogging || cfg.ConfigPath != yamlPath {
		t.Errorf("yaml values not applied: %+v", cfg)
	}

	// Env over YAML, found through QR_SELECT_CONFIG.
	t.Setenv(ConfigFileEnvVar, yamlPath)
	t.Setenv("HOTKEY", "Ctrl+F2")
	t.Setenv("PREVIEW_DIR", "/from/env")
	cfg, err = Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Hotkey != "Ctrl+F2" || cfg.PreviewDir != "/from/env" {
		t.Errorf("env should win over yaml: %+v", cfg)
	}
	if cfg.SettleDelay != 80*time.Millisecond {
		t.Errorf("yaml value lost: %v", cfg.SettleDelay)
	}

	// Overrides over everything.
	cfg, err = LoadWithOptions(LoadOptions{
		HotkeyOverride:     "Ctrl+Shift+Z",
		BackendOverride:    "kbinani",
		PreviewDirOverride: "/from/flag",
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Hotkey != "Ctrl+Shift+Z" || cfg.CaptureBackend != "kbinani" || cfg.PreviewDir != "/from/flag" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestDotenvDoesNotReplaceProcessEnv(t *testing.T) {
	clearEnv(t)
	envPath := writeFile(t, "qr.env", "HOTKEY=Ctrl+Alt+D\nTOAST_DURATION_MS=900\n")
	t.Setenv(EnvFileEnvVar, envPath)
	t.Setenv("HOTKEY", "Ctrl+Alt+P")
	// godotenv treats an empty but present variable as set.
	os.Unsetenv("TOAST_DURATION_MS")
	t.Cleanup(func() { os.Unsetenv("TOAST_DURATION_MS") })

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.EnvPath != envPath {
		t.Skipf("a .env beside the test binary took priority: %s", cfg.EnvPath)
	}
	if cfg.Hotkey != "Ctrl+Alt+P" {
		t.Errorf("process env should win over .env, got %q", cfg.Hotkey)
	}
	if cfg.ToastDuration != 900*time.Millisecond {
		t.Errorf("ToastDuration = %v, expected value from .env", cfg.ToastDuration)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		yaml string
	}{
		{"bad hotkey", map[string]string{"HOTKEY": "Ctrl+Banana"}, ""},
		{"bad backend", map[string]string{"CAPTURE_BACKEND": "gdi"}, ""},
		{"bad integer", map[string]string{"SETTLE_DELAY_MS": "soon"}, ""},
		{"negative display", map[string]string{"DISPLAY_INDEX": "-1"}, ""},
		{"bad yaml", nil, "hotkey: [unterminated"},
		{"missing yaml", map[string]string{ConfigFileEnvVar: "/nonexistent/qr.yaml"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			opts := LoadOptions{}
			if tt.yaml != "" {
				opts.ConfigPath = writeFile(t, "bad.yaml", tt.yaml)
			}
			if _, err := LoadWithOptions(opts); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestBackendKeepsDisplayIndex(t *testing.T) {
	for _, backend := range []string{"kbinani", "vova616"} {
		t.Run(backend, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("CAPTURE_BACKEND", backend)
			t.Setenv("DISPLAY_INDEX", "2")
			cfg, err := Load()
			if err != nil {
				t.Fatal(err)
			}
			if cfg.CaptureBackend != backend || cfg.DisplayIndex != 2 {
				t.Errorf("backend=%q display=%d", cfg.CaptureBackend, cfg.DisplayIndex)
			}
		})
	}
}
