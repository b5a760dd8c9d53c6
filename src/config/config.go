package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"qr-region-select/src/capture"
	"qr-region-select/src/hotkey"
	"qr-region-select/src/screenshot"
)

const (
	EnvFileEnvVar    = "QR_SELECT_ENV"
	ConfigFileEnvVar = "QR_SELECT_CONFIG"

	DefaultSettleDelay     = 50 * time.Millisecond
	DefaultCaptureDeadline = 10 * time.Second
	DefaultToastDuration   = 3 * time.Second
	DefaultPreviewDuration = 5 * time.Second
)

type LoadOptions struct {
	// ConfigPath names a YAML file. Empty falls back to QR_SELECT_CONFIG.
	ConfigPath string

	HotkeyOverride     string
	BackendOverride    string
	PreviewDirOverride string
}

type Config struct {
	Hotkey            string
	EnableFileLogging bool
	CaptureBackend    string
	DisplayIndex      int
	SettleDelay       time.Duration
	CaptureDeadline   time.Duration
	ToastDuration     time.Duration
	PreviewDuration   time.Duration
	PreviewSize       int
	PreviewDir        string

	// Sources actually read, for startup logging.
	EnvPath    string
	ConfigPath string
}

// fileConfig mirrors the environment keys in the optional YAML file.
type fileConfig struct {
	Hotkey            *string `yaml:"hotkey"`
	EnableFileLogging *bool   `yaml:"enable_file_logging"`
	CaptureBackend    *string `yaml:"capture_backend"`
	DisplayIndex      *int    `yaml:"display_index"`
	SettleDelayMS     *int    `yaml:"settle_delay_ms"`
	CaptureDeadlineS  *int    `yaml:"capture_deadline_sec"`
	ToastDurationMS   *int    `yaml:"toast_duration_ms"`
	PreviewDurationMS *int    `yaml:"preview_duration_ms"`
	PreviewSize       *int    `yaml:"preview_size"`
	PreviewDir        *string `yaml:"preview_dir"`
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order: overrides, process env (.env never replaces
	// variables already set), YAML file, defaults.
	envPath := resolveEnvPath()
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("reading %s: %w", envPath, err)
		}
	}

	configPath := strings.TrimSpace(opts.ConfigPath)
	if configPath == "" {
		configPath = strings.TrimSpace(os.Getenv(ConfigFileEnvVar))
	}
	file, err := readFileConfig(configPath)
	if err != nil {
		return nil, err
	}

	cfg := defaults()
	cfg.EnvPath = envPath
	cfg.ConfigPath = configPath
	file.apply(cfg)
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyOverrides(cfg, opts)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Hotkey:          hotkey.DefaultCombo,
		CaptureBackend:  screenshot.BackendKbinani,
		SettleDelay:     DefaultSettleDelay,
		CaptureDeadline: DefaultCaptureDeadline,
		ToastDuration:   DefaultToastDuration,
		PreviewDuration: DefaultPreviewDuration,
		PreviewSize:     capture.DefaultPreviewSize,
	}
}

func resolveEnvPath() string {
	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvFileEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func readFileConfig(path string) (*fileConfig, error) {
	fc := &fileConfig{}
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return fc, nil
}

func (fc *fileConfig) apply(cfg *Config) {
	if fc.Hotkey != nil {
		cfg.Hotkey = *fc.Hotkey
	}
	if fc.EnableFileLogging != nil {
		cfg.EnableFileLogging = *fc.EnableFileLogging
	}
	if fc.CaptureBackend != nil {
		cfg.CaptureBackend = *fc.CaptureBackend
	}
	if fc.DisplayIndex != nil {
		cfg.DisplayIndex = *fc.DisplayIndex
	}
	if fc.SettleDelayMS != nil {
		cfg.SettleDelay = time.Duration(*fc.SettleDelayMS) * time.Millisecond
	}
	if fc.CaptureDeadlineS != nil && *fc.CaptureDeadlineS > 0 {
		cfg.CaptureDeadline = time.Duration(*fc.CaptureDeadlineS) * time.Second
	}
	if fc.ToastDurationMS != nil && *fc.ToastDurationMS > 0 {
		cfg.ToastDuration = time.Duration(*fc.ToastDurationMS) * time.Millisecond
	}
	if fc.PreviewDurationMS != nil && *fc.PreviewDurationMS > 0 {
		cfg.PreviewDuration = time.Duration(*fc.PreviewDurationMS) * time.Millisecond
	}
	if fc.PreviewSize != nil {
		cfg.PreviewSize = *fc.PreviewSize
	}
	if fc.PreviewDir != nil {
		cfg.PreviewDir = *fc.PreviewDir
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("HOTKEY"); v != "" {
		cfg.Hotkey = v
	}
	if v := os.Getenv("ENABLE_FILE_LOGGING"); v != "" {
		cfg.EnableFileLogging = strings.ToLower(strings.TrimSpace(v)) == "true"
	}
	if v := os.Getenv("CAPTURE_BACKEND"); v != "" {
		cfg.CaptureBackend = v
	}
	if v := os.Getenv("PREVIEW_DIR"); v != "" {
		cfg.PreviewDir = v
	}

	ints := []struct {
		key   string
		apply func(int)
	}{
		{"DISPLAY_INDEX", func(n int) { cfg.DisplayIndex = n }},
		{"SETTLE_DELAY_MS", func(n int) { cfg.SettleDelay = time.Duration(n) * time.Millisecond }},
		{"CAPTURE_DEADLINE_SEC", func(n int) {
			if n > 0 {
				cfg.CaptureDeadline = time.Duration(n) * time.Second
			}
		}},
		{"TOAST_DURATION_MS", func(n int) {
			if n > 0 {
				cfg.ToastDuration = time.Duration(n) * time.Millisecond
			}
		}},
		{"PREVIEW_DURATION_MS", func(n int) {
			if n > 0 {
				cfg.PreviewDuration = time.Duration(n) * time.Millisecond
			}
		}},
		{"PREVIEW_SIZE", func(n int) { cfg.PreviewSize = n }},
	}
	for _, e := range ints {
		v := strings.TrimSpace(os.Getenv(e.key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", e.key, v)
		}
		e.apply(n)
	}
	return nil
}

func applyOverrides(cfg *Config, opts LoadOptions) {
	if v := strings.TrimSpace(opts.HotkeyOverride); v != "" {
		cfg.Hotkey = v
	}
	if v := strings.TrimSpace(opts.BackendOverride); v != "" {
		cfg.CaptureBackend = v
	}
	if v := strings.TrimSpace(opts.PreviewDirOverride); v != "" {
		cfg.PreviewDir = v
	}
}

func (c *Config) validate() error {
	if _, err := hotkey.Parse(c.Hotkey); err != nil {
		return fmt.Errorf("HOTKEY: %w", err)
	}
	c.CaptureBackend = strings.ToLower(strings.TrimSpace(c.CaptureBackend))
	switch c.CaptureBackend {
	case screenshot.BackendKbinani, screenshot.BackendVova:
	default:
		return fmt.Errorf("CAPTURE_BACKEND: unknown backend %q", c.CaptureBackend)
	}
	if c.DisplayIndex < 0 {
		return fmt.Errorf("DISPLAY_INDEX: must not be negative, got %d", c.DisplayIndex)
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	c.PreviewSize = capture.ClampPreviewSize(c.PreviewSize)
	return nil
}
