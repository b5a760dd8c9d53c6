package runtimeinit

import (
	"testing"

	"qr-region-select/src/config"
)

func TestBootstrapConfigError(t *testing.T) {
	t.Setenv("QR_SELECT_ENV", "")
	t.Setenv("QR_SELECT_CONFIG", "")
	t.Setenv("CAPTURE_BACKEND", "gdi")

	called := false
	_, err := Bootstrap(Options{SetupLogging: func(bool) { called = true }})
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if called {
		t.Error("logging must not be configured from an invalid config")
	}
}

func TestBootstrapWithoutClipboard(t *testing.T) {
	t.Setenv("QR_SELECT_ENV", "")
	t.Setenv("QR_SELECT_CONFIG", "")
	t.Setenv("CAPTURE_BACKEND", "")
	t.Setenv("ENABLE_FILE_LOGGING", "")

	var logging *bool
	rt, err := Bootstrap(Options{
		LoadOptions:  config.LoadOptions{BackendOverride: "vova616"},
		SetupLogging: func(enabled bool) { logging = &enabled },
	})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if logging == nil || *logging {
		t.Errorf("SetupLogging not called with the configured value")
	}
	if rt.Config.CaptureBackend != "vova616" || rt.Pipeline == nil {
		t.Errorf("runtime = %+v", rt)
	}
}
