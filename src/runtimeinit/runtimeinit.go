package runtimeinit

import (
	"fmt"
	"log"

	"qr-region-select/src/capture"
	"qr-region-select/src/clipboard"
	"qr-region-select/src/config"
	"qr-region-select/src/notification"
	"qr-region-select/src/qrdecode"
	"qr-region-select/src/screenshot"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// RequireClipboard fails startup when the clipboard cannot be opened.
	// Stdout-only runs leave it false.
	RequireClipboard bool
	// ShowBlockingError reports fatal startup problems in a message box.
	ShowBlockingError bool
}

// Runtime is everything a session needs once startup has succeeded.
type Runtime struct {
	Config   *config.Config
	Pipeline *capture.Pipeline
}

func Bootstrap(opts Options) (*Runtime, error) {
	rt, err := bootstrap(opts)
	if err != nil && opts.ShowBlockingError {
		notification.ShowBlockingError("QR Select", fmt.Sprintf("Startup failed: %v", err))
	}
	return rt, err
}

func bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}
	if cfg.EnvPath != "" {
		log.Printf("Loaded environment from %s", cfg.EnvPath)
	}
	if cfg.ConfigPath != "" {
		log.Printf("Loaded config file %s", cfg.ConfigPath)
	}

	screens, err := screenshot.New(cfg.CaptureBackend, cfg.DisplayIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize screenshot backend: %w", err)
	}
	log.Printf("Capture backend %s, display %d", cfg.CaptureBackend, cfg.DisplayIndex)

	if err := clipboard.Init(); err != nil {
		if opts.RequireClipboard {
			return nil, fmt.Errorf("failed to initialize clipboard: %w", err)
		}
		log.Printf("Clipboard unavailable, continuing: %v", err)
	}

	return &Runtime{
		Config:   cfg,
		Pipeline: capture.NewPipeline(screens, qrdecode.NewReader(), cfg.PreviewSize),
	}, nil
}
