package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"qr-region-select/src/config"
	"qr-region-select/src/eventloop"
	"qr-region-select/src/hotkey"
	"qr-region-select/src/logutil"
	"qr-region-select/src/notification"
	"qr-region-select/src/overlay"
	"qr-region-select/src/popup"
	"qr-region-select/src/runtimeinit"
	"qr-region-select/src/screenshot"
	"qr-region-select/src/session"
	"qr-region-select/src/singleinstance"
	"qr-region-select/src/tray"
)

var errAlreadyRunning = errors.New("resident instance already running")

type mainOptions struct {
	activate   bool
	stdout     bool
	configPath string
	hotkey     string
	previewDir string
}

// activator is the part of singleinstance.Client used for delegation.
type activator interface {
	TryActivate(ctx context.Context, outputToStdout bool) (bool, string, error)
}

func main() {
	// Ensure DPI awareness before creating any windows or querying metrics
	enableDPIAwareness()

	// The tray message loop must own the main OS thread.
	runtime.LockOSThread()

	if err := runWithArgs(normalizeLegacyArgs(os.Args)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"qr-select"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "qr-select",
		Short:         "Select a screen area and decode the QR code inside it",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.stdout && !opts.activate {
				return fmt.Errorf("--stdout requires --activate")
			}
			if opts.activate {
				return runActivate(cmd.Context(), *opts, cmd.OutOrStdout())
			}
			return runResident(*opts)
		},
	}

	cmd.Flags().BoolVar(&opts.activate, "activate", false, "Run one selection (delegated to the resident instance when one is running) and exit")
	cmd.Flags().BoolVar(&opts.stdout, "stdout", false, "With --activate, print the decoded text instead of copying it")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	cmd.Flags().StringVar(&opts.hotkey, "hotkey", "", "Activation hotkey, e.g. Ctrl+Shift+Q")
	cmd.Flags().StringVar(&opts.previewDir, "preview-dir", "", "Directory to save preview PNGs in")

	return cmd
}

func (o mainOptions) loadOptions() config.LoadOptions {
	return config.LoadOptions{
		ConfigPath:         o.configPath,
		HotkeyOverride:     o.hotkey,
		PreviewDirOverride: o.previewDir,
	}
}

var legacyFlags = []string{"activate", "stdout", "config", "hotkey", "preview-dir"}

// normalizeLegacyArgs maps Go-style single-dash long flags to cobra's double-dash form.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range legacyFlags {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "-" + arg
			}
		}
	}

	return normalized
}

func runActivate(ctx context.Context, opts mainOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	// Load .env early so SINGLEINSTANCE_PORT_* are applied before the delegation scan.
	_, _ = config.LoadWithOptions(opts.loadOptions())

	return handleActivateWithDelegation(ctx, singleinstance.NewClient(), opts.stdout, out, func() error {
		return runStandalone(ctx, opts, out)
	})
}

// handleActivateWithDelegation asks a resident instance to run the session and
// falls back to a standalone one when there is none or it cannot be reached.
// An error reported by the resident itself is final.
func handleActivateWithDelegation(ctx context.Context, client activator, stdout bool, out io.Writer, fallback func() error) error {
	delegated, text, err := client.TryActivate(ctx, stdout)
	if err != nil {
		var remote *singleinstance.RemoteError
		if errors.As(err, &remote) {
			return remote
		}
		log.Printf("Delegation error: %v; falling back to standalone", err)
		return fallback()
	}
	if !delegated {
		log.Printf("No resident detected, running standalone")
		return fallback()
	}
	log.Printf("Delegated to resident")
	if stdout {
		_, err := fmt.Fprint(out, text)
		return err
	}
	return nil
}

// oneShotTarget wraps a target and reports the first completion on done.
type oneShotTarget struct {
	inner session.ResultTarget
	once  sync.Once
	done  chan error
}

func newOneShotTarget(inner session.ResultTarget) *oneShotTarget {
	return &oneShotTarget{inner: inner, done: make(chan error, 1)}
}

func (t *oneShotTarget) finish(err error) {
	t.once.Do(func() { t.done <- err })
}

func (t *oneShotTarget) OnSuccess(text string) error {
	err := t.inner.OnSuccess(text)
	if err == nil {
		t.finish(nil)
	}
	return err
}

func (t *oneShotTarget) OnFailure(err error) error {
	ferr := t.inner.OnFailure(err)
	if err == nil {
		err = errors.New("selection failed")
	}
	t.finish(err)
	return ferr
}

// runStandalone runs a single session in this process and waits for its outcome.
func runStandalone(ctx context.Context, opts mainOptions, out io.Writer) error {
	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:      opts.loadOptions(),
		SetupLogging:     logutil.Setup,
		RequireClipboard: !opts.stdout,
	})
	if err != nil {
		return err
	}
	cfg := rt.Config

	bounds, err := screenshot.DisplayBounds(cfg.DisplayIndex)
	if err != nil {
		return fmt.Errorf("failed to resolve display %d: %w", cfg.DisplayIndex, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	previews := newPreviewer(cfg)
	defer previews.Close()
	toast := notification.NewToast(notification.Fanout{
		notification.LogPresenter{},
		notification.NewScreenPresenter(),
	}, cfg.ToastDuration)
	defer toast.Hide()
	loop := eventloop.New(eventloop.Options{
		Surface:     overlay.New(bounds),
		Capturer:    rt.Pipeline,
		Toast:       toast,
		Previews:    previews,
		SettleDelay: cfg.SettleDelay,
		Deadline:    cfg.CaptureDeadline,
	})
	runErr := make(chan error, 1)
	go func() { runErr <- loop.Run(ctx) }()

	var inner session.ResultTarget = session.ClipboardTarget{}
	if opts.stdout {
		inner = session.StdoutTarget{Writer: out}
	}
	target := newOneShotTarget(inner)
	if !loop.Activate(target) {
		return eventloop.ErrBusy
	}

	select {
	case err := <-target.done:
		linger(ctx, lingerDuration(opts.stdout, cfg.ToastDuration))
		return err
	case err := <-runErr:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// lingerDuration is how long a one-shot process stays up after its outcome
// so the final toast can be read. Stdout output is its own feedback.
func lingerDuration(stdout bool, toast time.Duration) time.Duration {
	if stdout {
		return 0
	}
	return toast
}

func linger(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func newPreviewer(cfg *config.Config) *popup.Previewer {
	display := popup.Displays{popup.LogDisplay{}, popup.NewScreenDisplay(cfg.PreviewSize)}
	return popup.New(display, cfg.PreviewDuration, cfg.PreviewDir)
}

// preflight claims the first port of the range to detect a running resident.
func preflight() error {
	startPort, _ := singleinstance.PortRange()
	addr := fmt.Sprintf("127.0.0.1:%d", startPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("Pre-flight: port %d busy, resident already exists", startPort)
		return fmt.Errorf("%w on port %d", errAlreadyRunning, startPort)
	}
	// Release it so the event loop can re-bind.
	_ = listener.Close()
	log.Printf("Pre-flight: port %d free", startPort)
	return nil
}

func runResident(opts mainOptions) error {
	// Load .env early so SINGLEINSTANCE_PORT_* are available for pre-flight
	_, _ = config.LoadWithOptions(opts.loadOptions())
	if err := preflight(); err != nil {
		return err
	}

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:       opts.loadOptions(),
		SetupLogging:      logutil.Setup,
		RequireClipboard:  true,
		ShowBlockingError: true,
	})
	if err != nil {
		return err
	}
	cfg := rt.Config
	logMonitorConfiguration()

	bounds, err := screenshot.DisplayBounds(cfg.DisplayIndex)
	if err != nil {
		return fmt.Errorf("failed to resolve display %d: %w", cfg.DisplayIndex, err)
	}

	log.Printf("QR Select initialized")
	log.Printf("Hotkey: %s", cfg.Hotkey)
	log.Printf("Display %d bounds: %v", cfg.DisplayIndex, bounds)

	defaultTooltip := fmt.Sprintf("%s - Press %s to scan", tray.DefaultTooltip, cfg.Hotkey)
	tray.SetAboutExtra("Hotkey: " + cfg.Hotkey)

	toast := notification.NewToast(notification.Fanout{
		notification.LogPresenter{},
		notification.NewScreenPresenter(),
		tray.TooltipPresenter{Default: defaultTooltip},
	}, cfg.ToastDuration)
	previews := newPreviewer(cfg)
	defer previews.Close()

	loop := eventloop.New(eventloop.Options{
		Surface:        overlay.New(bounds),
		Capturer:       rt.Pipeline,
		Toast:          toast,
		Previews:       previews,
		Server:         singleinstance.NewServer(),
		Tooltip:        tray.UpdateTooltip,
		DefaultTooltip: defaultTooltip,
		SettleDelay:    cfg.SettleDelay,
		Deadline:       cfg.CaptureDeadline,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()

	var loopErr error
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			loopErr = err
			log.Printf("event loop stopped: %v", err)
		}
		tray.Quit()
	}()

	go func() {
		if err := hotkey.Listen(ctx, cfg.Hotkey, func() { loop.Trigger() }); err != nil {
			log.Printf("hotkey listener stopped: %v", err)
		}
	}()

	tray.Run(tray.Menu{
		OnScan: func() { loop.Trigger() },
		OnQuit: cancel,
	}, func() {
		tray.UpdateTooltip(defaultTooltip)
	})

	cancel()
	<-loopDone
	return loopErr
}
