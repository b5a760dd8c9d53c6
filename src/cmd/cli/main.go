package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"qr-region-select/src/capture"
	"qr-region-select/src/config"
	"qr-region-select/src/geometry"
	"qr-region-select/src/qrdecode"
	"qr-region-select/src/screenshot"
	"qr-region-select/src/session"
)

const (
	maxFileSizeMB = 25
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

type cliOptions struct {
	filePath      string
	rect          string
	viewportWidth int
	jsonOutput    bool
	previewPath   string
	verbose       bool
	configPath    string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args), os.Stdin, os.Stdout, os.Stderr)
}

func runWithArgs(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		args = []string{"qr-tool"}
	}

	opts := &cliOptions{stdin: stdin, stdout: stdout, stderr: stderr}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "qr-tool",
		Short:         "Decode a QR code from a region of a saved screenshot",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd.Context(), *opts)
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to a PNG/JPEG/BMP/WebP screenshot (use '-' for stdin)")
	cmd.Flags().StringVar(&opts.rect, "rect", "", "Selection as x,y,width,height in viewport pixels (default: whole viewport)")
	cmd.Flags().IntVar(&opts.viewportWidth, "viewport-width", 0, "Viewport width the selection is expressed in (default: image width)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().StringVar(&opts.previewPath, "preview", "", "Write the preview PNG to this path")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

var legacyFlags = []string{"file", "rect", "viewport-width", "json", "preview", "verbose", "config"}

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

// parseRect reads "x,y,width,height".
func parseRect(s string) (geometry.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geometry.Rect{}, fmt.Errorf("rect %q: expected x,y,width,height", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return geometry.Rect{}, fmt.Errorf("rect %q: %w", s, err)
		}
		v[i] = n
	}
	if v[2] < 0 || v[3] < 0 {
		return geometry.Rect{}, fmt.Errorf("rect %q: negative size", s)
	}
	return geometry.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

func runWithOptions(ctx context.Context, opts cliOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	verbosef := func(format string, args ...any) {
		if opts.verbose {
			fmt.Fprintf(opts.stderr, "[verbose] "+format+"\n", args...)
		}
	}
	// Configure logging BEFORE any other operations.
	if opts.verbose {
		log.SetOutput(opts.stderr)
	} else {
		log.SetOutput(io.Discard)
	}
	verbosef("Starting QR tool")

	cfg, err := config.LoadWithOptions(config.LoadOptions{ConfigPath: opts.configPath})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	verbosef("Config loaded: preview size %d, deadline %v", cfg.PreviewSize, cfg.CaptureDeadline)

	src := &screenshot.File{Path: opts.filePath, Stdin: opts.stdin}
	data, err := src.CaptureViewport(ctx)
	if err != nil {
		return err
	}
	width, height, format, err := validateImage(data)
	if err != nil {
		return err
	}
	verbosef("Read %d bytes, %s %dx%d", len(data), format, width, height)

	viewport := geometry.Size{Width: width, Height: height}
	if opts.viewportWidth > 0 {
		viewport = geometry.Size{
			Width:  opts.viewportWidth,
			Height: int(float64(height)*float64(opts.viewportWidth)/float64(width) + 0.5),
		}
	}
	rect := geometry.Rect{Width: viewport.Width, Height: viewport.Height}
	if opts.rect != "" {
		if rect, err = parseRect(opts.rect); err != nil {
			return err
		}
	}
	verbosef("Selection %v in viewport %dx%d", rect, viewport.Width, viewport.Height)

	ctx, cancel := context.WithTimeout(ctx, cfg.CaptureDeadline)
	defer cancel()

	pipeline := capture.NewPipeline(src, qrdecode.NewReader(), cfg.PreviewSize)
	start := time.Now()
	out := pipeline.Capture(ctx, rect, viewport)
	elapsed := time.Since(start)
	verbosef("Capture finished in %v: %v", elapsed, out.Status)

	if opts.previewPath != "" && out.Preview != nil {
		if err := writePreview(opts.previewPath, out.Preview); err != nil {
			return err
		}
		verbosef("Preview written to %s", opts.previewPath)
	}

	if err := outputResult(opts.stdout, out, opts.filePath, elapsed, opts.jsonOutput); err != nil {
		return err
	}

	switch out.Status {
	case capture.StatusDecoded:
		return nil
	case capture.StatusCaptureError:
		return out.Err
	default:
		if out.Err != nil {
			return fmt.Errorf("%w: %v", session.ErrNoCode, out.Err)
		}
		return session.ErrNoCode
	}
}

// validateImage checks size limits and that the data is a registered image format.
func validateImage(data []byte) (int, int, string, error) {
	if len(data) == 0 {
		return 0, 0, "", errors.New("input file is empty")
	}
	if len(data) > maxFileSize {
		return 0, 0, "", fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", fmt.Errorf("input is not a supported image: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return 0, 0, "", errors.New("input image has no pixels")
	}
	return cfg.Width, cfg.Height, format, nil
}

func writePreview(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create preview: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	return f.Close()
}

type QRResult struct {
	Status    string           `json:"status"`
	Text      string           `json:"text,omitempty"`
	Polygon   []geometry.Point `json:"polygon,omitempty"`
	Scale     float64          `json:"scale"`
	Crop      [4]int           `json:"crop"`
	Error     string           `json:"error,omitempty"`
	Source    string           `json:"source"`
	Timestamp string           `json:"timestamp"`
	Duration  float64          `json:"duration_seconds"`
}

func outputResult(w io.Writer, out capture.Outcome, sourcePath string, elapsed time.Duration, jsonOutput bool) error {
	if !jsonOutput {
		if out.Status == capture.StatusDecoded {
			fmt.Fprint(w, out.Result.Text)
		}
		return nil
	}

	result := QRResult{
		Status:    out.Status.String(),
		Text:      out.Result.Text,
		Polygon:   out.Result.Polygon,
		Scale:     out.Scale,
		Crop:      [4]int{out.Crop.Min.X, out.Crop.Min.Y, out.Crop.Dx(), out.Crop.Dy()},
		Source:    sourcePath,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Duration:  elapsed.Seconds(),
	}
	if out.Err != nil {
		result.Error = out.Err.Error()
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}
