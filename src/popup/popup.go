package popup

import (
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"qr-region-select/src/logutil"
)

const (
	DefaultDuration = 5 * time.Second
	noCodeText      = "No QR code found"
	maxLogText      = 50
)

// Preview is the feedback shown after a capture: the crop as the decoder saw
// it and what came out.
type Preview struct {
	Session string
	Image   *image.NRGBA
	Text    string
	Found   bool
}

// Caption is the text shown under the preview image.
func (p Preview) Caption() string {
	if !p.Found {
		return noCodeText
	}
	return p.Text
}

// Display renders previews.
type Display interface {
	Display(p Preview)
	Close()
}

// Previewer keeps at most one preview on screen. A newer preview replaces the
// older one and each auto-hides after its duration.
type Previewer struct {
	display  Display
	duration time.Duration
	dir      string

	mu      sync.Mutex
	current *Preview
	timer   *time.Timer
	gen     uint64
}

// New returns a previewer. When dir is non-empty every preview image is also
// written there as PNG.
func New(display Display, duration time.Duration, dir string) *Previewer {
	if display == nil {
		display = LogDisplay{}
	}
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Previewer{display: display, duration: duration, dir: dir}
}

// Show replaces the visible preview with p. It returns the path of the saved
// PNG, if any.
func (v *Previewer) Show(p Preview) (string, error) {
	v.mu.Lock()
	if v.current != nil {
		v.display.Close()
	}
	v.gen++
	gen := v.gen
	v.current = &p
	if v.timer != nil {
		v.timer.Stop()
	}
	v.timer = time.AfterFunc(v.duration, func() { v.expire(gen) })
	v.mu.Unlock()

	v.display.Display(p)

	if v.dir == "" || p.Image == nil {
		return "", nil
	}
	path, err := v.save(p)
	if err != nil {
		log.Printf("Popup: failed to save preview: %v", err)
		return "", err
	}
	return path, nil
}

func (v *Previewer) expire(gen uint64) {
	v.mu.Lock()
	if gen != v.gen || v.current == nil {
		v.mu.Unlock()
		return
	}
	v.current = nil
	v.timer = nil
	v.mu.Unlock()
	v.display.Close()
}

// Close hides the current preview, if any.
func (v *Previewer) Close() {
	v.mu.Lock()
	if v.current == nil {
		v.mu.Unlock()
		return
	}
	v.current = nil
	v.gen++
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	v.mu.Unlock()
	v.display.Close()
}

// Current returns the visible preview.
func (v *Previewer) Current() (Preview, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current == nil {
		return Preview{}, false
	}
	return *v.current, true
}

func (v *Previewer) save(p Preview) (string, error) {
	if err := os.MkdirAll(v.dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("preview-%s.png", time.Now().Format("20060102-150405.000"))
	if p.Session != "" {
		name = fmt.Sprintf("preview-%s.png", p.Session)
	}
	path := filepath.Join(v.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, p.Image); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	log.Printf("Popup: preview saved to %s", path)
	return path, nil
}

// LogDisplay writes previews to the log.
type LogDisplay struct{}

func (LogDisplay) Display(p Preview) {
	size := "none"
	if p.Image != nil {
		size = fmt.Sprintf("%dx%d", p.Image.Rect.Dx(), p.Image.Rect.Dy())
	}
	log.Printf("Popup: preview %s (%s): %q", p.Session, size, logutil.Sanitize(p.Caption(), maxLogText))
}

func (LogDisplay) Close() {}

// Displays shows every preview on all of its displays.
type Displays []Display

func (ds Displays) Display(p Preview) {
	for _, d := range ds {
		d.Display(p)
	}
}

func (ds Displays) Close() {
	for _, d := range ds {
		d.Close()
	}
}
