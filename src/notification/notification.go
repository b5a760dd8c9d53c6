package notification

import (
	"log"
	"sync"
	"time"
)

// Status messages shown to the user during a selection session.
const (
	MsgActivated    = "QR selection mode activated - Click and drag to select area"
	MsgReading      = "Reading QR code..."
	MsgCopied       = "QR code copied to clipboard!"
	MsgCopyFailed   = "Failed to copy QR code"
	MsgNoCode       = "No QR code found in selection"
	MsgCaptureError = "Error capturing area"
	MsgCancelled    = "Selection mode cancelled"
)

const DefaultToastDuration = 3 * time.Second

// Kind selects the toast's styling.
type Kind int

const (
	Info Kind = iota
	Success
	Error
)

// colors returns the toast background and text colours as 0xRRGGBB.
func (k Kind) colors() (bg, fg uint32) {
	switch k {
	case Success:
		return 0x1B5E20, 0xFFFFFF
	case Error:
		return 0xB71C1C, 0xFFFFFF
	default:
		return 0x263238, 0xFFFFFF
	}
}

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Presenter puts toast text in front of the user.
type Presenter interface {
	Present(text string, kind Kind)
	Dismiss()
}

// Toast is the single reusable status toast. Show reconfigures it in place and
// restarts its auto-hide timer.
type Toast struct {
	presenter Presenter
	duration  time.Duration

	mu      sync.Mutex
	text    string
	kind    Kind
	visible bool
	timer   *time.Timer
	gen     uint64
}

// NewToast returns a hidden toast. A non-positive duration selects DefaultToastDuration.
func NewToast(p Presenter, duration time.Duration) *Toast {
	if p == nil {
		p = LogPresenter{}
	}
	if duration <= 0 {
		duration = DefaultToastDuration
	}
	return &Toast{presenter: p, duration: duration}
}

func (t *Toast) Show(text string, kind Kind) {
	t.mu.Lock()
	t.text = text
	t.kind = kind
	t.visible = true
	t.gen++
	gen := t.gen
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.duration, func() { t.expire(gen) })
	t.mu.Unlock()

	t.presenter.Present(text, kind)
}

// expire hides the toast unless it was reconfigured after the timer started.
func (t *Toast) expire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.visible {
		t.mu.Unlock()
		return
	}
	t.visible = false
	t.timer = nil
	t.mu.Unlock()
	t.presenter.Dismiss()
}

func (t *Toast) Hide() {
	t.mu.Lock()
	if !t.visible {
		t.mu.Unlock()
		return
	}
	t.visible = false
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()
	t.presenter.Dismiss()
}

// Current returns the toast's text and kind and whether it is on screen.
func (t *Toast) Current() (string, Kind, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text, t.kind, t.visible
}

// LogPresenter writes toasts to the log.
type LogPresenter struct{}

func (LogPresenter) Present(text string, kind Kind) {
	log.Printf("Toast [%s]: %s", kind, text)
}

func (LogPresenter) Dismiss() {}

// Fanout presents every toast on all of its presenters.
type Fanout []Presenter

func (f Fanout) Present(text string, kind Kind) {
	for _, p := range f {
		p.Present(text, kind)
	}
}

func (f Fanout) Dismiss() {
	for _, p := range f {
		p.Dismiss()
	}
}
