package session

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"qr-region-select/src/clipboard"
	"qr-region-select/src/geometry"
	"qr-region-select/src/singleinstance"
)

var (
	ErrSelectionCancelled = errors.New("selection cancelled")
	ErrNoCode             = errors.New("no QR code found in selection")
)

// State is the controller state a session is in.
type State int

const (
	StateIdle State = iota
	StateActivated
	StateDragging
)

func (s State) String() string {
	switch s {
	case StateActivated:
		return "activated"
	case StateDragging:
		return "dragging"
	default:
		return "idle"
	}
}

// Session is the transient state of one selection, from activation until a
// completed drag or a cancel. It is owned by a single goroutine.
type Session struct {
	ID       uuid.UUID
	Active   bool
	Dragging bool
	Origin   geometry.Point
	Current  geometry.Point
	Viewport geometry.Size
	// Rect is the last rectangle produced for the visible selection.
	Rect    geometry.Rect
	Target  ResultTarget
	Started time.Time
}

// New returns an activated session delivering to target.
func New(target ResultTarget) *Session {
	return &Session{
		ID:      uuid.New(),
		Active:  true,
		Target:  target,
		Started: time.Now(),
	}
}

// State reports the controller state implied by the flags.
func (s *Session) State() State {
	switch {
	case s == nil || !s.Active:
		return StateIdle
	case s.Dragging:
		return StateDragging
	default:
		return StateActivated
	}
}

// Begin anchors a drag at p.
func (s *Session) Begin(p geometry.Point) {
	s.Dragging = true
	s.Origin = p
	s.Current = p
}

// Move records p as the drag's current point and reports whether it changed.
func (s *Session) Move(p geometry.Point) bool {
	if p == s.Current {
		return false
	}
	s.Current = p
	return true
}

// End closes the session. It cannot be reactivated.
func (s *Session) End() {
	s.Active = false
	s.Dragging = false
}

func (s *Session) String() string {
	if s == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s[%s]", s.ID.String()[:8], s.State())
}

// ResultTarget receives the outcome of a session.
type ResultTarget interface {
	OnSuccess(text string) error
	OnFailure(err error) error
}

type ClipboardTarget struct {
	Clipboard clipboard.Writer
}

func (t ClipboardTarget) OnSuccess(text string) error {
	w := t.Clipboard
	if w == nil {
		w = clipboard.System{}
	}
	return w.Write(text)
}

func (ClipboardTarget) OnFailure(err error) error {
	return nil
}

type StdoutTarget struct {
	Writer io.Writer
}

func (t StdoutTarget) OnSuccess(text string) error {
	w := t.Writer
	if w == nil {
		w = os.Stdout
	}
	_, err := fmt.Fprint(w, text)
	return err
}

func (t StdoutTarget) OnFailure(err error) error {
	return nil
}

// DelegatedTarget answers a client that asked the resident instance to run a
// session on its behalf.
type DelegatedTarget struct {
	Conn           singleinstance.Conn
	OutputToStdout bool
	Clipboard      clipboard.Writer
}

func (t DelegatedTarget) OnSuccess(text string) error {
	if t.Conn == nil {
		return errors.New("delegated target missing connection")
	}
	if t.OutputToStdout {
		return t.Conn.RespondSuccess(text)
	}
	w := t.Clipboard
	if w == nil {
		w = clipboard.System{}
	}
	if err := w.Write(text); err != nil {
		return fmt.Errorf("clipboard error: %w", err)
	}
	return t.Conn.RespondSuccess("")
}

func (t DelegatedTarget) OnFailure(err error) error {
	if t.Conn == nil {
		return nil
	}
	if err == nil {
		return t.Conn.RespondError("unknown session error")
	}
	return t.Conn.RespondError(err.Error())
}

// Close releases the client connection once the session has answered.
func (t DelegatedTarget) Close() error {
	if t.Conn == nil {
		return nil
	}
	return t.Conn.Close()
}
