package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"qr-region-select/src/capture"
	"qr-region-select/src/clipboard"
	"qr-region-select/src/geometry"
	"qr-region-select/src/logutil"
	"qr-region-select/src/notification"
	"qr-region-select/src/overlay"
	"qr-region-select/src/popup"
	"qr-region-select/src/session"
	"qr-region-select/src/singleinstance"
	"qr-region-select/src/worker"
)

var (
	ErrClipboard = errors.New("clipboard write failed")
	ErrBusy      = errors.New("busy, please retry")
	errStale     = errors.New("selection superseded by a newer session")
)

const (
	DefaultSettleDelay     = 50 * time.Millisecond
	DefaultCaptureDeadline = 10 * time.Second
	inputBuffer            = 128
	inputStallTimeout      = time.Second
	maxLoggedText          = 40
)

// Notifier shows the single status toast.
type Notifier interface {
	Show(text string, kind notification.Kind)
}

// Previewer shows the capture preview.
type Previewer interface {
	Show(p popup.Preview) (string, error)
}

// Options wires the loop's collaborators. Surface and Capturer are required.
type Options struct {
	Surface   overlay.Surface
	Capturer  worker.Capturer
	Mapper    geometry.Mapper
	Clipboard clipboard.Writer
	Toast     Notifier
	Previews  Previewer
	// Server, when set, is started by Run and its requests become activations.
	Server singleinstance.Server
	// Tooltip receives busy/idle status text, typically tray.UpdateTooltip.
	Tooltip        func(string)
	DefaultTooltip string
	SettleDelay    time.Duration
	Deadline       time.Duration
}

// Loop is the single-goroutine interaction controller. All session state is
// owned by Run; other goroutines talk to it through Activate and Input.
type Loop struct {
	surface        overlay.Surface
	mapper         geometry.Mapper
	pool           *worker.Pool
	clipboard      clipboard.Writer
	toast          Notifier
	previews       Previewer
	srv            singleinstance.Server
	tooltip        func(string)
	defaultTooltip string
	settle         time.Duration
	deadline       time.Duration

	activations chan session.ResultTarget
	inputs      chan overlay.Input
	results     chan result
	done        chan struct{}

	session *session.Session
	pending uuid.UUID
	state   atomic.Int32
}

type result struct {
	job    worker.Job
	out    capture.Outcome
	target session.ResultTarget
}

// New creates a loop. Zero durations select the defaults.
func New(opts Options) *Loop {
	l := &Loop{
		surface:        opts.Surface,
		mapper:         opts.Mapper,
		clipboard:      opts.Clipboard,
		toast:          opts.Toast,
		previews:       opts.Previews,
		srv:            opts.Server,
		tooltip:        opts.Tooltip,
		defaultTooltip: opts.DefaultTooltip,
		settle:         opts.SettleDelay,
		deadline:       opts.Deadline,
		activations:    make(chan session.ResultTarget, 4),
		inputs:         make(chan overlay.Input, inputBuffer),
		results:        make(chan result, 1),
		done:           make(chan struct{}),
	}
	if l.mapper == nil {
		l.mapper = geometry.ViewportMapper{}
	}
	if l.clipboard == nil {
		l.clipboard = clipboard.System{}
	}
	if l.toast == nil {
		l.toast = notification.NewToast(nil, 0)
	}
	if l.settle <= 0 {
		l.settle = DefaultSettleDelay
	}
	if l.deadline <= 0 {
		l.deadline = DefaultCaptureDeadline
	}
	if l.defaultTooltip == "" {
		l.defaultTooltip = "QR Select"
	}
	l.pool = worker.New(1, opts.Capturer)
	return l
}

// State reports the controller state. Safe from any goroutine.
func (l *Loop) State() session.State { return session.State(l.state.Load()) }

// Trigger activates a session that copies its result to the clipboard. It is
// what the hotkey and the tray menu call.
func (l *Loop) Trigger() bool {
	return l.Activate(session.ClipboardTarget{Clipboard: l.clipboard})
}

// Activate requests a new session delivering to target. It never blocks and
// returns false if the request was dropped.
func (l *Loop) Activate(target session.ResultTarget) bool {
	select {
	case l.activations <- target:
		return true
	default:
		log.Printf("eventloop: activation queue full, dropping request")
		return false
	}
}

// Input posts an overlay event into the loop. Pointer moves are dropped when
// the queue is full; other events wait briefly for room.
func (l *Loop) Input(in overlay.Input) {
	select {
	case l.inputs <- in:
		return
	default:
	}
	if in.Kind == overlay.PointerMove {
		log.Printf("eventloop: input queue full, dropping %v", in.Kind)
		return
	}
	select {
	case l.inputs <- in:
	case <-l.done:
	case <-time.After(inputStallTimeout):
		log.Printf("eventloop: input queue stalled, dropping %v", in.Kind)
	}
}

// Run processes activations, overlay input, capture results and, when a
// server is configured, delegated requests. It blocks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer l.pool.Close()
	defer close(l.done)

	var reqCh chan singleinstance.Conn
	if l.srv != nil {
		if err := l.srv.Start(ctx); err != nil {
			return err
		}
		if p := l.srv.Port(); p > 0 {
			log.Printf("eventloop: resident listening on 127.0.0.1:%d", p)
		}
		reqCh = make(chan singleinstance.Conn, 4)
		go func() {
			defer close(reqCh)
			for {
				conn, err := l.srv.Next(ctx)
				if err != nil {
					return
				}
				select {
				case reqCh <- conn:
				case <-ctx.Done():
					_ = conn.Close()
					return
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return ctx.Err()
		case target := <-l.activations:
			l.handleActivate(ctx, target)
		case in := <-l.inputs:
			l.handleInput(ctx, in)
		case res := <-l.results:
			l.handleResult(res)
		case conn, ok := <-reqCh:
			if !ok {
				reqCh = nil
				continue
			}
			l.handleActivate(ctx, session.DelegatedTarget{
				Conn:           conn,
				OutputToStdout: conn.Request().OutputToStdout,
				Clipboard:      l.clipboard,
			})
		}
	}
}

func (l *Loop) setState(s session.State) { l.state.Store(int32(s)) }

func (l *Loop) handleActivate(ctx context.Context, target session.ResultTarget) {
	if prev := l.session; prev != nil {
		log.Printf("eventloop: re-activation resets session %s", prev)
		l.session = nil
		l.setState(session.StateIdle)
		l.closeSession(prev, session.ErrSelectionCancelled)
		if err := l.surface.Teardown(); err != nil {
			log.Printf("eventloop: overlay teardown failed: %v", err)
		}
	}
	if l.pending != uuid.Nil {
		log.Printf("eventloop: invalidating in-flight capture %s", l.pending)
		l.pending = uuid.Nil
	}

	s := session.New(target)
	viewport, err := l.surface.Show(ctx, l.Input)
	if err != nil {
		log.Printf("eventloop: failed to show overlay: %v", err)
		l.toast.Show(notification.MsgCaptureError, notification.Error)
		s.End()
		deliverFailure(target, fmt.Errorf("%w: %v", capture.ErrCapture, err))
		return
	}
	s.Viewport = viewport
	l.session = s
	l.setState(session.StateActivated)
	log.Printf("eventloop: session %s activated, viewport %dx%d", s, viewport.Width, viewport.Height)
	l.toast.Show(notification.MsgActivated, notification.Info)
}

func (l *Loop) handleInput(ctx context.Context, in overlay.Input) {
	s := l.session
	if s == nil {
		return
	}

	switch in.Kind {
	case overlay.Cancel:
		log.Printf("eventloop: session %s cancelled", s)
		l.session = nil
		l.setState(session.StateIdle)
		if err := l.surface.Teardown(); err != nil {
			log.Printf("eventloop: overlay teardown failed: %v", err)
		}
		l.closeSession(s, session.ErrSelectionCancelled)
		l.toast.Show(notification.MsgCancelled, notification.Info)

	case overlay.PointerDown:
		if s.State() != session.StateActivated {
			return
		}
		s.Begin(in.Point)
		l.setState(session.StateDragging)

	case overlay.PointerMove:
		if s.State() != session.StateDragging || !s.Move(in.Point) {
			return
		}
		s.Rect = l.mapper.Normalize(s.Origin, s.Current)
		l.surface.DrawSelection(s.Rect)

	case overlay.PointerUp:
		if s.State() != session.StateDragging {
			return
		}
		if s.Move(in.Point) {
			s.Rect = l.mapper.Normalize(s.Origin, s.Current)
		}
		l.finish(ctx, s)
	}
}

// finish tears the overlay down and only then hands the rectangle to the
// capture worker.
func (l *Loop) finish(ctx context.Context, s *session.Session) {
	rect := s.Rect
	s.End()
	l.session = nil
	l.setState(session.StateIdle)

	if err := l.surface.Teardown(); err != nil {
		log.Printf("eventloop: overlay teardown failed, not capturing: %v", err)
		l.toast.Show(notification.MsgCaptureError, notification.Error)
		l.closeSession(s, fmt.Errorf("%w: %v", capture.ErrCapture, err))
		return
	}

	log.Printf("eventloop: session %s selected %v", s, rect)
	job := worker.Job{
		Session:  s.ID,
		Rect:     rect,
		Viewport: s.Viewport,
		Settle:   l.settle,
		Deadline: l.deadline,
	}
	target := s.Target
	submitted := l.pool.Submit(ctx, job, func(j worker.Job, out capture.Outcome) {
		select {
		case l.results <- result{job: j, out: out, target: target}:
		case <-l.done:
			deliverFailure(target, errStale)
		}
	})
	if !submitted {
		log.Printf("eventloop: capture worker busy, dropping session %s", s)
		l.toast.Show(notification.MsgCaptureError, notification.Error)
		l.closeSession(s, ErrBusy)
		return
	}
	l.pending = s.ID
	l.setTooltip("QR Select: reading...")
	l.toast.Show(notification.MsgReading, notification.Info)
}

func (l *Loop) handleResult(res result) {
	if res.job.Session != l.pending {
		log.Printf("eventloop: dropping stale result for session %s", res.job.Session)
		deliverFailure(res.target, errStale)
		return
	}
	l.pending = uuid.Nil
	l.setTooltip(l.defaultTooltip)

	out := res.out
	log.Printf("eventloop: session %s finished: %v", res.job.Session, out.Status)
	switch out.Status {
	case capture.StatusDecoded:
		log.Printf("eventloop: decoded %q", logutil.Sanitize(out.Result.Text, maxLoggedText))
		if res.target == nil {
			l.toast.Show(notification.MsgCopyFailed, notification.Error)
			break
		}
		if err := res.target.OnSuccess(out.Result.Text); err != nil {
			log.Printf("eventloop: delivery error: %v", err)
			l.toast.Show(notification.MsgCopyFailed, notification.Error)
			_ = res.target.OnFailure(fmt.Errorf("%w: %v", ErrClipboard, err))
			break
		}
		l.toast.Show(notification.MsgCopied, notification.Success)
	case capture.StatusCaptureError:
		log.Printf("eventloop: capture error: %v", out.Err)
		l.toast.Show(notification.MsgCaptureError, notification.Error)
		if res.target != nil {
			_ = res.target.OnFailure(out.Err)
		}
	default:
		if out.Err != nil {
			log.Printf("eventloop: miss: %v", out.Err)
		}
		l.toast.Show(notification.MsgNoCode, notification.Error)
		if res.target != nil {
			_ = res.target.OnFailure(session.ErrNoCode)
		}
	}
	closeTarget(res.target)

	if l.previews != nil && out.Preview != nil {
		_, _ = l.previews.Show(popup.Preview{
			Session: res.job.Session.String(),
			Image:   out.Preview,
			Text:    out.Result.Text,
			Found:   out.Status == capture.StatusDecoded,
		})
	}
}

func (l *Loop) closeSession(s *session.Session, err error) {
	s.End()
	deliverFailure(s.Target, err)
}

func (l *Loop) shutdown() {
	if s := l.session; s != nil {
		l.session = nil
		l.setState(session.StateIdle)
		_ = l.surface.Teardown()
		l.closeSession(s, session.ErrSelectionCancelled)
	}
	if l.srv != nil {
		_ = l.srv.Close()
	}
}

func (l *Loop) setTooltip(text string) {
	if l.tooltip != nil {
		l.tooltip(text)
	}
}

func deliverFailure(target session.ResultTarget, err error) {
	if target == nil {
		return
	}
	_ = target.OnFailure(err)
	closeTarget(target)
}

func closeTarget(target session.ResultTarget) {
	if c, ok := target.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}
