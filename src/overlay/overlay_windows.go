//go:build windows

package overlay

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"qr-region-select/src/geometry"
)

var (
	user32                         = windows.NewLazySystemDLL("user32.dll")
	gdi32                          = windows.NewLazySystemDLL("gdi32.dll")
	procSetLayeredWindowAttributes = user32.NewProc("SetLayeredWindowAttributes")
	procAllowSetForegroundWindow   = user32.NewProc("AllowSetForegroundWindow")
	procGetAsyncKeyState           = user32.NewProc("GetAsyncKeyState")
	procFillRect                   = user32.NewProc("FillRect")
	procCreatePen                  = gdi32.NewProc("CreatePen")
	procCreateSolidBrush           = gdi32.NewProc("CreateSolidBrush")
	procRectangle                  = gdi32.NewProc("Rectangle")
)

const (
	overlayClassName     = "QRSelectOverlay"
	overlayTitle         = "Select QR code - drag to select, ESC cancels"
	overlayHint          = "Click and drag around a QR code   ESC cancel"
	wsExLayered          = 0x00080000
	lwaAlpha             = 0x00000002
	wmMouseHWheel        = 0x020E
	overlayAlpha         = 110
	overlayFill          = 0x202020
	selectionColor       = 0x00FF00
	selectionPenWidth    = 2
	escapePollTimerID    = 1
	escapePollIntervalMs = 25
	teardownTimeout      = 2 * time.Second
)

var (
	registerOnce sync.Once
	registerErr  error

	// The window procedure is a bare OS callback, so the live surface is
	// reached through this variable. Only one overlay exists at a time.
	activeMu sync.Mutex
	active   *windowsSurface
)

type windowsSurface struct {
	bounds image.Rectangle

	mu            sync.Mutex
	hwnd          win.HWND
	sink          func(Input)
	selection     geometry.Rect
	dragging      bool
	escapeWasDown bool
	done          chan struct{}
}

func newPlatformSurface(bounds image.Rectangle) Surface {
	return &windowsSurface{bounds: bounds}
}

func registerClass() error {
	registerOnce.Do(func() {
		cursor := win.LoadCursor(0, win.MAKEINTRESOURCE(win.IDC_CROSS))
		if cursor == 0 {
			log.Printf("OVERLAY: Failed to load cross cursor")
		}
		wc := win.WNDCLASSEX{
			CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
			Style:         win.CS_HREDRAW | win.CS_VREDRAW,
			LpfnWndProc:   syscall.NewCallback(overlayWndProc),
			HInstance:     win.GetModuleHandle(nil),
			HCursor:       cursor,
			LpszClassName: syscall.StringToUTF16Ptr(overlayClassName),
		}
		if atom := win.RegisterClassEx(&wc); atom == 0 {
			registerErr = fmt.Errorf("failed to register overlay window class")
			return
		}
		log.Printf("OVERLAY: Window class registered")
	})
	return registerErr
}

func (s *windowsSurface) Show(ctx context.Context, sink func(Input)) (geometry.Size, error) {
	if err := s.Teardown(); err != nil {
		log.Printf("OVERLAY: previous overlay still open: %v", err)
	}
	if err := registerClass(); err != nil {
		return geometry.Size{}, err
	}

	bounds := s.bounds
	if bounds.Empty() {
		bounds = image.Rect(0, 0, int(win.GetSystemMetrics(win.SM_CXSCREEN)), int(win.GetSystemMetrics(win.SM_CYSCREEN)))
	}

	ready := make(chan error, 1)
	done := make(chan struct{})
	s.mu.Lock()
	s.sink = sink
	s.selection = geometry.Rect{}
	s.dragging = false
	s.escapeWasDown = false
	s.done = done
	s.mu.Unlock()

	go s.run(bounds, ready, done)
	if err := <-ready; err != nil {
		return geometry.Size{}, err
	}
	if err := ctx.Err(); err != nil {
		_ = s.Teardown()
		return geometry.Size{}, err
	}
	log.Printf("OVERLAY: shown over %v", bounds)
	return geometry.Size{Width: bounds.Dx(), Height: bounds.Dy()}, nil
}

// run owns the overlay window and its message loop. The goroutine keeps its OS
// thread locked until exit so the thread is discarded with any leftover
// WM_QUIT instead of being handed to the next overlay.
func (s *windowsSurface) run(bounds image.Rectangle, ready chan<- error, done chan struct{}) {
	runtime.LockOSThread()
	defer close(done)

	setActive(s)
	defer setActive(nil)

	hwnd := win.CreateWindowEx(
		wsExLayered|win.WS_EX_TOPMOST|win.WS_EX_TOOLWINDOW,
		syscall.StringToUTF16Ptr(overlayClassName),
		syscall.StringToUTF16Ptr(overlayTitle),
		win.WS_POPUP|win.WS_VISIBLE,
		int32(bounds.Min.X), int32(bounds.Min.Y), int32(bounds.Dx()), int32(bounds.Dy()),
		0, 0, win.GetModuleHandle(nil), nil,
	)
	if hwnd == 0 {
		log.Printf("OVERLAY: Failed to create overlay window")
		ready <- fmt.Errorf("failed to create overlay window")
		return
	}
	s.mu.Lock()
	s.hwnd = hwnd
	s.mu.Unlock()

	procSetLayeredWindowAttributes.Call(uintptr(hwnd), 0, overlayAlpha, lwaAlpha)
	win.ShowWindow(hwnd, win.SW_SHOW)
	procAllowSetForegroundWindow.Call(uintptr(os.Getpid()))
	if !win.SetForegroundWindow(hwnd) {
		log.Printf("OVERLAY: SetForegroundWindow failed, relying on key polling")
	}
	win.BringWindowToTop(hwnd)
	win.SetFocus(hwnd)
	win.UpdateWindow(hwnd)
	if timerID := win.SetTimer(hwnd, escapePollTimerID, escapePollIntervalMs, 0); timerID == 0 {
		log.Printf("OVERLAY: Failed to start keyboard poll timer")
	}
	ready <- nil

	var msg win.MSG
	for {
		ret := win.GetMessage(&msg, 0, 0, 0)
		if ret == 0 {
			break
		}
		if ret == -1 {
			log.Printf("OVERLAY: GetMessage error")
			break
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}

	s.mu.Lock()
	s.hwnd = 0
	s.sink = nil
	s.mu.Unlock()
	log.Printf("OVERLAY: message loop exited")
}

func (s *windowsSurface) DrawSelection(r geometry.Rect) {
	s.mu.Lock()
	s.selection = r
	hwnd := s.hwnd
	s.mu.Unlock()
	if hwnd != 0 {
		win.InvalidateRect(hwnd, nil, false)
	}
}

func (s *windowsSurface) Teardown() error {
	s.mu.Lock()
	hwnd, done := s.hwnd, s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	if hwnd != 0 {
		win.PostMessage(hwnd, win.WM_CLOSE, 0, 0)
	}
	select {
	case <-done:
		s.mu.Lock()
		if s.done == done {
			s.done = nil
		}
		s.mu.Unlock()
		return nil
	case <-time.After(teardownTimeout):
		return fmt.Errorf("overlay did not close within %v", teardownTimeout)
	}
}

func setActive(s *windowsSurface) {
	activeMu.Lock()
	active = s
	activeMu.Unlock()
}

func current() *windowsSurface {
	activeMu.Lock()
	defer activeMu.Unlock()
	return active
}

func (s *windowsSurface) emit(kind Kind, lParam uintptr) {
	x := int16(win.LOWORD(uint32(lParam)))
	y := int16(win.HIWORD(uint32(lParam)))
	s.deliver(Input{Kind: kind, Point: geometry.Pt(float64(x), float64(y))})
}

func (s *windowsSurface) deliver(in Input) {
	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	if sink != nil {
		sink(in)
	}
}

func overlayWndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	s := current()
	if s == nil {
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	}

	switch msg {
	case win.WM_LBUTTONDOWN:
		win.SetCapture(hwnd)
		s.mu.Lock()
		s.dragging = true
		s.mu.Unlock()
		s.emit(PointerDown, lParam)
		return 0

	case win.WM_MOUSEMOVE:
		s.mu.Lock()
		dragging := s.dragging
		s.mu.Unlock()
		if dragging {
			s.emit(PointerMove, lParam)
		}
		return 0

	case win.WM_LBUTTONUP:
		s.mu.Lock()
		dragging := s.dragging
		s.dragging = false
		s.mu.Unlock()
		if dragging {
			win.ReleaseCapture()
			s.emit(PointerUp, lParam)
		}
		return 0

	case win.WM_MOUSEWHEEL, wmMouseHWheel:
		// Scrolling is locked while the overlay is up.
		return 0

	case win.WM_KEYDOWN:
		if wParam == win.VK_ESCAPE {
			s.mu.Lock()
			s.escapeWasDown = true
			s.mu.Unlock()
			log.Printf("OVERLAY: Escape pressed")
			s.deliver(Input{Kind: Cancel})
		}
		return 0

	case win.WM_KEYUP:
		if wParam == win.VK_ESCAPE {
			s.mu.Lock()
			s.escapeWasDown = false
			s.mu.Unlock()
		}
		return 0

	case win.WM_TIMER:
		if wParam == escapePollTimerID {
			s.pollEscape()
		}
		return 0

	case win.WM_NCHITTEST:
		return uintptr(win.HTCLIENT)

	case win.WM_PAINT:
		s.paint(hwnd)
		return 0

	case win.WM_CLOSE:
		win.DestroyWindow(hwnd)
		return 0

	case win.WM_DESTROY:
		win.KillTimer(hwnd, escapePollTimerID)
		win.PostQuitMessage(0)
		return 0
	}

	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

// pollEscape catches Escape when the overlay failed to take keyboard focus.
func (s *windowsSurface) pollEscape() {
	state, _, _ := procGetAsyncKeyState.Call(uintptr(win.VK_ESCAPE))
	down := uint16(state)&0x8000 != 0
	s.mu.Lock()
	wasDown := s.escapeWasDown
	s.escapeWasDown = down
	s.mu.Unlock()
	if down && !wasDown {
		log.Printf("OVERLAY: Escape detected via async polling")
		s.deliver(Input{Kind: Cancel})
	}
}

func (s *windowsSurface) paint(hwnd win.HWND) {
	var ps win.PAINTSTRUCT
	hdc := win.BeginPaint(hwnd, &ps)
	defer win.EndPaint(hwnd, &ps)

	var client win.RECT
	win.GetClientRect(hwnd, &client)
	brush, _, _ := procCreateSolidBrush.Call(overlayFill)
	procFillRect.Call(uintptr(hdc), uintptr(unsafe.Pointer(&client)), brush)
	win.DeleteObject(win.HGDIOBJ(brush))

	win.SetBkMode(hdc, win.TRANSPARENT)
	win.SetTextColor(hdc, win.COLORREF(0xFFFFFF))
	win.TextOut(hdc, 16, 16, syscall.StringToUTF16Ptr(overlayHint), int32(len(overlayHint)))

	s.mu.Lock()
	sel := s.selection
	s.mu.Unlock()
	if sel.Empty() {
		return
	}
	drawSelectionRectangle(hdc, sel)
}

func drawSelectionRectangle(hdc win.HDC, r geometry.Rect) {
	pen, _, _ := procCreatePen.Call(0, selectionPenWidth, selectionColor)
	oldPen := win.SelectObject(hdc, win.HGDIOBJ(pen))
	oldBrush := win.SelectObject(hdc, win.GetStockObject(win.NULL_BRUSH))

	procRectangle.Call(uintptr(hdc), uintptr(r.X), uintptr(r.Y), uintptr(r.X+r.Width), uintptr(r.Y+r.Height))

	win.SelectObject(hdc, oldPen)
	win.SelectObject(hdc, oldBrush)
	win.DeleteObject(win.HGDIOBJ(pen))
}
