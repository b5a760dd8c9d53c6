//go:build windows

package winpopup

import (
	"fmt"
	"image"
	"log"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

var (
	user32                = windows.NewLazySystemDLL("user32.dll")
	gdi32                 = windows.NewLazySystemDLL("gdi32.dll")
	procDrawText          = user32.NewProc("DrawTextW")
	procFillRect          = user32.NewProc("FillRect")
	procCreateSolidBrush  = gdi32.NewProc("CreateSolidBrush")
	procStretchDIBits     = gdi32.NewProc("StretchDIBits")
	procSetStretchBltMode = gdi32.NewProc("SetStretchBltMode")
)

const (
	wsExNoActivate   = 0x08000000
	swHide           = 0
	swShowNoActivate = 4
	wmUser           = 0x0400
	wmShowPopup      = wmUser + 1
	wmHidePopup      = wmUser + 2
	dtCenter         = 0x00000001
	dtWordBreak      = 0x00000010
	dtNoPrefix       = 0x00000800
	dtEndEllipsis    = 0x00008000
	biRGB            = 0
	dibRGBColors     = 0
	srcCopy          = 0x00CC0020
	colorOnColor     = 3
)

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

var (
	classMu    sync.Mutex
	registered = map[string]bool{}
	wndProc    = syscall.NewCallback(popupWndProc)

	// Window procedures are bare OS callbacks; popups are found by handle.
	handlesMu sync.Mutex
	handles   = map[win.HWND]*Window{}
)

// Canvas is the paint target handed to a Painter.
type Canvas struct {
	hdc    win.HDC
	Bounds image.Rectangle
}

// Painter draws a popup's content. It runs on the popup's UI thread.
type Painter func(c *Canvas)

// Window is one reusable popup. Its window and message loop live on a
// dedicated OS thread started by the first Show.
type Window struct {
	class         string
	width, height int
	corner        Corner

	once sync.Once
	err  error

	mu      sync.Mutex
	hwnd    win.HWND
	painter Painter
}

// New returns a hidden popup of the given size. Nothing is created until Show.
func New(class string, width, height int, corner Corner) *Window {
	return &Window{class: class, width: width, height: height, corner: corner}
}

// Show repaints the popup with p and brings it up without activating it.
func (w *Window) Show(p Painter) error {
	if err := w.start(); err != nil {
		return err
	}
	w.mu.Lock()
	w.painter = p
	hwnd := w.hwnd
	w.mu.Unlock()
	win.PostMessage(hwnd, wmShowPopup, 0, 0)
	return nil
}

// Hide takes the popup off screen. It is a no-op before the first Show.
func (w *Window) Hide() {
	w.mu.Lock()
	hwnd := w.hwnd
	w.mu.Unlock()
	if hwnd != 0 {
		win.PostMessage(hwnd, wmHidePopup, 0, 0)
	}
}

func (w *Window) start() error {
	w.once.Do(func() {
		ready := make(chan error, 1)
		go w.run(ready)
		w.err = <-ready
	})
	return w.err
}

// run owns the popup window for the life of the process.
func (w *Window) run(ready chan<- error) {
	runtime.LockOSThread()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Popup: %s thread panic: %v", w.class, r)
		}
	}()

	if err := registerClass(w.class); err != nil {
		ready <- err
		return
	}

	screen := image.Rect(0, 0, int(win.GetSystemMetrics(win.SM_CXSCREEN)), int(win.GetSystemMetrics(win.SM_CYSCREEN)))
	at := Origin(screen, w.width, w.height, w.corner)
	name := syscall.StringToUTF16Ptr(w.class)
	hwnd := win.CreateWindowEx(
		wsExNoActivate|win.WS_EX_TOPMOST|win.WS_EX_TOOLWINDOW,
		name, name,
		win.WS_POPUP,
		int32(at.X), int32(at.Y), int32(w.width), int32(w.height),
		0, 0, win.GetModuleHandle(nil), nil,
	)
	if hwnd == 0 {
		ready <- fmt.Errorf("failed to create %s window", w.class)
		return
	}
	handlesMu.Lock()
	handles[hwnd] = w
	handlesMu.Unlock()
	w.mu.Lock()
	w.hwnd = hwnd
	w.mu.Unlock()
	log.Printf("Popup: %s window ready at (%d, %d) %dx%d", w.class, at.X, at.Y, w.width, w.height)
	ready <- nil

	var msg win.MSG
	for {
		ret := win.GetMessage(&msg, 0, 0, 0)
		if ret == 0 || ret == -1 {
			break
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}
	log.Printf("Popup: %s message loop exited", w.class)
}

func registerClass(class string) error {
	classMu.Lock()
	defer classMu.Unlock()
	if registered[class] {
		return nil
	}
	wc := win.WNDCLASSEX{
		CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
		LpfnWndProc:   wndProc,
		HInstance:     win.GetModuleHandle(nil),
		HCursor:       win.LoadCursor(0, win.MAKEINTRESOURCE(win.IDC_ARROW)),
		LpszClassName: syscall.StringToUTF16Ptr(class),
	}
	if atom := win.RegisterClassEx(&wc); atom == 0 {
		return fmt.Errorf("failed to register %s window class", class)
	}
	registered[class] = true
	return nil
}

func lookup(hwnd win.HWND) *Window {
	handlesMu.Lock()
	defer handlesMu.Unlock()
	return handles[hwnd]
}

func popupWndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	w := lookup(hwnd)
	if w == nil {
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	}

	switch msg {
	case wmShowPopup:
		win.ShowWindow(hwnd, swShowNoActivate)
		win.InvalidateRect(hwnd, nil, true)
		return 0

	case wmHidePopup, win.WM_LBUTTONDOWN, win.WM_RBUTTONDOWN, win.WM_CLOSE:
		// Clicks dismiss the popup; the window itself is reused.
		win.ShowWindow(hwnd, swHide)
		return 0

	case win.WM_PAINT:
		w.paint(hwnd)
		return 0
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

func (w *Window) paint(hwnd win.HWND) {
	var ps win.PAINTSTRUCT
	hdc := win.BeginPaint(hwnd, &ps)
	defer win.EndPaint(hwnd, &ps)

	w.mu.Lock()
	p := w.painter
	w.mu.Unlock()
	if p == nil {
		return
	}
	var rc win.RECT
	win.GetClientRect(hwnd, &rc)
	p(&Canvas{hdc: hdc, Bounds: image.Rect(int(rc.Left), int(rc.Top), int(rc.Right), int(rc.Bottom))})
}

func toRECT(r image.Rectangle) win.RECT {
	return win.RECT{Left: int32(r.Min.X), Top: int32(r.Min.Y), Right: int32(r.Max.X), Bottom: int32(r.Max.Y)}
}

// Fill paints r with the 0xRRGGBB colour.
func (c *Canvas) Fill(r image.Rectangle, rgb uint32) {
	rc := toRECT(r)
	brush, _, _ := procCreateSolidBrush.Call(uintptr(ColorRef(rgb)))
	if brush == 0 {
		return
	}
	procFillRect.Call(uintptr(c.hdc), uintptr(unsafe.Pointer(&rc)), brush)
	win.DeleteObject(win.HGDIOBJ(brush))
}

// Text draws word-wrapped text inside r.
func (c *Canvas) Text(r image.Rectangle, text string, rgb uint32, center bool) {
	ptr, err := windows.UTF16PtrFromString(strings.ReplaceAll(text, "\x00", " "))
	if err != nil {
		return
	}
	win.SetBkMode(c.hdc, win.TRANSPARENT)
	win.SetTextColor(c.hdc, win.COLORREF(ColorRef(rgb)))
	rc := toRECT(r)
	flags := uintptr(dtWordBreak | dtNoPrefix | dtEndEllipsis)
	if center {
		flags |= dtCenter
	}
	procDrawText.Call(uintptr(c.hdc), uintptr(unsafe.Pointer(ptr)), ^uintptr(0), uintptr(unsafe.Pointer(&rc)), flags)
}

// Image stretches img into dst with nearest-neighbour sampling.
func (c *Canvas) Image(dst image.Rectangle, img *image.NRGBA) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 || dst.Empty() {
		return
	}
	pix := BGRA(img)
	hdr := bitmapInfoHeader{
		Size:        uint32(unsafe.Sizeof(bitmapInfoHeader{})),
		Width:       int32(w),
		Height:      -int32(h),
		Planes:      1,
		BitCount:    32,
		Compression: biRGB,
	}
	procSetStretchBltMode.Call(uintptr(c.hdc), colorOnColor)
	procStretchDIBits.Call(
		uintptr(c.hdc),
		uintptr(dst.Min.X), uintptr(dst.Min.Y), uintptr(dst.Dx()), uintptr(dst.Dy()),
		0, 0, uintptr(w), uintptr(h),
		uintptr(unsafe.Pointer(&pix[0])),
		uintptr(unsafe.Pointer(&hdr)),
		dibRGBColors,
		srcCopy,
	)
	runtime.KeepAlive(pix)
}
