//go:build windows

package notification

import (
	"log"
	"unsafe"

	"golang.org/x/sys/windows"

	"qr-region-select/src/winpopup"
)

var (
	user32         = windows.NewLazySystemDLL("user32.dll")
	procMessageBox = user32.NewProc("MessageBoxW")
)

// ShowBlockingError displays a modal, blocking error dialog and returns after user dismisses it.
func ShowBlockingError(title, message string) {
	titlePtr, _ := windows.UTF16PtrFromString(title)
	msgPtr, _ := windows.UTF16PtrFromString(message)
	const MB_OK = 0x00000000
	const MB_ICONERROR = 0x00000010
	const MB_SYSTEMMODAL = 0x00001000
	procMessageBox.Call(0, uintptr(unsafe.Pointer(msgPtr)), uintptr(unsafe.Pointer(titlePtr)), MB_OK|MB_ICONERROR|MB_SYSTEMMODAL)
}

const (
	toastWidth  = 400
	toastHeight = 64
	toastPad    = 12
)

type screenPresenter struct {
	window *winpopup.Window
}

// NewScreenPresenter returns a Presenter that draws the toast in a small
// no-activate popup in the lower-left corner of the primary screen.
func NewScreenPresenter() Presenter {
	return &screenPresenter{window: winpopup.New("QRSelectToast", toastWidth, toastHeight, winpopup.BottomLeft)}
}

func (s *screenPresenter) Present(text string, kind Kind) {
	bg, fg := kind.colors()
	err := s.window.Show(func(c *winpopup.Canvas) {
		c.Fill(c.Bounds, bg)
		c.Text(c.Bounds.Inset(toastPad), text, fg, false)
	})
	if err != nil {
		log.Printf("Toast: failed to show window: %v", err)
	}
}

func (s *screenPresenter) Dismiss() { s.window.Hide() }
