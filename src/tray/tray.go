package tray

import (
	"log"
	"sync"

	"github.com/getlantern/systray"

	"qr-region-select/src/notification"
)

const DefaultTooltip = "QR Select"

// Menu holds the tray menu callbacks. They run on the tray's click goroutine.
type Menu struct {
	OnScan func()
	OnQuit func()
}

var (
	mu         sync.Mutex
	ready      bool
	aboutItem  *systray.MenuItem
	aboutExtra string
)

// Run shows the tray icon and blocks until Quit. onReady runs once the icon is up.
func Run(menu Menu, onReady func()) {
	systray.Run(func() {
		systray.SetIcon(Icon())
		systray.SetTitle(DefaultTooltip)
		systray.SetTooltip(DefaultTooltip)

		mScan := systray.AddMenuItem("Scan QR code", "Select a screen area and decode the QR code in it")
		systray.AddSeparator()
		mAbout := systray.AddMenuItem("About", "")
		mAbout.Disable()
		mQuit := systray.AddMenuItem("Quit", "Quit the application")

		mu.Lock()
		ready = true
		aboutItem = mAbout
		if aboutExtra != "" {
			mAbout.SetTitle(aboutExtra)
		}
		mu.Unlock()

		go func() {
			for {
				select {
				case <-mScan.ClickedCh:
					log.Printf("tray: scan requested")
					if menu.OnScan != nil {
						menu.OnScan()
					}
				case <-mQuit.ClickedCh:
					log.Printf("tray: quit requested")
					if menu.OnQuit != nil {
						menu.OnQuit()
					}
					systray.Quit()
					return
				}
			}
		}()

		if onReady != nil {
			onReady()
		}
	}, func() {
		mu.Lock()
		ready = false
		aboutItem = nil
		mu.Unlock()
	})
}

// Quit removes the tray icon and makes Run return.
func Quit() {
	systray.Quit()
}

// UpdateTooltip sets the tray tooltip. Calls before the tray is up are ignored.
func UpdateTooltip(text string) {
	mu.Lock()
	defer mu.Unlock()
	if !ready {
		return
	}
	systray.SetTooltip(text)
}

// SetAboutExtra shows text in the disabled About entry.
func SetAboutExtra(text string) {
	mu.Lock()
	defer mu.Unlock()
	aboutExtra = text
	if aboutItem != nil {
		aboutItem.SetTitle(text)
	}
}

// TooltipPresenter shows toasts as the tray tooltip.
type TooltipPresenter struct {
	Default string
}

func (p TooltipPresenter) Present(text string, kind notification.Kind) {
	UpdateTooltip(DefaultTooltip + ": " + text)
}

func (p TooltipPresenter) Dismiss() {
	d := p.Default
	if d == "" {
		d = DefaultTooltip
	}
	UpdateTooltip(d)
}
