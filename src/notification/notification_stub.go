//go:build !windows

package notification

import "log"

// ShowBlockingError logs a blocking error message on non-Windows platforms.
func ShowBlockingError(title, message string) {
	log.Printf("%s: %s", title, message)
}

// NewScreenPresenter returns a Presenter that shows nothing; there is no
// native toast window on this platform.
func NewScreenPresenter() Presenter { return Fanout(nil) }
