//go:build !windows

package popup

// NewScreenDisplay returns a Display that shows nothing; there is no native
// preview window on this platform.
func NewScreenDisplay(size int) Display { return Displays(nil) }
