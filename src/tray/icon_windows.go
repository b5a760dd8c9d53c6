//go:build windows

package tray

// platformIcon wraps the PNG in a single-image ICO container, which Vista and
// later accept for PNG-compressed entries.
func platformIcon(pngData []byte) []byte {
	return wrapICO(pngData, iconSize)
}
