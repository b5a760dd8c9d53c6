package tray

import "encoding/binary"

const icoHeaderSize = 6 + 16

// wrapICO builds an ICO file holding one PNG-compressed image of size x size.
func wrapICO(pngData []byte, size int) []byte {
	out := make([]byte, icoHeaderSize, icoHeaderSize+len(pngData))
	binary.LittleEndian.PutUint16(out[2:], 1) // type: icon
	binary.LittleEndian.PutUint16(out[4:], 1) // image count

	dim := byte(size)
	if size >= 256 {
		dim = 0
	}
	out[6] = dim
	out[7] = dim
	binary.LittleEndian.PutUint16(out[10:], 1)  // planes
	binary.LittleEndian.PutUint16(out[12:], 32) // bits per pixel
	binary.LittleEndian.PutUint32(out[14:], uint32(len(pngData)))
	binary.LittleEndian.PutUint32(out[18:], icoHeaderSize)
	return append(out, pngData...)
}
