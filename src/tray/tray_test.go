package tray

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"testing"
)

func TestIconPNG(t *testing.T) {
	data := IconPNG()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("icon is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != iconSize || b.Dy() != iconSize {
		t.Errorf("icon bounds = %v", b)
	}
	if r, _, _, _ := img.At(1, 1).RGBA(); r>>8 != 0x1b {
		t.Errorf("expected dark finder corner, got r=%x", r>>8)
	}
}

func TestWrapICO(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	ico := wrapICO(payload, 32)
	if len(ico) != icoHeaderSize+len(payload) {
		t.Fatalf("len = %d", len(ico))
	}
	if binary.LittleEndian.Uint16(ico[4:]) != 1 || ico[6] != 32 {
		t.Errorf("bad header % x", ico[:icoHeaderSize])
	}
	if off := binary.LittleEndian.Uint32(ico[18:]); off != icoHeaderSize {
		t.Errorf("image offset = %d", off)
	}
	if !bytes.Equal(ico[icoHeaderSize:], payload) {
		t.Error("payload not appended")
	}
	if big := wrapICO(nil, 256); big[6] != 0 {
		t.Errorf("256px icons encode width as 0, got %d", big[6])
	}
}

func TestUpdateTooltipBeforeReady(t *testing.T) {
	// Must not reach systray while the icon is not up.
	UpdateTooltip("ignored")
	TooltipPresenter{}.Dismiss()
}
