package overlay

import (
	"context"
	"errors"
	"image"
	"runtime"
	"testing"
)

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		PointerDown: "down",
		PointerMove: "move",
		PointerUp:   "up",
		Cancel:      "cancel",
		Kind(42):    "unknown",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, expected %q", int(k), got, want)
		}
	}
}

func TestTeardownWithoutShow(t *testing.T) {
	s := New(image.Rectangle{})
	if err := s.Teardown(); err != nil {
		t.Fatalf("Teardown on hidden surface: %v", err)
	}
}

func TestShowUnsupportedPlatform(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("overlay is implemented on windows")
	}
	_, err := New(image.Rectangle{}).Show(context.Background(), func(Input) {})
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
