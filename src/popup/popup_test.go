package popup

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recordingDisplay struct {
	mu     sync.Mutex
	shown  []Preview
	closed int
}

func (d *recordingDisplay) Display(p Preview) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shown = append(d.shown, p)
}

func (d *recordingDisplay) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
}

func (d *recordingDisplay) closeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func TestNewerPreviewReplacesOlder(t *testing.T) {
	d := &recordingDisplay{}
	v := New(d, time.Hour, "")

	if _, err := v.Show(Preview{Session: "a", Text: "first", Found: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Show(Preview{Session: "b"}); err != nil {
		t.Fatal(err)
	}

	cur, ok := v.Current()
	if !ok || cur.Session != "b" {
		t.Fatalf("current = %+v, %v", cur, ok)
	}
	if cur.Caption() != noCodeText {
		t.Errorf("caption = %q", cur.Caption())
	}
	if d.closeCount() != 1 {
		t.Errorf("expected older preview closed once, got %d", d.closeCount())
	}
}

func TestPreviewAutoHides(t *testing.T) {
	d := &recordingDisplay{}
	v := New(d, 20*time.Millisecond, "")
	v.Show(Preview{Text: "x", Found: true})

	deadline := time.Now().Add(2 * time.Second)
	for d.closeCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := v.Current(); ok {
		t.Fatal("preview still visible after its duration")
	}
}

func TestPreviewSavedAsPNG(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "previews")
	v := New(&recordingDisplay{}, time.Hour, dir)
	img := image.NewNRGBA(image.Rect(0, 0, 120, 120))

	path, err := v.Show(Preview{Session: "abc", Image: img, Text: "hello", Found: true})
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if filepath.Base(path) != "preview-abc.png" {
		t.Errorf("unexpected file name %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("saved preview is not a PNG: %v", err)
	}
	if decoded.Bounds().Dx() != 120 {
		t.Errorf("saved width = %d", decoded.Bounds().Dx())
	}
}

func TestPreviewClose(t *testing.T) {
	d := &recordingDisplay{}
	v := New(d, time.Hour, "")
	v.Close()
	if d.closeCount() != 0 {
		t.Error("closing with nothing shown should be a no-op")
	}
	v.Show(Preview{})
	v.Close()
	if _, ok := v.Current(); ok || d.closeCount() != 1 {
		t.Errorf("ok=%v closed=%d", ok, d.closeCount())
	}
}

func TestDisplaysFanOut(t *testing.T) {
	a, b := &recordingDisplay{}, &recordingDisplay{}
	v := New(Displays{a, b}, time.Hour, "")

	if _, err := v.Show(Preview{Session: "a", Text: "x", Found: true}); err != nil {
		t.Fatal(err)
	}
	v.Close()

	for i, d := range []*recordingDisplay{a, b} {
		d.mu.Lock()
		shown := len(d.shown)
		d.mu.Unlock()
		if shown != 1 || d.closeCount() != 1 {
			t.Errorf("display %d: shown=%d closed=%d", i, shown, d.closeCount())
		}
	}
}

func TestScreenDisplayIsUsable(t *testing.T) {
	d := NewScreenDisplay(100)
	if d == nil {
		t.Fatal("nil display")
	}
	if _, ok := d.(Displays); ok {
		d.Display(Preview{Session: "a"})
		d.Close()
	}
}
