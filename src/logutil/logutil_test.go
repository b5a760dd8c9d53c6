package logutil

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"https://example.com", 40, "https://example.com"},
		{"a\nb\tc\x00", 40, "a b c "},
		{"abcdef", 3, "abc..."},
		{"abc", 3, "abc"},
		{"héllo wörld", 5, "héllo..."},
		{"", 10, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Sanitize(tt.in, tt.max); got != tt.want {
				t.Errorf("Sanitize(%q, %d) = %q, expected %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestRotatingWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), logFileName)
	w, err := openRotating(path)
	if err != nil {
		t.Fatal(err)
	}
	w.limit = 16
	defer w.f.Close()

	for _, line := range []string{"first line\n", "second line\n", "third line\n"} {
		if _, err := w.Write([]byte(line)); err != nil {
			t.Fatal(err)
		}
	}

	current, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(current) != "third line\n" {
		t.Errorf("current log = %q", current)
	}
	first, err := os.ReadFile(archiveName(path, 1))
	if err != nil || string(first) != "second line\n" {
		t.Errorf("archive .1 = %q, %v", first, err)
	}
	second, err := os.ReadFile(archiveName(path, 2))
	if err != nil || string(second) != "first line\n" {
		t.Errorf("archive .2 = %q, %v", second, err)
	}
}

func TestSetupInWritesFile(t *testing.T) {
	dir := t.TempDir()
	defer log.SetOutput(os.Stderr)

	SetupIn(dir, true)
	log.Printf("hello from test")

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("log file missing entry: %q", data)
	}
}
