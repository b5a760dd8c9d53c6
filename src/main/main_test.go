package main

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"qr-region-select/src/session"
	"qr-region-select/src/singleinstance"
)

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Normalizes long single dash flags",
			in:   []string{"qr-select", "-activate", "-stdout", "-config", "/tmp/qr.yaml"},
			out:  []string{"qr-select", "--activate", "--stdout", "--config", "/tmp/qr.yaml"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"qr-select", "-activate=true", "-hotkey=Ctrl+Alt+Q"},
			out:  []string{"qr-select", "--activate=true", "--hotkey=Ctrl+Alt+Q"},
		},
		{
			name: "Leaves other flags unchanged",
			in:   []string{"qr-select", "--activate", "--other", "-x"},
			out:  []string{"qr-select", "--activate", "--other", "-x"},
		},
		{
			name: "Empty",
			in:   []string{},
			out:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLegacyArgs(tt.in)
			if !reflect.DeepEqual(got, tt.out) {
				t.Fatalf("normalizeLegacyArgs(%q) = %q, expected %q", tt.in, got, tt.out)
			}
		})
	}
}

func TestNewRootCmdParsesFlags(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--activate", "--stdout", "--config", "/tmp/qr.yaml", "--preview-dir", "/tmp/p"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if !opts.activate || !opts.stdout {
		t.Fatalf("Expected activate and stdout, got %+v", opts)
	}
	lo := opts.loadOptions()
	if lo.ConfigPath != "/tmp/qr.yaml" || lo.PreviewDirOverride != "/tmp/p" {
		t.Fatalf("loadOptions = %+v", lo)
	}
}

func TestStdoutRequiresActivate(t *testing.T) {
	if err := runWithArgs([]string{"qr-select", "--stdout"}); err == nil {
		t.Fatal("expected an error for --stdout without --activate")
	}
}

type fakeClient struct {
	delegated bool
	text      string
	err       error
	called    bool
	stdout    bool
}

func (f *fakeClient) TryActivate(ctx context.Context, outputToStdout bool) (bool, string, error) {
	f.called = true
	f.stdout = outputToStdout
	return f.delegated, f.text, f.err
}

func TestHandleActivateWithDelegation(t *testing.T) {
	tests := []struct {
		name         string
		client       *fakeClient
		stdout       bool
		wantFallback bool
		wantOut      string
		wantErr      bool
	}{
		{"delegated clipboard", &fakeClient{delegated: true}, false, false, "", false},
		{"delegated stdout", &fakeClient{delegated: true, text: "https://example.com"}, true, false, "https://example.com", false},
		{"no resident", &fakeClient{}, false, true, "", false},
		{"dial error", &fakeClient{err: errors.New("connection reset")}, false, true, "", false},
		{"resident reported failure", &fakeClient{delegated: true, err: &singleinstance.RemoteError{Msg: "selection cancelled"}}, true, false, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			fallbackCalled := false
			err := handleActivateWithDelegation(context.Background(), tt.client, tt.stdout, &out, func() error {
				fallbackCalled = true
				return nil
			})
			if !tt.client.called || tt.client.stdout != tt.stdout {
				t.Fatalf("client called=%v stdout=%v", tt.client.called, tt.client.stdout)
			}
			if fallbackCalled != tt.wantFallback {
				t.Errorf("fallback called = %v, expected %v", fallbackCalled, tt.wantFallback)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if out.String() != tt.wantOut {
				t.Errorf("output = %q, expected %q", out.String(), tt.wantOut)
			}
		})
	}
}

type failingClipboard struct{}

func (failingClipboard) Write(string) error { return errors.New("clipboard locked") }

func TestOneShotTarget(t *testing.T) {
	var out bytes.Buffer
	target := newOneShotTarget(session.StdoutTarget{Writer: &out})
	if err := target.OnSuccess("hello"); err != nil {
		t.Fatal(err)
	}
	target.OnFailure(session.ErrSelectionCancelled)
	if err := <-target.done; err != nil {
		t.Errorf("first completion should win, got %v", err)
	}
	if out.String() != "hello" {
		t.Errorf("output = %q", out.String())
	}

	// A failed write is followed by OnFailure, which carries the error out.
	target = newOneShotTarget(session.ClipboardTarget{Clipboard: failingClipboard{}})
	if err := target.OnSuccess("x"); err == nil {
		t.Fatal("expected clipboard error")
	}
	target.OnFailure(errors.New("clipboard write failed"))
	if err := <-target.done; err == nil {
		t.Error("expected failure to be reported")
	}

	target = newOneShotTarget(session.ClipboardTarget{})
	target.OnFailure(session.ErrSelectionCancelled)
	if err := <-target.done; !errors.Is(err, session.ErrSelectionCancelled) {
		t.Errorf("err = %v", err)
	}
}

func TestLingerDuration(t *testing.T) {
	tests := []struct {
		name   string
		stdout bool
		toast  time.Duration
		want   time.Duration
	}{
		{"clipboard waits for toast", false, 3 * time.Second, 3 * time.Second},
		{"stdout exits at once", true, 3 * time.Second, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lingerDuration(tt.stdout, tt.toast); got != tt.want {
				t.Errorf("lingerDuration = %v, expected %v", got, tt.want)
			}
		})
	}
}

func TestLingerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	linger(ctx, time.Hour)
	if time.Since(start) > time.Second {
		t.Error("linger ignored a cancelled context")
	}
}
