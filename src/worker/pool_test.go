package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"qr-region-select/src/capture"
	"qr-region-select/src/geometry"
)

type stubCapturer struct {
	mu      sync.Mutex
	calls   []time.Time
	block   chan struct{}
	outcome capture.Outcome
}

func (s *stubCapturer) Capture(ctx context.Context, rect geometry.Rect, viewport geometry.Size) capture.Outcome {
	s.mu.Lock()
	s.calls = append(s.calls, time.Now())
	s.mu.Unlock()
	if s.block != nil {
		<-s.block
	}
	return s.outcome
}

func (s *stubCapturer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestPoolRunsJobAfterSettle(t *testing.T) {
	stub := &stubCapturer{outcome: capture.Outcome{Status: capture.StatusDecoded}}
	p := New(1, stub)
	defer p.Close()

	job := Job{Session: uuid.New(), Rect: geometry.Rect{Width: 10, Height: 10}, Settle: 30 * time.Millisecond}
	done := make(chan capture.Outcome, 1)
	submitted := time.Now()
	if !p.Submit(context.Background(), job, func(j Job, out capture.Outcome) {
		if j.Session != job.Session {
			t.Errorf("callback got session %s, expected %s", j.Session, job.Session)
		}
		done <- out
	}) {
		t.Fatal("expected submit to succeed")
	}

	select {
	case out := <-done:
		if out.Status != capture.StatusDecoded {
			t.Errorf("status = %v", out.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
	}
	if elapsed := stub.calls[0].Sub(submitted); elapsed < job.Settle {
		t.Errorf("capture started after %v, expected at least %v", elapsed, job.Settle)
	}
}

func TestPoolBackPressure(t *testing.T) {
	stub := &stubCapturer{block: make(chan struct{})}
	p := New(1, stub)

	results := make(chan capture.Outcome, 4)
	cb := func(_ Job, out capture.Outcome) { results <- out }

	if !p.Submit(context.Background(), Job{}, cb) {
		t.Fatal("first submit rejected")
	}
	deadline := time.Now().Add(2 * time.Second)
	for stub.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !p.Submit(context.Background(), Job{}, cb) {
		t.Fatal("queued submit rejected")
	}
	if p.Submit(context.Background(), Job{}, cb) {
		t.Fatal("expected third submit to be dropped while worker busy and queue full")
	}

	close(stub.block)
	p.Close()
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestPoolDeadline(t *testing.T) {
	stub := &stubCapturer{block: make(chan struct{})}
	defer close(stub.block)
	p := New(1, stub)

	done := make(chan capture.Outcome, 1)
	p.Submit(context.Background(), Job{Deadline: 20 * time.Millisecond}, func(_ Job, out capture.Outcome) { done <- out })

	select {
	case out := <-done:
		if out.Status != capture.StatusCaptureError || !errors.Is(out.Err, capture.ErrCapture) {
			t.Errorf("expected capture error on deadline, got %v / %v", out.Status, out.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("deadline not honoured")
	}
}

func TestPoolCancelledDuringSettle(t *testing.T) {
	stub := &stubCapturer{}
	p := New(1, stub)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan capture.Outcome, 1)
	p.Submit(ctx, Job{Settle: time.Second}, func(_ Job, out capture.Outcome) { done <- out })

	select {
	case out := <-done:
		if out.Status != capture.StatusCaptureError {
			t.Errorf("status = %v", out.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled job did not finish")
	}
	if stub.count() != 0 {
		t.Errorf("capture ran %d times after cancellation", stub.count())
	}
}
