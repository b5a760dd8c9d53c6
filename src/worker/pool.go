package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"qr-region-select/src/capture"
	"qr-region-select/src/geometry"
)

// Capturer runs one capture attempt. *capture.Pipeline satisfies it.
type Capturer interface {
	Capture(ctx context.Context, rect geometry.Rect, viewport geometry.Size) capture.Outcome
}

// Job describes one finished selection waiting to be captured.
type Job struct {
	Session  uuid.UUID
	Rect     geometry.Rect
	Viewport geometry.Size
	// Settle is waited before the screenshot so the torn-down overlay is off screen.
	Settle time.Duration
	// Deadline bounds the capture itself. Zero means no deadline.
	Deadline time.Duration
}

// ResultCallback is invoked on capture completion (from a worker goroutine).
// The event loop should pass a closure that posts back into the event loop safely.
type ResultCallback func(job Job, out capture.Outcome)

// Pool is a fixed-size capture worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	capturer Capturer
	jobs     chan queued
	wg       sync.WaitGroup
}

type queued struct {
	ctx context.Context
	job Job
	cb  ResultCallback
}

// New creates a worker pool. Size defaults to 1 when size<=0. Queue is 1 slot.
func New(size int, capturer Capturer) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{capturer: capturer, jobs: make(chan queued, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for q := range p.jobs {
				log.Printf("Worker: starting capture for session %s, selection %v", q.job.Session, q.job.Rect)
				out := p.run(q.ctx, q.job)
				log.Printf("Worker: capture finished for session %s, status=%v err=%v", q.job.Session, out.Status, out.Err)
				q.cb(q.job, out)
			}
		}()
	}
}

// Submit enqueues a capture job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, job Job, cb ResultCallback) bool {
	select {
	case p.jobs <- queued{ctx: ctx, job: job, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, job Job) capture.Outcome {
	if job.Settle > 0 {
		t := time.NewTimer(job.Settle)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return capture.Outcome{Status: capture.StatusCaptureError, Err: fmt.Errorf("%w: %v", capture.ErrCapture, ctx.Err())}
		}
	}

	if job.Deadline <= 0 {
		return p.capturer.Capture(ctx, job.Rect, job.Viewport)
	}
	jobCtx, cancel := context.WithTimeout(ctx, job.Deadline)
	defer cancel()
	return captureWithContext(jobCtx, p.capturer, job)
}

// captureWithContext runs the capture in a sub-goroutine so a stuck screenshot
// backend cannot hold the worker past the deadline.
func captureWithContext(ctx context.Context, c Capturer, job Job) capture.Outcome {
	resCh := make(chan capture.Outcome, 1)
	go func() {
		resCh <- c.Capture(ctx, job.Rect, job.Viewport)
	}()
	select {
	case out := <-resCh:
		return out
	case <-ctx.Done():
		// Allow the capture to finish in the background; its result is discarded.
		return capture.Outcome{Status: capture.StatusCaptureError, Err: fmt.Errorf("%w: %v", capture.ErrCapture, ctx.Err())}
	}
}
