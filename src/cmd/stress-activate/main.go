package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"qr-region-select/src/singleinstance"
)

type stressOptions struct {
	n        int
	mode     string
	deadline time.Duration
}

type activator interface {
	TryActivate(ctx context.Context, outputToStdout bool) (bool, string, error)
}

type outcome int

const (
	outcomeOK outcome = iota
	outcomeBusy
	outcomeRemote
	outcomeNoResident
	outcomeErr
)

// tally counts client outcomes across goroutines.
type tally struct {
	ok, busy, remote, noResident, err atomic.Int32
}

func (t *tally) add(o outcome) {
	switch o {
	case outcomeOK:
		t.ok.Add(1)
	case outcomeBusy:
		t.busy.Add(1)
	case outcomeRemote:
		t.remote.Add(1)
	case outcomeNoResident:
		t.noResident.Add(1)
	default:
		t.err.Add(1)
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-activate",
		Short:         "Stress test --activate delegation against a resident instance",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.mode != "std" && opts.mode != "clip" {
				return fmt.Errorf("unknown mode %q (want std or clip)", opts.mode)
			}
			_, err := runWithOptions(cmd.Context(), *opts, singleinstance.NewClient(), cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().StringVar(&opts.mode, "mode", "std", "std|clip: --activate --stdout or --activate (clipboard)")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

func classify(delegated bool, err error) outcome {
	if err != nil {
		var remote *singleinstance.RemoteError
		if errors.As(err, &remote) {
			if strings.Contains(strings.ToLower(remote.Msg), "busy") {
				return outcomeBusy
			}
			return outcomeRemote
		}
		return outcomeErr
	}
	if !delegated {
		return outcomeNoResident
	}
	return outcomeOK
}

func runWithOptions(ctx context.Context, opts stressOptions, client activator, out io.Writer) (*tally, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		wg sync.WaitGroup
		t  tally
	)

	start := time.Now()
	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, opts.deadline)
			defer cancel()
			delegated, _, err := client.TryActivate(cctx, opts.mode == "std")
			t.add(classify(delegated, err))
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)
	_, err := fmt.Fprintf(out, "launched=%d ok=%d busy=%d remote=%d noresident=%d err=%d elapsed=%s\n",
		opts.n, t.ok.Load(), t.busy.Load(), t.remote.Load(), t.noResident.Load(), t.err.Load(), elapsed)
	return &t, err
}
