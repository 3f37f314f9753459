package scanner

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nvduc/joomprobe-cli/internal/probe"
)

// ErrScanCancelled marks a target abandoned because the scan was cancelled
// before its probe could run to completion.
var ErrScanCancelled = errors.New("scan cancelled")

// Result is the terminal outcome for a single target. Exactly one Result is
// produced per submitted target, success or failure.
type Result struct {
	Target   Target
	Response *probe.Response // nil when Err is set
	Err      error
	Attempts int
}

// Runner bounds how many probes are in flight and streams completions.
type Runner struct {
	Concurrency int
	RateLimit   int // requests per second across all workers, 0 = unlimited
	Client      *probe.Client
	Retry       probe.RetryPolicy
	Logger      *zap.SugaredLogger
}

// Run schedules all targets over a pool of Concurrency workers and returns
// the completion stream. Completion order is not submission order. The
// channel is closed once every target has a terminal Result; on cancellation
// the remaining targets drain as ErrScanCancelled results instead of being
// dropped.
func (r *Runner) Run(ctx context.Context, targets []Target) <-chan Result {
	workers := r.Concurrency
	if workers < 1 {
		workers = 1
	}
	log := r.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	var limiter *rate.Limiter
	if r.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.RateLimit), r.RateLimit)
	}

	// Buffered to the full target count so workers never block on either
	// channel; that is what makes the drain-on-cancel path safe.
	items := make(chan Target, len(targets))
	results := make(chan Result, len(targets))
	for _, t := range targets {
		items <- t
	}
	close(items)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range items {
				if ctx.Err() != nil {
					results <- Result{Target: t, Err: ErrScanCancelled}
					continue
				}
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						results <- Result{Target: t, Err: ErrScanCancelled}
						continue
					}
				}
				results <- r.probeOne(ctx, t, log)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// probeOne runs a single target through the retry policy and always returns
// a terminal Result.
func (r *Runner) probeOne(ctx context.Context, t Target, log *zap.SugaredLogger) Result {
	var (
		resp     *probe.Response
		attempts int
	)
	err := r.Retry.Do(ctx, func() error {
		attempts++
		var ferr error
		resp, ferr = r.Client.Fetch(ctx, http.MethodGet, t.URL)
		return ferr
	})
	if err != nil {
		// Distinguish a scan-level cancellation or global timeout from a
		// per-request failure: the former abandons the target.
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return Result{Target: t, Err: ErrScanCancelled, Attempts: attempts}
		}
		log.Debugw("probe failed", "url", t.URL, "attempts", attempts, "error", err)
		return Result{Target: t, Err: err, Attempts: attempts}
	}
	return Result{Target: t, Response: resp, Attempts: attempts}
}
