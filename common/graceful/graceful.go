// Package graceful tracks background runs and in-flight requests so the
// server can drain them on shutdown.
package graceful

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Laisky/zap"

	"github.com/songquanpeng/contract-tester/common/logger"
)

var (
	inFlightRequests atomic.Int64
	runningTasks     atomic.Int64
	draining         atomic.Bool

	wg sync.WaitGroup

	cancelMu sync.Mutex
	cancels  = map[*int]context.CancelFunc{}
)

// BeginRequest counts an in-flight request. Call the returned func when it ends.
func BeginRequest() func() {
	inFlightRequests.Add(1)
	return func() { inFlightRequests.Add(-1) }
}

// Go runs fn in a tracked goroutine. The context handed to fn derives from ctx
// and is additionally cancelled by CancelAll.
func Go(ctx context.Context, name string, fn func(context.Context)) {
	ctx, cancel := context.WithCancel(ctx)
	key := new(int)
	cancelMu.Lock()
	cancels[key] = cancel
	cancelMu.Unlock()

	runningTasks.Add(1)
	wg.Go(func() {
		defer func() {
			cancelMu.Lock()
			delete(cancels, key)
			cancelMu.Unlock()
			cancel()
			runningTasks.Add(-1)
		}()

		start := time.Now()
		logger.Logger.Debug("background task start", zap.String("name", name))
		fn(ctx)
		logger.Logger.Debug("background task done", zap.String("name", name), zap.Duration("elapsed", time.Since(start)))
	})
}

// CancelAll cancels every tracked task. Tasks still get to record their
// partial outcome before they return.
func CancelAll() {
	cancelMu.Lock()
	defer cancelMu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// Running is the number of tracked tasks that have not returned yet.
func Running() int64 { return runningTasks.Load() }

// Drain waits for tracked tasks and in-flight requests, bounded by ctx.
func Drain(ctx context.Context) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	tasksDone := false
	for {
		if tasksDone && inFlightRequests.Load() == 0 {
			logger.Logger.Info("graceful drain complete")
			return nil
		}
		select {
		case <-ctx.Done():
			logger.Logger.Error("graceful drain timeout",
				zap.Int64("running_tasks", runningTasks.Load()),
				zap.Int64("in_flight_requests", inFlightRequests.Load()))
			return ctx.Err()
		case <-done:
			tasksDone = true
			done = nil
		case <-ticker.C:
			logger.Logger.Debug("draining...",
				zap.Int64("running_tasks", runningTasks.Load()),
				zap.Int64("in_flight_requests", inFlightRequests.Load()))
		}
	}
}

// SetDraining marks the server as draining, or clears the mark.
func SetDraining(on bool) { draining.Store(on) }

// IsDraining returns whether the server is currently draining.
func IsDraining() bool { return draining.Load() }
