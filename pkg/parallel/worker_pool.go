// Package parallel provides bounded, order-preserving parallel execution.
package parallel

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// PoolConfig configures the worker pool behavior.
type PoolConfig struct {
	// MaxWorkers bounds how many tasks run at once.
	// Default: min(runtime.NumCPU(), 8)
	MaxWorkers int

	// CollectMetrics enables collection of execution metrics.
	CollectMetrics bool
}

// DefaultPoolConfig returns a default pool configuration.
func DefaultPoolConfig() PoolConfig {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	if workers < 2 {
		workers = 2
	}
	return PoolConfig{MaxWorkers: workers}
}

// WithWorkers returns a new config with the specified number of workers.
func (c PoolConfig) WithWorkers(n int) PoolConfig {
	c.MaxWorkers = n
	return c
}

// WithMetrics returns a new config with metrics collection enabled.
func (c PoolConfig) WithMetrics() PoolConfig {
	c.CollectMetrics = true
	return c
}

// PoolMetrics holds execution statistics.
type PoolMetrics struct {
	TotalTasks     int64
	CompletedTasks int64
	FailedTasks    int64
	MaxInFlight    int
	TotalDuration  time.Duration
	MaxTaskTime    time.Duration
}

// TaskResult holds the result of one task.
type TaskResult[T any, R any] struct {
	Input    T
	Result   R
	Error    error
	Duration time.Duration
}

// WorkerPool runs a function over inputs with at most MaxWorkers in flight.
type WorkerPool[T any, R any] struct {
	config  PoolConfig
	mu      sync.Mutex
	metrics PoolMetrics
	running int
}

// NewWorkerPool creates a new worker pool with the given configuration.
func NewWorkerPool[T any, R any](config PoolConfig) *WorkerPool[T, R] {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = DefaultPoolConfig().MaxWorkers
	}
	return &WorkerPool[T, R]{config: config}
}

// ExecuteFunc applies fn to every input. Results are returned in input
// order. Inputs not started before ctx ends carry ctx's error.
func (p *WorkerPool[T, R]) ExecuteFunc(ctx context.Context, inputs []T, fn func(ctx context.Context, input T) (R, error)) []TaskResult[T, R] {
	if len(inputs) == 0 {
		return nil
	}
	start := time.Now()

	results := make([]TaskResult[T, R], len(inputs))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < min(p.config.MaxWorkers, len(inputs)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexes {
				results[idx] = p.run(ctx, inputs[idx], fn)
			}
		}()
	}

	next := 0
feed:
	for ; next < len(inputs); next++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break feed
		case indexes <- next:
		}
	}
	close(indexes)
	wg.Wait()

	for i := next; i < len(inputs); i++ {
		results[i] = TaskResult[T, R]{Input: inputs[i], Error: ctx.Err()}
	}

	if p.config.CollectMetrics {
		p.mu.Lock()
		p.metrics.TotalDuration = time.Since(start)
		p.mu.Unlock()
	}
	return results
}

func (p *WorkerPool[T, R]) run(ctx context.Context, input T, fn func(ctx context.Context, input T) (R, error)) TaskResult[T, R] {
	if p.config.CollectMetrics {
		p.mu.Lock()
		p.running++
		p.metrics.MaxInFlight = max(p.metrics.MaxInFlight, p.running)
		p.mu.Unlock()
	}

	taskStart := time.Now()
	result, err := fn(ctx, input)
	duration := time.Since(taskStart)

	if p.config.CollectMetrics {
		p.mu.Lock()
		p.running--
		p.metrics.TotalTasks++
		if err != nil {
			p.metrics.FailedTasks++
		} else {
			p.metrics.CompletedTasks++
		}
		p.metrics.MaxTaskTime = max(p.metrics.MaxTaskTime, duration)
		p.mu.Unlock()
	}
	return TaskResult[T, R]{Input: input, Result: result, Error: err, Duration: duration}
}

// Metrics returns the current execution metrics.
func (p *WorkerPool[T, R]) Metrics() PoolMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics
}
