package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPool_ExecuteFunc(t *testing.T) {
	pool := NewWorkerPool[int, int](DefaultPoolConfig())

	inputs := []int{1, 2, 3, 4, 5}
	results := pool.ExecuteFunc(context.Background(), inputs, func(ctx context.Context, input int) (int, error) {
		return input * 2, nil
	})

	if len(results) != len(inputs) {
		t.Fatalf("Expected %d results, got %d", len(inputs), len(results))
	}
	for i, r := range results {
		if r.Error != nil {
			t.Errorf("Unexpected error for input %d: %v", inputs[i], r.Error)
		}
		if r.Input != inputs[i] || r.Result != inputs[i]*2 {
			t.Errorf("Result %d out of order: %+v", i, r)
		}
	}
}

func TestWorkerPool_Empty(t *testing.T) {
	pool := NewWorkerPool[int, int](PoolConfig{})
	if got := pool.ExecuteFunc(context.Background(), nil, nil); got != nil {
		t.Errorf("Expected nil results, got %v", got)
	}
}

func TestWorkerPool_BoundedConcurrency(t *testing.T) {
	pool := NewWorkerPool[int, int](DefaultPoolConfig().WithWorkers(3).WithMetrics())

	var inFlight, peak int32
	inputs := make([]int, 30)
	pool.ExecuteFunc(context.Background(), inputs, func(ctx context.Context, input int) (int, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return input, nil
	})

	if peak > 3 {
		t.Errorf("Expected at most 3 concurrent tasks, saw %d", peak)
	}
	if m := pool.Metrics(); m.MaxInFlight > 3 || m.TotalTasks != 30 {
		t.Errorf("Unexpected metrics: %+v", m)
	}
}

func TestWorkerPool_Cancelled(t *testing.T) {
	pool := NewWorkerPool[int, int](DefaultPoolConfig().WithWorkers(1))
	ctx, cancel := context.WithCancel(context.Background())

	inputs := make([]int, 20)
	results := pool.ExecuteFunc(ctx, inputs, func(ctx context.Context, input int) (int, error) {
		cancel()
		return input, nil
	})

	if len(results) != 20 {
		t.Fatalf("Expected 20 results, got %d", len(results))
	}
	if !errors.Is(results[19].Error, context.Canceled) {
		t.Errorf("Expected unstarted task to carry context.Canceled, got %v", results[19].Error)
	}
}

func TestWorkerPool_Metrics(t *testing.T) {
	pool := NewWorkerPool[int, int](DefaultPoolConfig().WithMetrics())

	pool.ExecuteFunc(context.Background(), []int{1, 2, 3, 4, 5}, func(ctx context.Context, input int) (int, error) {
		if input == 3 {
			return 0, errors.New("boom")
		}
		return input, nil
	})

	m := pool.Metrics()
	if m.TotalTasks != 5 || m.CompletedTasks != 4 || m.FailedTasks != 1 {
		t.Errorf("Unexpected metrics: %+v", m)
	}
}
