package analyzer

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestNewWorkerPool(t *testing.T) {
	pool := NewWorkerPool(4)
	if pool == nil {
		t.Fatal("Expected non-nil worker pool")
	}
	if pool.Workers() != 4 {
		t.Errorf("Expected 4 workers, got %d", pool.Workers())
	}
}

func TestNewWorkerPool_ZeroWorkers(t *testing.T) {
	pool := NewWorkerPool(0)
	if pool.Workers() != runtime.NumCPU() {
		t.Errorf("Expected %d workers by default, got %d", runtime.NumCPU(), pool.Workers())
	}
}

func TestWorkerPool_Run(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()
	defer pool.Close()

	var counter int64
	jobs := make([]func(), 5)
	for i := range jobs {
		jobs[i] = func() { atomic.AddInt64(&counter, 1) }
	}

	pool.Run(jobs...)

	if got := atomic.LoadInt64(&counter); got != 5 {
		t.Errorf("Expected counter to be 5, got %d", got)
	}
}

func TestWorkerPool_Concurrent(t *testing.T) {
	pool := NewWorkerPool(3)
	pool.Start()
	defer pool.Close()

	var results []int
	var mu sync.Mutex

	jobs := make([]func(), 10)
	for i := range jobs {
		value := i
		jobs[i] = func() {
			mu.Lock()
			results = append(results, value*2)
			mu.Unlock()
		}
	}
	pool.Run(jobs...)

	if len(results) != 10 {
		t.Errorf("Expected 10 results, got %d", len(results))
	}
}

func TestWorkerPool_StartOnce(t *testing.T) {
	pool := NewWorkerPool(2)

	// Start should be idempotent
	pool.Start()
	pool.Start()
	defer pool.Close()

	executed := false
	pool.Run(func() { executed = true })

	if !executed {
		t.Error("Expected job to be executed")
	}
}

func TestWorkerPool_RunEmpty(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Start()
	defer pool.Close()

	// Must return immediately without jobs
	pool.Run()
}

func TestWorkerPool_CloseTwice(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()
	pool.Close()
	pool.Close()
}

func TestWorkerPool_RunAfterClose(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()
	pool.Close()

	var counter int64
	pool.Run(
		func() { atomic.AddInt64(&counter, 1) },
		func() { atomic.AddInt64(&counter, 1) },
	)
	if got := atomic.LoadInt64(&counter); got != 2 {
		t.Errorf("Expected jobs to run after close, counter is %d", got)
	}
}

func TestWorkerPool_CloseDuringRun(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()

	var wg sync.WaitGroup
	var counter int64
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Run(func() { atomic.AddInt64(&counter, 1) })
		}()
	}
	pool.Close()
	wg.Wait()

	if got := atomic.LoadInt64(&counter); got != 8 {
		t.Errorf("Expected every job to run once, counter is %d", got)
	}
}
