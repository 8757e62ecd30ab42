package analyzer

import (
	"runtime"
	"sync"
)

// WorkerPool runs independent feature estimators on a fixed set of goroutines.
type WorkerPool struct {
	workers  int
	jobQueue chan poolJob
	once     sync.Once

	// mu guards closed; Run holds it for reading while it enqueues
	mu     sync.RWMutex
	closed bool
}

type poolJob struct {
	fn      func()
	barrier *sync.WaitGroup
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &WorkerPool{
		workers:  workers,
		jobQueue: make(chan poolJob, workers*2),
	}
}

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// Start initializes and starts all workers in the pool
func (wp *WorkerPool) Start() {
	wp.once.Do(func() {
		for i := 0; i < wp.workers; i++ {
			go wp.worker()
		}
	})
}

func (wp *WorkerPool) worker() {
	for job := range wp.jobQueue {
		job.fn()
		job.barrier.Done()
	}
}

// Run submits every job and blocks until all of them have returned. Once the
// pool is closed the jobs run sequentially on the caller's goroutine.
func (wp *WorkerPool) Run(jobs ...func()) {
	wp.mu.RLock()
	if wp.closed {
		wp.mu.RUnlock()
		for _, job := range jobs {
			job()
		}
		return
	}

	var barrier sync.WaitGroup
	barrier.Add(len(jobs))
	for _, job := range jobs {
		wp.jobQueue <- poolJob{fn: job, barrier: &barrier}
	}
	wp.mu.RUnlock()
	barrier.Wait()
}

// Close shuts down the worker pool
func (wp *WorkerPool) Close() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.closed {
		return
	}
	wp.closed = true
	close(wp.jobQueue)
}
