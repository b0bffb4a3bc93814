// Package worker provides a bounded parallel task pool with all-settled semantics.
package worker

import (
	"context"
	"sync"
	"time"
)

// Task is a single unit of work identified by its position in the batch.
type Task[T any] struct {
	Index int
	Run   func(ctx context.Context) (T, error)
}

// Result represents the outcome of a task.
type Result[T any] struct {
	Index   int
	Value   T
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the worker pool.
type Config struct {
	Workers    int
	OnProgress ProgressFunc
}

// Pool runs tasks in parallel. A failing task never stops the others.
type Pool[T any] struct {
	workers    int
	onProgress ProgressFunc
}

// New creates a new worker pool.
func New[T any](cfg Config) *Pool[T] {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool[T]{
		workers:    workers,
		onProgress: cfg.OnProgress,
	}
}

// Run executes all tasks and returns one result per task, in completion order.
// The function blocks until every task has settled. Tasks not yet started when
// ctx is cancelled settle with ctx.Err().
func (p *Pool[T]) Run(ctx context.Context, tasks []Task[T]) []Result[T] {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task[T], len(tasks))
	resultCh := make(chan Result[T], len(tasks))

	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)

	var wg sync.WaitGroup
	for i := 0; i < p.workers && i < len(tasks); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	results := make([]Result[T], 0, len(tasks))
	done := make(chan struct{})

	go func() {
		completed, failed := 0, 0
		for result := range resultCh {
			results = append(results, result)

			completed++
			if result.Err != nil {
				failed++
			}

			if p.onProgress != nil {
				p.onProgress(completed, len(tasks), failed)
			}
		}
		close(done)
	}()

	wg.Wait()
	close(resultCh)
	<-done

	return results
}

// worker processes tasks from the task channel and sends results to the result channel.
func (p *Pool[T]) worker(ctx context.Context, tasks <-chan Task[T], results chan<- Result[T]) {
	for task := range tasks {
		if err := ctx.Err(); err != nil {
			results <- Result[T]{Index: task.Index, Err: err}
			continue
		}

		start := time.Now()
		value, err := task.Run(ctx)
		results <- Result[T]{
			Index:   task.Index,
			Value:   value,
			Err:     err,
			Elapsed: time.Since(start),
		}
	}
}
