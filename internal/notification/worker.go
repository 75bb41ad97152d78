package notification

import (
	"context"
	"errors"
	"log"

	"webpush-backend/internal/store"
)

// Job is one asynchronous send request queued by business logic.
type Job struct {
	UserID string
	Title  string
	Body   string
	Icon   string
	Data   map[string]any
}

// WorkerPool manages a pool of workers draining queued notification sends.
// As the dispatcher's caller it owns the retry/cleanup decisions: deliveries
// reported gone have their subscription deleted from the registry.
type WorkerPool struct {
	size       int
	jobs       chan Job
	dispatcher *Dispatcher
	store      store.Store
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, dispatcher *Dispatcher, s store.Store) *WorkerPool {
	return &WorkerPool{
		size:       size,
		jobs:       make(chan Job, size), // Buffered channel
		dispatcher: dispatcher,
		store:      s,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case job := <-wp.jobs:
			wp.process(ctx, job)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a job for the worker pool.
func (wp *WorkerPool) Dispatch(job Job) {
	wp.jobs <- job
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Job {
	return wp.jobs
}

// process sends one queued notification and cleans up dead endpoints.
func (wp *WorkerPool) process(ctx context.Context, job Job) {
	deliveries, err := wp.dispatcher.Send(ctx, job.UserID, job.Title, job.Body, job.Icon, job.Data)
	if err != nil {
		if errors.Is(err, ErrNoSubscription) {
			return
		}
		log.Printf("Error dispatching notification for user %s: %v", job.UserID, err)
		return
	}

	for _, delivery := range deliveries {
		if delivery.Gone {
			log.Printf("Subscription for endpoint %s is expired. Deleting.", delivery.Endpoint)
			if err := wp.store.DeleteSubscriptionByEndpoint(ctx, delivery.Endpoint); err != nil {
				log.Printf("Failed to delete expired subscription %s: %v", delivery.Endpoint, err)
			}
			continue
		}
		if delivery.Failed() {
			log.Printf("Error sending notification to %s: %v", delivery.Endpoint, delivery.Err)
		}
	}
}
