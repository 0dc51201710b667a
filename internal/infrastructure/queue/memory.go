package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// MemoryQueue cola en proceso: canal con buffer y N workers.
// Los trabajos pendientes se pierden si el proceso termina.
type MemoryQueue struct {
	jobs    chan Job
	workers int
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewMemoryQueue construye la cola. workers y buffer se fuerzan a un mínimo de 1.
func NewMemoryQueue(workers, buffer int, jobTimeout time.Duration, log zerolog.Logger) *MemoryQueue {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 1
	}
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Second
	}
	return &MemoryQueue{
		jobs:    make(chan Job, buffer),
		workers: workers,
		timeout: jobTimeout,
		log:     log.With().Str("component", "queue.memory").Logger(),
	}
}

// Enqueue agrega un trabajo; bloquea si el buffer está lleno hasta que ctx expire.
func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start lanza los workers. Cada trabajo corre con su propio context y timeout,
// desacoplado del request que lo encoló.
func (q *MemoryQueue) Start(ctx context.Context, h Handler) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func(worker int) {
			defer q.wg.Done()
			for job := range q.jobs {
				q.run(ctx, worker, job, h)
			}
		}(i)
	}
}

func (q *MemoryQueue) run(parent context.Context, worker int, job Job, h Handler) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), q.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			q.log.Error().Interface("panic", r).Str("job_id", job.ID).Msg("trabajo abortado")
		}
	}()
	if err := h(ctx, job); err != nil {
		q.log.Error().Err(err).
			Int("worker", worker).
			Str("job_id", job.ID).
			Str("model", job.Model).
			Str("record_id", job.RecordID).
			Msg("trabajo fallido")
		return
	}
	q.log.Debug().Int("worker", worker).Str("job_id", job.ID).Msg("trabajo completado")
}

// Close deja de aceptar trabajos y espera a que los workers vacíen la cola.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	q.wg.Wait()
	return nil
}
