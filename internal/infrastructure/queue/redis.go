package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig configuración de conexión Redis.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisQueue cola compartida entre instancias: LPUSH al encolar, BRPOP en los workers.
type RedisQueue struct {
	client  *redis.Client
	key     string
	workers int
	timeout time.Duration
	log     zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRedisClient crea el cliente y verifica la conexión.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("conectar a Redis: %w", err)
	}
	return client, nil
}

// NewRedisQueue construye la cola sobre un cliente existente.
func NewRedisQueue(client *redis.Client, key string, workers int, jobTimeout time.Duration, log zerolog.Logger) *RedisQueue {
	if key == "" {
		key = "etd:sign:jobs"
	}
	if workers < 1 {
		workers = 1
	}
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Second
	}
	return &RedisQueue{
		client:  client,
		key:     key,
		workers: workers,
		timeout: jobTimeout,
		log:     log.With().Str("component", "queue.redis").Str("key", key).Logger(),
	}
}

// Enqueue publica el trabajo en la lista.
func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	payload, err := encodeJob(job)
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("queue: encolar en Redis: %w", err)
	}
	return nil
}

// Start lanza los workers; terminan cuando ctx se cancela o se llama Close.
func (q *RedisQueue) Start(ctx context.Context, h Handler) {
	ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func(worker int) {
			defer q.wg.Done()
			q.loop(ctx, worker, h)
		}(i)
	}
}

func (q *RedisQueue) loop(ctx context.Context, worker int, h Handler) {
	for {
		res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			q.log.Warn().Err(err).Int("worker", worker).Msg("BRPOP falló, reintentando")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		// res = [key, payload]
		if len(res) != 2 {
			continue
		}
		job, err := decodeJob([]byte(res[1]))
		if err != nil {
			q.log.Error().Err(err).Msg("trabajo descartado")
			continue
		}
		q.run(ctx, worker, job, h)
	}
}

func (q *RedisQueue) run(parent context.Context, worker int, job Job, h Handler) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), q.timeout)
	defer cancel()
	if err := h(ctx, job); err != nil {
		q.log.Error().Err(err).
			Int("worker", worker).
			Str("job_id", job.ID).
			Str("model", job.Model).
			Str("record_id", job.RecordID).
			Msg("trabajo fallido")
	}
}

// Close detiene los workers y espera el trabajo en curso.
func (q *RedisQueue) Close() error {
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
	return nil
}
