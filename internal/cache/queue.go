package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SyncJob asks the background worker to ingest one channel.
type SyncJob struct {
	ChannelRef string    `json:"channel_ref"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// SyncQueue is the Redis list key holding pending sync jobs.
const SyncQueue = "channeldesk:jobs:sync"

// Enqueue pushes job onto the left of queue.
func Enqueue(ctx context.Context, r *Redis, queue string, job SyncJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue marshal: %w", err)
	}
	return r.client.LPush(ctx, queue, data).Err()
}

// Dequeue blocks until a job is available or timeout elapses. A timeout or a
// cancelled ctx yields (nil, nil) so the caller can loop and check for shutdown.
func Dequeue(ctx context.Context, r *Redis, queue string, timeout time.Duration) (*SyncJob, error) {
	result, err := r.client.BRPop(ctx, timeout, queue).Result()
	if err != nil {
		if err == redis.Nil || ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("queue dequeue: %w", err)
	}
	// BRPop returns [key, value].
	if len(result) < 2 {
		return nil, nil
	}
	var job SyncJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("queue unmarshal: %w", err)
	}
	return &job, nil
}

// RedisQueue enqueues sync jobs for the background worker.
type RedisQueue struct {
	r    *Redis
	name string
	now  func() time.Time
}

// NewRedisQueue returns a queue writing to SyncQueue.
func NewRedisQueue(r *Redis) *RedisQueue {
	return &RedisQueue{r: r, name: SyncQueue, now: time.Now}
}

// EnqueueSync schedules a sync of the channel with store id channelRef.
func (q *RedisQueue) EnqueueSync(ctx context.Context, channelRef string) error {
	return Enqueue(ctx, q.r, q.name, SyncJob{ChannelRef: channelRef, EnqueuedAt: q.now().UTC()})
}

// Next blocks for up to timeout waiting for a job; (nil, nil) means none arrived.
func (q *RedisQueue) Next(ctx context.Context, timeout time.Duration) (*SyncJob, error) {
	return Dequeue(ctx, q.r, q.name, timeout)
}
