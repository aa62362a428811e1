// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

var (
	ErrPoolClosed = errors.New("worker pool closed")
	ErrNilTask    = errors.New("nil task")
)

type Task func(ctx context.Context) error

// KeyedPool runs tasks on a fixed set of shards. Tasks with the same key land
// on the same shard, so they run one at a time and in submission order.
type KeyedPool struct {
	wg     sync.WaitGroup
	once   sync.Once
	shards []chan Task
	quit   chan struct{}
	log    *zerolog.Logger
}

func NewKeyedPool(shards, queue int, logger *zerolog.Logger) *KeyedPool {
	if shards <= 0 {
		shards = runtime.NumCPU()
	}
	if queue <= 0 {
		queue = 16
	}
	l := logger.With().Str("component", "worker_pool").Logger()
	p := &KeyedPool{quit: make(chan struct{}), log: &l}
	p.shards = make([]chan Task, shards)
	for i := range p.shards {
		p.shards[i] = make(chan Task, queue)
	}
	return p
}

func (p *KeyedPool) Start(ctx context.Context) {
	for i, ch := range p.shards {
		p.wg.Add(1)
		go func(id int, jobs <-chan Task) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-jobs:
					p.run(ctx, id, task)
				}
			}
		}(i, ch)
	}
}

func (p *KeyedPool) run(ctx context.Context, shard int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Int("shard", shard).Interface("panic", r).Msg("task panicked")
		}
	}()
	if err := task(ctx); err != nil {
		p.log.Warn().Err(err).Int("shard", shard).Msg("task failed")
	}
}

// Submit blocks until the task is queued, ctx is done or the pool stops.
func (p *KeyedPool) Submit(ctx context.Context, key int64, task Task) error {
	if task == nil {
		return ErrNilTask
	}
	select {
	case <-p.quit:
		return ErrPoolClosed
	default:
	}
	select {
	case p.shards[p.shardFor(key)] <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.quit:
		return ErrPoolClosed
	}
}

func (p *KeyedPool) shardFor(key int64) int {
	k := uint64(key)
	return int(k % uint64(len(p.shards)))
}

// Stop waits for running tasks; queued tasks are discarded.
func (p *KeyedPool) Stop() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}
