// Package workerpool implements the bounded worker pool each transport
// runs its accepted commands through (§5's "bounded worker pool per
// transport (configurable, -1 = unbounded) that actually executes
// commands"). A listener goroutine accepts connections and hands each
// request to Submit; the pool's own goroutines are what actually park
// on the three blocking suspension points (state transitions, bus
// reads, socket I/O).
package workerpool

import (
	"context"
	"log/slog"
	"sync"
)

// Task is one unit of work submitted to a Pool.
type Task func(ctx context.Context)

// Pool runs submitted tasks with at most Size concurrently active, or
// unboundedly if Size is zero or negative. Zero value is not usable; construct
// with New.
type Pool struct {
	logger *slog.Logger
	name   string
	sem    chan struct{} // nil when unbounded

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New builds a pool named name (used only for logging, typically the
// owning transport's name) with the given size. size <= 0 means
// unbounded: every Submit spawns its own goroutine immediately.
func New(logger *slog.Logger, name string, size int) *Pool {
	p := &Pool{
		logger: logger,
		name:   name,
		stopCh: make(chan struct{}),
	}
	if size > 0 {
		p.sem = make(chan struct{}, size)
	}
	return p
}

// Start marks the pool ready to accept work. Calling Start twice is a
// no-op.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.logger.Debug("worker pool started", "pool", p.name, "size", p.size())
}

// Stop blocks new submissions and waits for every in-flight task to
// return. Safe to call once after Start; a second call is a no-op.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("worker pool stopped", "pool", p.name)
}

// Submit runs task, blocking the caller until a slot is free (for a
// bounded pool) or running it in a fresh goroutine immediately (for an
// unbounded one). It returns false without running task if the pool
// isn't running, its stop channel closed, or ctx was already done;
// task itself still receives ctx so it can honor cancellation that
// arrives mid-run.
func (p *Pool) Submit(ctx context.Context, task Task) bool {
	if ctx.Err() != nil {
		return false
	}
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return false
	}
	p.mu.Unlock()

	if p.sem != nil {
		select {
		case p.sem <- struct{}{}:
		case <-p.stopCh:
			return false
		case <-ctx.Done():
			return false
		}
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if p.sem != nil {
			defer func() { <-p.sem }()
		}
		task(ctx)
	}()
	return true
}

func (p *Pool) size() int {
	if p.sem == nil {
		return -1
	}
	return cap(p.sem)
}

// Active reports the number of tasks currently occupying a slot in a
// bounded pool, or 0 for an unbounded one (there is no slot to count).
func (p *Pool) Active() int {
	if p.sem == nil {
		return 0
	}
	return len(p.sem)
}
