package scheduler

import (
	"context"
	"sync"
	"time"

	"auction-house/utils"
)

// Sweep is one unit of periodic work. It must be idempotent: the runner
// re-invokes it every interval and after recovered panics.
type Sweep func(ctx context.Context)

// Periodic runs a sweep on a fixed interval until its context is canceled.
// Cancellation interrupts the sleep between ticks, never an in-flight sweep;
// a panicking sweep is recovered and logged so the loop outlives it.
type Periodic struct {
	name     string
	interval time.Duration
	sweep    Sweep
}

// NewPeriodic creates a named periodic task
func NewPeriodic(name string, interval time.Duration, sweep Sweep) *Periodic {
	return &Periodic{name: name, interval: interval, sweep: sweep}
}

// Run blocks until ctx is canceled, executing the sweep once per interval.
func (p *Periodic) Run(ctx context.Context) {
	utils.Info("periodic task started", map[string]any{
		"task":     p.name,
		"interval": p.interval.String(),
	})

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			utils.Info("periodic task stopped", map[string]any{"task": p.name})
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

// runOnce executes a single sweep with panic isolation
func (p *Periodic) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			utils.Error("periodic task panicked, continuing next tick", map[string]any{
				"task":  p.name,
				"panic": r,
			})
		}
	}()
	p.sweep(ctx)
}

// Group runs several periodic tasks and waits for all of them on shutdown.
type Group struct {
	wg sync.WaitGroup
}

// Go starts a task under the group's lifetime
func (g *Group) Go(ctx context.Context, p *Periodic) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		p.Run(ctx)
	}()
}

// Wait blocks until every started task has exited
func (g *Group) Wait() {
	g.wg.Wait()
}
