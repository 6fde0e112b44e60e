package gate

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"
)

// Gate paces calls to the game api. A caller may pass perSecond times each
// second, and once that is used up it draws from a burst bucket that refills
// every minute. Waiting callers are released in the order they arrived.
type Gate struct {
	perSecond   int
	burst       int
	secondCount int
	burstCount  int
	lockedUntil time.Time
	queue       *list.List
	mu          sync.Mutex
	stop        chan struct{}
	stopOnce    sync.Once
}

const (
	secondWindow = time.Second + 20*time.Millisecond
	burstWindow  = time.Minute
	checkEvery   = 20 * time.Millisecond
)

// New starts a gate. Stop must be called to release its goroutine.
func New(perSecond, burst int) *Gate {
	g := &Gate{
		perSecond: perSecond,
		burst:     burst,
		queue:     list.New(),
		stop:      make(chan struct{}),
	}
	go g.loop()
	return g
}

func (g *Gate) loop() {
	secondTicker := time.NewTicker(secondWindow)
	burstTicker := time.NewTicker(burstWindow)
	check := time.NewTicker(checkEvery)
	defer secondTicker.Stop()
	defer burstTicker.Stop()
	defer check.Stop()

	for {
		select {
		case <-g.stop:
			return
		case <-secondTicker.C:
			g.mu.Lock()
			g.secondCount = 0
			g.mu.Unlock()
		case <-burstTicker.C:
			g.mu.Lock()
			g.burstCount = 0
			g.mu.Unlock()
		case now := <-check.C:
			g.release(now)
		}
	}
}

// release hands out as many slots as the current windows allow.
func (g *Gate) release(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if now.Before(g.lockedUntil) {
		return
	}
	for node := g.queue.Front(); node != nil; node = g.queue.Front() {
		switch {
		case g.secondCount < g.perSecond:
			g.secondCount++
		case g.burstCount < g.burst:
			g.burstCount++
		default:
			return
		}
		c := node.Value.(chan struct{})
		g.queue.Remove(node)
		close(c)
	}
}

// Latch blocks until the caller may send a request or ctx is done.
func (g *Gate) Latch(ctx context.Context) error {
	c := make(chan struct{})
	g.mu.Lock()
	node := g.queue.PushBack(c)
	g.mu.Unlock()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		g.mu.Lock()
		select {
		case <-c:
			// released while we were giving up; the slot is spent anyway
		default:
			g.queue.Remove(node)
		}
		g.mu.Unlock()
		slog.Debug("gate latch abandoned", "error", ctx.Err())
		return ctx.Err()
	}
}

// Lock closes the gate for d, used after the api answers 429.
func (g *Gate) Lock(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	until := time.Now().Add(d)
	if until.After(g.lockedUntil) {
		g.lockedUntil = until
	}
	slog.Warn("gate locked after rate limit", "for", d)
}

// Stop ends the gate loop. Callers still waiting will only return through
// their context.
func (g *Gate) Stop() {
	g.stopOnce.Do(func() { close(g.stop) })
}
