package reservoir

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// shutdownGrace bounds how long Close waits for outstanding allocators to
// observe cancellation before giving up and releasing linked workers
// anyway, mirroring a SIGTERM-then-force-teardown supervisor.
const shutdownGrace = 3 * time.Second

const defaultReplyTimeout = 500 * time.Millisecond

// CoreConfig carries the resolved (non-default) construction options the
// facade package parses from functional options. internal/reservoir never
// parses options itself; it only accepts the result.
type CoreConfig struct {
	Logger       *zap.Logger
	Limiter      *RateLimiter
	ReplyTimeout time.Duration
	DebugDump    bool
}

// Core is the single-threaded state machine holding the fount and the
// slab stack. All mutation happens on the goroutine started by NewCore;
// every exported method is a request/reply round trip through that
// goroutine's inbox, so callers never need their own locking.
type Core struct {
	factory  Factory
	slabSize int
	depth    int

	fount        []Worker
	fountElapsed float64
	reservoir    []Slab // stack; last element is the top
	state        State

	outstandingAllocators int

	linksMu sync.Mutex
	links   map[string]Worker

	inbox       chan any
	closeSignal chan struct{}
	closeOnce   sync.Once
	doneCh      chan struct{}

	runCtx context.Context
	cancel context.CancelFunc
	eg     *errgroup.Group
	egCtx  context.Context

	deadMu  sync.RWMutex
	dead    bool
	deadErr error

	log          *zap.Logger
	allocLog     *zap.Logger
	limiter      *RateLimiter
	replyTimeout time.Duration
	debugDump    bool
}

// NewCore constructs a reservoir and immediately schedules depth
// allocators to fill it from EMPTY, with every allocator already in flight
// before the first caller can observe the reservoir.
func NewCore(factory Factory, slabSize, depth int, cfg CoreConfig) (*Core, error) {
	if factory == nil {
		return nil, fmt.Errorf("fount: factory must not be nil")
	}
	if slabSize < 1 {
		return nil, fmt.Errorf("fount: slab-size must be >= 1, got %d", slabSize)
	}
	if depth < 2 {
		return nil, fmt.Errorf("fount: depth must be >= 2, got %d", depth)
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	replyTimeout := cfg.ReplyTimeout
	if replyTimeout <= 0 {
		replyTimeout = defaultReplyTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	eg, egCtx := errgroup.WithContext(ctx)

	c := &Core{
		factory:      factory,
		slabSize:     slabSize,
		depth:        depth,
		links:        make(map[string]Worker),
		inbox:        make(chan any, 64),
		closeSignal:  make(chan struct{}),
		doneCh:       make(chan struct{}),
		runCtx:       ctx,
		cancel:       cancel,
		eg:           eg,
		egCtx:        egCtx,
		log:          log.Named("fount.core"),
		allocLog:     log.Named("fount.allocator"),
		limiter:      cfg.Limiter,
		replyTimeout: replyTimeout,
		debugDump:    cfg.DebugDump,
	}
	c.state = deriveState(0, 0, slabSize, depth)

	for i := 0; i < depth; i++ {
		c.launchAllocator()
	}
	go c.run()
	return c, nil
}

// Link registers w as owned by the core. Part of the CoreRef contract
// handed to Factory.SpawnOne.
func (c *Core) Link(w Worker) {
	c.linksMu.Lock()
	c.links[w.ID()] = w
	c.linksMu.Unlock()
}

// Unlink removes w's entry from the link table. The core's own
// ownership-flip step does the same removal for a whole reply through
// unlinkAll, immediately before the dispensed workers are handed to a
// caller.
func (c *Core) Unlink(w Worker) {
	c.linksMu.Lock()
	delete(c.links, w.ID())
	c.linksMu.Unlock()
}

func (c *Core) unlinkAll(workers []Worker) {
	if len(workers) == 0 {
		return
	}
	c.linksMu.Lock()
	for _, w := range workers {
		delete(c.links, w.ID())
	}
	c.linksMu.Unlock()
}

// launchAllocator increments the outstanding-allocator count and starts one
// allocator goroutine. It must only be called from the core's own
// goroutine: the gate it maintains is core-owned state, never shared.
func (c *Core) launchAllocator() {
	c.outstandingAllocators++
	c.eg.Go(func() error {
		runAllocator(c.egCtx, c)
		return nil
	})
}

func (c *Core) postSlab(s Slab) {
	select {
	case c.inbox <- slabArrived{slab: s}:
	case <-c.runCtx.Done():
	}
}

func (c *Core) postAllocatorFailed(err error) {
	select {
	case c.inbox <- allocatorFailed{err: err}:
	case <-c.runCtx.Done():
	}
}

// run is the core's single event-processing goroutine. It services one
// event to completion before the next: single-threaded and cooperative,
// never preempted mid-event.
func (c *Core) run() {
	defer close(c.doneCh)
	for {
		select {
		case ev := <-c.inbox:
			c.handle(ev)
			if c.isDead() {
				c.teardown()
				return
			}
		case <-c.closeSignal:
			c.teardown()
			return
		}
	}
}

func (c *Core) handle(ev any) {
	defer func() {
		if r := recover(); r != nil {
			err := toInvariantError(r)
			c.log.Error("core terminated: invariant breach", zap.Error(err))
			c.markDead(err)
		}
	}()

	switch e := ev.(type) {
	case getPidsRequest:
		c.handleGetPids(e)
	case taskPidsRequest:
		c.handleTaskPids(e)
	case statusRequest:
		e.reply <- c.currentStatus()
	case rateSlabRequest:
		e.reply <- c.rateSlab()
	case rateProcessRequest:
		e.reply <- c.rateProcess()
	case dumpRequest:
		e.reply <- c.dump()
	case slabArrived:
		c.handleSlabArrived(e.slab)
	case allocatorFailed:
		c.outstandingAllocators--
		panic(e.err)
	default:
		c.log.Warn("ignored unrecognized event", zap.String("type", fmt.Sprintf("%T", ev)))
	}

	if c.debugDump {
		c.log.Debug("core state", zap.String("dump", c.dump()))
	}
}

func (c *Core) handleGetPids(req getPidsRequest) {
	reply := c.dispense(req.n)
	c.unlinkAll(reply)
	c.state = deriveState(len(c.fount), len(c.reservoir), c.slabSize, c.depth)
	req.reply <- reply
}

func (c *Core) handleTaskPids(req taskPidsRequest) {
	reply := c.dispense(len(req.msgs))
	c.unlinkAll(reply)
	c.state = deriveState(len(c.fount), len(c.reservoir), c.slabSize, c.depth)

	if len(reply) == 0 {
		req.reply <- nil
		return
	}

	results := make([]TaskResult, len(reply))
	for i, w := range reply {
		delivered, err := c.factory.Deliver(context.Background(), w, req.msgs[i])
		if err != nil {
			results[i] = TaskResult{Err: fmt.Errorf("fount: deliver failed: %w", err)}
			continue
		}
		results[i] = TaskResult{Worker: delivered}
	}
	req.reply <- results
}

func (c *Core) handleSlabArrived(s Slab) {
	c.outstandingAllocators--

	if c.state == StateFull {
		panic(newInvariantError("slab %s arrived while reservoir is already FULL (overfull)", s.ID))
	}

	if len(c.fount) == 0 {
		c.fount = s.Workers
		c.fountElapsed = s.ElapsedMicros
	} else {
		c.reservoir = append(c.reservoir, s)
	}
	c.state = deriveState(len(c.fount), len(c.reservoir), c.slabSize, c.depth)

	c.log.Debug("slab absorbed",
		zap.String("slab_id", s.ID.String()),
		zap.String("state", c.state.String()),
		zap.Int("fount_count", len(c.fount)),
		zap.Int("num_slabs", len(c.reservoir)),
	)
}

func (c *Core) currentStatus() Status {
	fountCount := len(c.fount)
	numSlabs := len(c.reservoir)
	return Status{
		State:      c.state,
		Factory:    c.factory,
		FountCount: fountCount,
		NumSlabs:   numSlabs,
		SlabSize:   c.slabSize,
		Depth:      c.depth,
		MaxPids:    c.depth * c.slabSize,
		PidCount:   fountCount + numSlabs*c.slabSize,
	}
}

// rateSlab implements spawn-rate-per-slab: the average elapsed time across
// every slab currently held, including the fount's elapsed time iff the
// fount is non-empty. An empty fount was never filled by an allocator, so
// its zero elapsed time is excluded rather than dragging the average down.
func (c *Core) rateSlab() float64 {
	total := 0.0
	count := 0
	for _, s := range c.reservoir {
		total += s.ElapsedMicros
		count++
	}
	if len(c.fount) > 0 {
		total += c.fountElapsed
		count++
	}
	if count == 0 {
		return 0
	}
	return roundHundredths(total / float64(count))
}

// rateProcess implements spawn-rate-per-process: total elapsed time over
// total workers held.
func (c *Core) rateProcess() float64 {
	total := 0.0
	workers := 0
	for _, s := range c.reservoir {
		total += s.ElapsedMicros
		workers += len(s.Workers)
	}
	if len(c.fount) > 0 {
		total += c.fountElapsed
		workers += len(c.fount)
	}
	if workers == 0 {
		return 0
	}
	return roundHundredths(total / float64(workers))
}

func (c *Core) markDead(err error) {
	c.deadMu.Lock()
	c.dead = true
	c.deadErr = err
	c.deadMu.Unlock()
}

func (c *Core) isDead() bool {
	c.deadMu.RLock()
	defer c.deadMu.RUnlock()
	return c.dead
}

// Err returns the invariant breach that killed the core, or nil if the
// core is alive or was closed gracefully.
func (c *Core) Err() error {
	c.deadMu.RLock()
	defer c.deadMu.RUnlock()
	return c.deadErr
}

func (c *Core) terminalErr() error {
	if err := c.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCoreDead, err)
	}
	return ErrCoreClosed
}

func (c *Core) withReplyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.replyTimeout)
}

// request performs one round trip through the core's inbox: send an event
// built by mk, then wait for the reply it carries. It is generic over the
// reply type so every operation (get-pids, status, the rate queries, the
// debug dump) shares one send/wait/timeout implementation.
func request[T any](c *Core, ctx context.Context, mk func(reply chan T) any) (T, error) {
	var zero T
	if err := c.Err(); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrCoreDead, err)
	}

	ctx, cancel := c.withReplyTimeout(ctx)
	defer cancel()

	reply := make(chan T, 1)
	ev := mk(reply)

	select {
	case c.inbox <- ev:
	case <-c.doneCh:
		return zero, c.terminalErr()
	case <-ctx.Done():
		return zero, fmt.Errorf("fount: request timed out: %w", ctx.Err())
	}

	select {
	case v := <-reply:
		return v, nil
	case <-c.doneCh:
		return zero, c.terminalErr()
	case <-ctx.Done():
		return zero, fmt.Errorf("fount: request timed out: %w", ctx.Err())
	}
}

// GetPids dispenses up to n workers. An empty, nil-error reply means the
// request was refused (n exceeded current inventory).
func (c *Core) GetPids(ctx context.Context, n int) ([]Worker, error) {
	if n < 0 {
		return nil, fmt.Errorf("fount: n must be >= 0, got %d", n)
	}
	return request(c, ctx, func(reply chan []Worker) any {
		return getPidsRequest{n: n, reply: reply}
	})
}

// TaskPids dispenses len(msgs) workers and delivers msgs[i] to the i-th
// dispensed worker.
func (c *Core) TaskPids(ctx context.Context, msgs []any) ([]TaskResult, error) {
	return request(c, ctx, func(reply chan []TaskResult) any {
		return taskPidsRequest{msgs: msgs, reply: reply}
	})
}

// Status returns a snapshot of current content.
func (c *Core) Status(ctx context.Context) (Status, error) {
	return request(c, ctx, func(reply chan Status) any {
		return statusRequest{reply: reply}
	})
}

// RatePerSlab returns spawn-rate-per-slab.
func (c *Core) RatePerSlab(ctx context.Context) (float64, error) {
	return request(c, ctx, func(reply chan float64) any {
		return rateSlabRequest{reply: reply}
	})
}

// RatePerProcess returns spawn-rate-per-process.
func (c *Core) RatePerProcess(ctx context.Context) (float64, error) {
	return request(c, ctx, func(reply chan float64) any {
		return rateProcessRequest{reply: reply}
	})
}

// Dump renders internal content for diagnostics.
func (c *Core) Dump(ctx context.Context) (string, error) {
	return request(c, ctx, func(reply chan string) any {
		return dumpRequest{reply: reply}
	})
}

// Close cancels the core's lifetime, waits up to shutdownGrace for
// outstanding allocators to observe cancellation, then releases any
// resident (never-dispensed) workers that implement Releasable. Close is
// idempotent; concurrent and repeated calls all observe the same shutdown.
func (c *Core) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		close(c.closeSignal)
	})
	select {
	case <-c.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Core) teardown() {
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.eg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		c.log.Warn("allocators did not exit within grace period during close")
	}

	c.releaseLinked()
}

func (c *Core) releaseLinked() {
	c.linksMu.Lock()
	links := c.links
	c.links = make(map[string]Worker)
	c.linksMu.Unlock()

	for _, w := range links {
		if r, ok := w.(Releasable); ok {
			r.Release()
		}
	}
}
