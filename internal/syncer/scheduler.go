package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/modicscan/syncengine/internal/logging"
)

// errRetryRun signals the backoff loop that the run ended in RETRY.
var errRetryRun = errors.New("sync run ended in retry state")

// request is one queued sync request. Requests are keyed by name: a second
// request under the same name replaces the queued one instead of piling up.
type request struct {
	name  string
	scope Scope
}

// Scheduler serializes sync runs. Each request occupies a named slot while
// queued; an in-flight run is never preempted, so a trigger arriving during
// a run of the same name queues a fresh one (at-least-once).
type Scheduler struct {
	orch    *Orchestrator
	logger  logging.Logger
	initial time.Duration
	maxWait time.Duration
	retries uint64

	mu    sync.Mutex
	slots map[string]*request
	order []string

	wake chan struct{}
	done chan struct{}
}

// NewScheduler builds a scheduler that retries RETRY-state runs with
// exponential backoff starting at initial, capped at maxWait, at most
// maxRetries times per request.
func NewScheduler(orch *Orchestrator, initial, maxWait time.Duration, maxRetries uint64,
	logger logging.Logger) *Scheduler {
	return &Scheduler{
		orch:    orch,
		logger:  logger,
		initial: initial,
		maxWait: maxWait,
		retries: maxRetries,
		slots:   map[string]*request{},
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Trigger requests a sync run under the given slot name. A queued request
// with the same name is replaced; otherwise the request is appended.
func (s *Scheduler) Trigger(name string, scope Scope) {
	s.mu.Lock()
	if existing, ok := s.slots[name]; ok {
		existing.scope = scope
	} else {
		req := &request{name: name, scope: scope}
		s.slots[name] = req
		s.order = append(s.order, name)
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued, not-yet-started requests.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Run processes requests until ctx is cancelled. Call it from a dedicated
// goroutine; Wait blocks until it returns.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.done)
	for {
		req := s.pop()
		if req == nil {
			select {
			case <-s.wake:
				continue
			case <-ctx.Done():
				return
			}
		}

		s.execute(ctx, req)
		if ctx.Err() != nil {
			return
		}
	}
}

// Wait blocks until Run has returned.
func (s *Scheduler) Wait() {
	<-s.done
}

// pop removes and returns the oldest queued request, or nil. Removal happens
// before execution so a same-name trigger during the run books a new slot.
func (s *Scheduler) pop() *request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return nil
	}
	name := s.order[0]
	s.order = s.order[1:]
	req := s.slots[name]
	delete(s.slots, name)
	return req
}

func (s *Scheduler) execute(ctx context.Context, req *request) {
	backoff := retry.WithMaxRetries(s.retries,
		retry.WithCappedDuration(s.maxWait, retry.NewExponential(s.initial)))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		state, runErr := s.orch.Run(ctx, req.scope)
		switch state {
		case StateSuccess:
			return nil
		case StateRetry:
			s.logger.Warn(ctx, "sync run will be retried", "slot", req.name, "error", runErr)
			return retry.RetryableError(errRetryRun)
		default:
			return runErr
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error(ctx, "sync run gave up", "slot", req.name, "scope", req.scope, "error", err)
	}
}
