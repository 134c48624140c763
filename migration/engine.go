package migration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/teranos/pam/artefact"
	"github.com/teranos/pam/errors"
	"github.com/teranos/pam/logger"
)

// Resolver finds the container for an artefact type. *artefact.Registry implements it.
type Resolver interface {
	Resolve(typeID string) (artefact.Container, error)
}

// Result summarises a run. It is returned even when the run did not complete.
type Result struct {
	Operation Operation
	Total     int
	Completed int
	// Duplicates holds the copies made by OpDuplicate, in plan order.
	Duplicates []artefact.Artefact
}

// Engine executes migration plans through a Resolver.
type Engine struct {
	resolver    Resolver
	observer    Observer
	concurrency int
	limiter     *rate.Limiter
	mode        ProgressMode
	log         *zap.SugaredLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver sets the event observer. Combine several with Observers.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithConcurrency allows up to n units in flight. n <= 1 runs strictly in plan order.
func WithConcurrency(n int) Option {
	return func(e *Engine) { e.concurrency = n }
}

// WithRateLimit throttles unit dispatch. A nil limiter disables throttling.
func WithRateLimit(l *rate.Limiter) Option {
	return func(e *Engine) { e.limiter = l }
}

// WithProgressMode selects the percentage arithmetic.
func WithProgressMode(m ProgressMode) Option {
	return func(e *Engine) { e.mode = m }
}

// WithLogger sets the engine's logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(e *Engine) { e.log = log }
}

// NewEngine creates an engine dispatching through resolver.
func NewEngine(resolver Resolver, opts ...Option) *Engine {
	e := &Engine{
		resolver:    resolver,
		concurrency: 1,
		mode:        ProgressStep,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.ComponentLogger("migration.engine")
	}
	if e.observer == nil {
		e.observer = Observers()
	}
	return e
}

// run is the mutable state of one Run call. mu serialises progress accounting
// and observer calls.
type run struct {
	e        *Engine
	ctx      context.Context
	log      *zap.SugaredLogger
	op       Operation
	total    int
	mu       sync.Mutex
	done     int
	percent  int
	dups     []*artefact.Artefact
	failure  *UnitFailure
	canceled error
}

// Run plans req and executes every unit. The first unit error aborts the batch
// with a *UnitFailure; nothing is retried or rolled back. Cancelling ctx stops
// dispatch before the next unit and returns an error wrapping ctx.Err(). A
// throttle wait that would outlast ctx's deadline stops the run the same way,
// before the deadline fires, with an error wrapping context.DeadlineExceeded.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	plan := NewPlan(req)
	r := &run{
		e:     e,
		ctx:   ctx,
		log:   logger.LoggerFromContext(ctx, e.log).With(logger.FieldOperation, string(req.Operation)),
		op:    req.Operation,
		total: plan.Total(),
		dups:  make([]*artefact.Artefact, plan.Total()),
	}
	start := time.Now()

	r.log.Infow("Migration started",
		logger.FieldOwnerID, req.Source.ID,
		logger.FieldCount, len(req.Artefacts),
		logger.FieldTotalCount, r.total,
	)
	r.emit(Event{Kind: EventStarted, Message: startMessage(req.Operation, r.total)})

	if e.concurrency > 1 && r.total > 1 {
		r.dispatchConcurrent(plan)
	} else {
		r.dispatchSequential(plan)
	}

	res := r.result()
	fields := []interface{}{
		logger.FieldCount, res.Completed,
		logger.FieldTotalCount, res.Total,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	}

	switch {
	case r.failure != nil:
		r.log.Errorw("Migration aborted", append(fields, logger.FieldError, r.failure)...)
		unit := r.failure.Unit
		r.emit(Event{Kind: EventFailed, Percent: r.percent, Message: "Failed: " + r.failure.Error(), Unit: &unit, Err: r.failure})
		return res, r.failure
	case r.canceled != nil:
		err := errors.Wrapf(r.canceled, "%s cancelled after %d of %d units", req.Operation, res.Completed, res.Total)
		r.log.Warnw("Migration cancelled", fields...)
		r.emit(Event{Kind: EventCancelled, Percent: r.percent, Message: "Cancelled", Err: err})
		return res, err
	default:
		r.log.Infow("Migration completed", fields...)
		r.emit(Event{Kind: EventCompleted, Percent: 100, Message: doneMessage(req.Operation, r.total)})
		return res, nil
	}
}

func (r *run) dispatchSequential(plan Plan) {
	for _, u := range plan.Units {
		if err := r.ctx.Err(); err != nil {
			r.canceled = err
			return
		}
		if !r.execute(r.ctx, u) {
			return
		}
	}
}

// dispatchConcurrent keeps up to concurrency units in flight. After the first
// failure or cancellation no further unit starts; units already running finish
// under the caller's context.
func (r *run) dispatchConcurrent(plan Plan) {
	g, gctx := errgroup.WithContext(r.ctx)
	g.SetLimit(r.e.concurrency)

	for _, u := range plan.Units {
		if r.stopped(gctx) {
			break
		}
		g.Go(func() error {
			if r.stopped(gctx) {
				return nil
			}
			if !r.execute(r.ctx, u) {
				return errors.ErrUnitFailure
			}
			return nil
		})
	}
	_ = g.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failure == nil && r.canceled == nil && r.done < r.total {
		if err := r.ctx.Err(); err != nil {
			r.canceled = err
		}
	}
}

func (r *run) stopped(gctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failure != nil || r.canceled != nil {
		return true
	}
	if err := r.ctx.Err(); err != nil {
		r.canceled = err
		return true
	}
	return gctx.Err() != nil
}

// execute runs one unit and records its outcome. It reports false when the batch
// must stop.
func (r *run) execute(ctx context.Context, u Unit) bool {
	if r.e.limiter != nil {
		if err := r.e.limiter.Wait(ctx); err != nil {
			if ctx.Err() == nil {
				// The next token comes after ctx's deadline
				err = errors.Wrapf(context.DeadlineExceeded, "throttle: %v", err)
			}
			r.cancel(err)
			return false
		}
		if r.halted() {
			return false
		}
	}

	dup, err := r.call(ctx, u)
	if err != nil {
		r.stop(u, err)
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if dup != nil {
		r.dups[u.Index] = dup
	}
	r.done++
	if p := r.e.mode.Percent(r.done, r.total); p > r.percent {
		r.percent = p
	}
	r.log.Debugw("Unit completed",
		logger.FieldUnit, u.Index,
		logger.FieldArtefactID, u.Artefact.ID,
		logger.FieldPercent, r.percent,
	)
	r.emitLocked(Event{Kind: EventProgress, Percent: r.percent, Message: stepMessage(r.op), Unit: &u})
	return true
}

func (r *run) call(ctx context.Context, u Unit) (*artefact.Artefact, error) {
	c, err := r.e.resolver.Resolve(string(u.Artefact.Type))
	if err != nil {
		return nil, err
	}
	switch u.Operation {
	case OpDelete:
		return nil, c.Delete(ctx, u.Artefact)
	case OpAssign:
		return nil, c.Assign(ctx, u.Artefact, *u.Target)
	case OpDuplicate:
		dup, err := c.Duplicate(ctx, u.Artefact, *u.Target)
		if err != nil {
			return nil, err
		}
		return &dup, nil
	default:
		return nil, errors.NewInvalidRequestError("unknown operation %q", u.Operation)
	}
}

// stop records why the batch ends. A unit error observed after the caller
// cancelled counts as cancellation, never as a failure.
func (r *run) stop(u Unit, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failure != nil || r.canceled != nil {
		return
	}
	if ctxErr := r.ctx.Err(); ctxErr != nil {
		r.canceled = ctxErr
		return
	}
	r.failure = &UnitFailure{Unit: u, Err: err}
}

func (r *run) cancel(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failure == nil && r.canceled == nil {
		r.canceled = err
	}
}

func (r *run) halted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failure != nil || r.canceled != nil
}

func (r *run) result() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := &Result{Operation: r.op, Total: r.total, Completed: r.done}
	for _, d := range r.dups {
		if d != nil {
			res.Duplicates = append(res.Duplicates, *d)
		}
	}
	return res
}

func (r *run) emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emitLocked(ev)
}

func (r *run) emitLocked(ev Event) {
	ev.Operation = r.op
	ev.Completed = r.done
	ev.Total = r.total
	r.e.observer.Observe(ev)
}

func startMessage(op Operation, total int) string {
	if op == OpDelete {
		return fmt.Sprintf("Deleting %d artefacts", total)
	}
	return fmt.Sprintf("Processing %d artefacts", total)
}

func stepMessage(op Operation) string {
	if op == OpDelete {
		return "Deleting artefacts"
	}
	return "Processing artefacts"
}

func doneMessage(op Operation, total int) string {
	if op == OpDelete {
		return fmt.Sprintf("Deleted %d artefacts", total)
	}
	return fmt.Sprintf("Processed %d artefacts", total)
}
