package draft

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tripnav/internal/events"
	"tripnav/internal/model"
	"tripnav/internal/reconcile"
	"tripnav/internal/routing"
	"tripnav/internal/transport"
)

// RouteSaver persists built drafts.
type RouteSaver interface {
	SaveRoute(ctx context.Context, r model.StoredRoute) (model.StoredRoute, error)
}

// Engine holds all drafts in memory. Each draft is edited under the engine
// lock; the provider call of a build runs without it.
type Engine struct {
	mu     sync.Mutex
	drafts map[string]*state
	picks  map[string]pick

	registry   reconcile.Registry
	reconciler *reconcile.Reconciler
	builder    *routing.Builder
	estimator  *transport.Estimator
	saver      RouteSaver
	pub        events.Publisher
	logger     *zap.Logger
	simplify   float64
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

func WithPublisher(p events.Publisher) Option { return func(e *Engine) { e.pub = p } }

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.logger = l } }

func WithRouteSaver(s RouteSaver) Option { return func(e *Engine) { e.saver = s } }

// WithSimplifyTolerance sets the Douglas-Peucker threshold, in degrees,
// applied to polylines before they are saved. Zero keeps every vertex.
func WithSimplifyTolerance(t float64) Option { return func(e *Engine) { e.simplify = t } }

// NewEngine wires an engine. registry may be nil; nil builder and estimator
// select a fallback-only builder and the default profile table.
func NewEngine(registry reconcile.Registry, builder *routing.Builder, estimator *transport.Estimator, opts ...Option) *Engine {
	if builder == nil {
		builder = routing.NewBuilder(nil)
	}
	if estimator == nil {
		estimator = transport.NewEstimator(nil)
	}
	e := &Engine{
		drafts:     map[string]*state{},
		picks:      map[string]pick{},
		registry:   registry,
		reconciler: reconcile.NewReconciler(registry),
		builder:    builder,
		estimator:  estimator,
		pub:        events.Nop{},
		logger:     zap.NewNop(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Create starts an empty idle draft.
func (e *Engine) Create(ctx context.Context, title string) Draft {
	now := e.now()
	s := &state{Draft: Draft{
		ID:        newID(),
		Title:     title,
		Status:    Idle,
		Profile:   transport.Car,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	e.mu.Lock()
	e.drafts[s.ID] = s
	d := s.snapshot()
	e.mu.Unlock()
	e.publish(ctx, events.DraftCreated, d.ID, nil)
	return d
}

// Snapshot returns a copy of the draft.
func (e *Engine) Snapshot(id string) (Draft, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.drafts[id]
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	return s.snapshot(), nil
}

// List returns every draft, oldest first.
func (e *Engine) List() []Draft {
	e.mu.Lock()
	out := make([]Draft, 0, len(e.drafts))
	for _, s := range e.drafts {
		out = append(out, s.snapshot())
	}
	e.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Delete drops a draft and its pending picks.
func (e *Engine) Delete(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.drafts[id]; !ok {
		return ErrDraftNotFound
	}
	delete(e.drafts, id)
	for pid, p := range e.picks {
		if p.draftID == id {
			delete(e.picks, pid)
		}
	}
	return nil
}

// StagePoint appends a raw point. Points are validated at build time.
func (e *Engine) StagePoint(ctx context.Context, id string, raw reconcile.RawPoint) (StagedPoint, error) {
	return e.stageAt(ctx, id, -1, raw)
}

func (e *Engine) stageAt(ctx context.Context, id string, at int, raw reconcile.RawPoint) (StagedPoint, error) {
	if raw.IsZero() {
		return StagedPoint{}, fmt.Errorf("%w: empty point", reconcile.ErrMalformedPoint)
	}
	e.mu.Lock()
	s, err := e.editable(id)
	if err != nil {
		e.mu.Unlock()
		return StagedPoint{}, err
	}
	pid := raw.ID()
	if pid == "" {
		pid = newID()
		raw = raw.WithID(pid)
	}
	sp := StagedPoint{ID: s.stagedKey(pid), Title: raw.Title(), Raw: raw}
	if at < 0 || at > len(s.Staged) {
		at = len(s.Staged)
	}
	s.Staged = append(s.Staged, StagedPoint{})
	copy(s.Staged[at+1:], s.Staged[at:])
	s.Staged[at] = sp
	s.reindex()
	e.edited(s)
	sp = s.Staged[at]
	count := len(s.Staged)
	e.mu.Unlock()
	e.publish(ctx, events.DraftPointsChanged, id, map[string]any{"staged": count})
	return sp, nil
}

// RemovePoint drops a staged point by id.
func (e *Engine) RemovePoint(ctx context.Context, id, pointID string) error {
	e.mu.Lock()
	s, err := e.editable(id)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	i := s.indexOf(pointID)
	if i < 0 {
		e.mu.Unlock()
		return ErrPointNotFound
	}
	s.Staged = append(s.Staged[:i], s.Staged[i+1:]...)
	s.reindex()
	e.edited(s)
	count := len(s.Staged)
	e.mu.Unlock()
	e.publish(ctx, events.DraftPointsChanged, id, map[string]any{"staged": count})
	return nil
}

// ReorderPoints applies a new order given as a permutation of staged ids.
func (e *Engine) ReorderPoints(ctx context.Context, id string, order []string) error {
	e.mu.Lock()
	s, err := e.editable(id)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if len(order) != len(s.Staged) {
		e.mu.Unlock()
		return ErrInvalidOrder
	}
	next := make([]StagedPoint, 0, len(order))
	seen := make(map[string]bool, len(order))
	for _, pid := range order {
		i := s.indexOf(pid)
		if i < 0 || seen[pid] {
			e.mu.Unlock()
			return ErrInvalidOrder
		}
		seen[pid] = true
		next = append(next, s.Staged[i])
	}
	s.Staged = next
	s.reindex()
	e.edited(s)
	e.mu.Unlock()
	e.publish(ctx, events.DraftPointsChanged, id, map[string]any{"staged": len(order)})
	return nil
}

// Reset clears points, geometry and statistics. A build in flight is
// discarded when it completes.
func (e *Engine) Reset(ctx context.Context, id string) (Draft, error) {
	e.mu.Lock()
	s, ok := e.drafts[id]
	if !ok {
		e.mu.Unlock()
		return Draft{}, ErrDraftNotFound
	}
	if s.Status != Idle && !s.Status.CanTransitionTo(Idle) {
		e.mu.Unlock()
		return Draft{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, Idle)
	}
	s.Status = Idle
	s.Staged = nil
	s.clearResult()
	s.generation++
	s.rev++
	s.UpdatedAt = e.now()
	d := s.snapshot()
	e.mu.Unlock()
	e.publish(ctx, events.DraftReset, id, nil)
	return d, nil
}

// editable returns the draft if its points may be edited. Callers hold e.mu.
func (e *Engine) editable(id string) (*state, error) {
	s, ok := e.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	if s.Status == Building {
		return nil, ErrBuildInProgress
	}
	return s, nil
}

// edited records a point edit. A built or failed result no longer matches the
// points, so the draft returns to idle. Callers hold e.mu.
func (e *Engine) edited(s *state) {
	if s.Status != Idle {
		s.Status = Idle
		s.clearResult()
	}
	s.rev++
	s.UpdatedAt = e.now()
}

func newID() string { return uuid.New().String() }

func (e *Engine) publish(ctx context.Context, typ, draftID string, data map[string]any) {
	e.pub.Publish(ctx, events.New(typ, draftID, data))
}
