package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/shopfloor/internal/graph"
	"github.com/roach88/shopfloor/internal/ir"
	"github.com/roach88/shopfloor/internal/predicate"
	"github.com/roach88/shopfloor/internal/query"
	"github.com/roach88/shopfloor/internal/queryir"
	"github.com/roach88/shopfloor/internal/schema"
	"github.com/roach88/shopfloor/internal/store"
)

// RequestIDGenerator generates unique request ids for log correlation.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type RequestIDGenerator interface {
	Generate() string
}

// Store is the storage collaborator. *store.Store implements it.
type Store interface {
	Model() *schema.Model
	Find(ctx context.Context, set string, spec query.Spec) ([]store.Record, error)
	FindOne(ctx context.Context, set string, spec query.Spec) (store.Record, error)
	Count(ctx context.Context, set string, spec query.Spec) (int64, error)
	Property(ctx context.Context, set string, spec query.Spec, property string) (ir.Value, error)
	Expand(ctx context.Context, roots []store.Record, depth int) ([]*graph.Entity, error)
	Create(ctx context.Context, set string, row map[string]any) (store.Record, error)
	Update(ctx context.Context, set string, key ir.Value, row map[string]any) (store.Record, error)
	Delete(ctx context.Context, set string, key ir.Value) (store.DeleteResult, error)
}

// Engine answers read and write requests against a Store.
//
// Thread-safety model:
//   - all methods are safe from any goroutine if the Store is
//   - no request state outlives the call that created it
type Engine struct {
	store        Store
	ids          RequestIDGenerator
	log          *slog.Logger
	projector    graph.Projector
	expandDepth  int
	defaultLimit int64
	now          func() time.Time
	user         int64
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithExpandDepth sets the depth used when a request does not name one.
//
// Default: 2 (graph.DefaultExpandDepth). Negative values count as zero.
func WithExpandDepth(depth int) EngineOption {
	return func(e *Engine) {
		e.expandDepth = max(depth, 0)
	}
}

// WithDefaultLimit sets the page size used when a request has no top.
//
// Default: 100 (query.DefaultLimit). Non-positive values keep the default.
func WithDefaultLimit(n int64) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.defaultLimit = n
		}
	}
}

// WithClock sets the clock that stamps CreatedAt and UpdatedAt.
// Default: time.Now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithUser sets the user id stamped into CreatedBy and UpdatedBy.
// Default: 0.
func WithUser(id int64) EngineOption {
	return func(e *Engine) {
		e.user = id
	}
}

// New creates an Engine over s. A nil ids generator defaults to
// UUIDv7Generator.
func New(s Store, ids RequestIDGenerator, opts ...EngineOption) *Engine {
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	e := &Engine{
		store:        s,
		ids:          ids,
		log:          slog.Default(),
		expandDepth:  graph.DefaultExpandDepth,
		defaultLimit: query.DefaultLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Options are the query parts of a collection read. Every field is
// optional; the zero Options reads the first page in key order with the
// engine's default depth.
type Options struct {
	// Filter is the filter tree. Nil means no filter.
	Filter queryir.Node

	// OrderBy lists sort keys, most significant first.
	OrderBy []query.OrderItem

	// Search is a free-text term. Any non-nil term is refused.
	Search *string

	// Top and Skip override the default window.
	Top, Skip *int64

	// Expand overrides the engine's expand depth.
	Expand *int

	// Count asks for the total number of matches, ignoring the window.
	Count bool
}

// CollectionResult is the answer to ReadCollection.
type CollectionResult struct {
	RequestID string
	Set       string
	Entities  []graph.Projection

	// Count is set only when Options.Count was.
	Count *int64
}

// EntityResult is the answer to ReadEntity.
type EntityResult struct {
	RequestID string
	Entity    graph.Projection
}

// PropertyResult is the answer to ReadProperty. A nil Value is null.
type PropertyResult struct {
	RequestID string
	Name      string
	Value     ir.Value
}

// ReadCollection reads one page of set matching opts and projects every
// row with the requested expand depth.
func (e *Engine) ReadCollection(ctx context.Context, set string, opts Options) (*CollectionResult, error) {
	id := e.ids.Generate()
	log := e.log.With("request_id", id, "entity_set", set)

	depth, err := e.depth(opts.Expand)
	if err != nil {
		return nil, e.fail(ctx, log, id, err)
	}
	window, err := e.window(opts.Top, opts.Skip)
	if err != nil {
		return nil, e.fail(ctx, log, id, err)
	}
	spec, err := query.NewComposer().
		AddSearch(opts.Search).
		AddFilter(opts.Filter).
		AddOrder(query.CompileOrder(opts.OrderBy)).
		AddPagination(window).
		Build()
	if err != nil {
		return nil, e.fail(ctx, log, id, err)
	}
	log.Debug("query composed", "window", spec.Window().String(), "filtered", spec.Filtered())

	records, err := e.store.Find(ctx, set, spec)
	if err != nil {
		return nil, e.fail(ctx, log, id, err)
	}
	entities, err := e.store.Expand(ctx, records, depth)
	if err != nil {
		return nil, e.fail(ctx, log, id, err)
	}

	res := &CollectionResult{
		RequestID: id,
		Set:       set,
		Entities:  e.projector.ProjectMany(entities, depth),
	}
	if opts.Count {
		n, err := e.store.Count(ctx, set, spec)
		if err != nil {
			return nil, e.fail(ctx, log, id, err)
		}
		res.Count = &n
	}

	log.Info("collection read", "rows", len(res.Entities), "depth", depth)
	return res, nil
}

// ReadEntity reads the one entity of set addressed by keys. Keys are
// name/literal pairs, so composite keys work the same as single ones.
func (e *Engine) ReadEntity(ctx context.Context, set string, keys []predicate.Key, expand *int) (*EntityResult, error) {
	id := e.ids.Generate()
	log := e.log.With("request_id", id, "entity_set", set)

	depth, err := e.depth(expand)
	if err != nil {
		return nil, e.fail(ctx, log, id, err)
	}
	record, err := e.findByKey(ctx, set, keys)
	if err != nil {
		return nil, e.fail(ctx, log, id, err)
	}
	entities, err := e.store.Expand(ctx, []store.Record{record}, depth)
	if err != nil {
		return nil, e.fail(ctx, log, id, err)
	}

	res := &EntityResult{RequestID: id, Entity: e.projector.Project(entities[0], depth)}
	log.Info("entity read", "entity_id", res.Entity.ID, "depth", depth)
	return res, nil
}

// ReadProperty reads one property of the entity addressed by keys. The
// property must be declared on set, or ErrPropertyNotFound is returned
// before storage is touched.
func (e *Engine) ReadProperty(ctx context.Context, set string, keys []predicate.Key, property string) (*PropertyResult, error) {
	id := e.ids.Generate()
	log := e.log.With("request_id", id, "entity_set", set, "property", property)

	es, err := e.set(set)
	if err != nil {
		return nil, e.fail(ctx, log, id, err)
	}
	p, ok := es.Field(property)
	if !ok {
		return nil, e.fail(ctx, log, id, fmt.Errorf("%w: %s has no property %q", ErrPropertyNotFound, set, property))
	}

	spec, err := e.keySpec(keys)
	if err != nil {
		return nil, e.fail(ctx, log, id, err)
	}
	v, err := e.store.Property(ctx, set, spec, p.Name)
	if err != nil {
		return nil, e.fail(ctx, log, id, err)
	}

	log.Info("property read", "null", v == nil)
	return &PropertyResult{RequestID: id, Name: p.Name, Value: v}, nil
}

func (e *Engine) findByKey(ctx context.Context, set string, keys []predicate.Key) (store.Record, error) {
	spec, err := e.keySpec(keys)
	if err != nil {
		return store.Record{}, err
	}
	return e.store.FindOne(ctx, set, spec)
}

func (e *Engine) keySpec(keys []predicate.Key) (query.Spec, error) {
	pred, err := predicate.KeyPredicate(keys)
	if err != nil {
		return query.Spec{}, fmt.Errorf("key: %w", err)
	}
	return query.NewComposer().AddKeys(pred).Build()
}

func (e *Engine) depth(requested *int) (int, error) {
	if requested == nil {
		return e.expandDepth, nil
	}
	if *requested < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidExpand, *requested)
	}
	return *requested, nil
}

// window applies top/skip on top of the engine's default window.
func (e *Engine) window(top, skip *int64) (query.Window, error) {
	w, err := query.DefaultWindow().WithLimit(e.defaultLimit)
	if err != nil {
		return w, err
	}
	return w.Apply(top, skip)
}

func (e *Engine) fail(ctx context.Context, log *slog.Logger, id string, err error) error {
	re := NewRequestError(id, err)
	level := slog.LevelWarn
	if re.Class == ClassInternal {
		level = slog.LevelError
	}
	log.Log(ctx, level, "request failed",
		"code", re.Code,
		"class", re.Class,
		"error", re.Err,
	)
	return re
}
