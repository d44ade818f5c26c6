package engine

import (
	"context"
	"fmt"
	"maps"

	"github.com/roach88/shopfloor/internal/predicate"
	"github.com/roach88/shopfloor/internal/schema"
	"github.com/roach88/shopfloor/internal/store"
)

// Audit properties. The engine owns them: any value a request supplies
// is overwritten when the set declares the property.
const (
	CreatedBy = "CreatedBy"
	CreatedAt = "CreatedAt"
	UpdatedBy = "UpdatedBy"
	UpdatedAt = "UpdatedAt"
)

// DeleteResult is the answer to DeleteEntity.
type DeleteResult struct {
	RequestID string

	// ID is the entity id of the removed row, such as "Orders(1)".
	ID string

	// Unlinked counts join rows deleted and foreign keys cleared.
	Unlinked int
}

// CreateEntity stores a new entity of set and returns its projection.
// Row maps property names to values and navigation names to related
// keys. A missing single int key is assigned by the store.
func (e *Engine) CreateEntity(ctx context.Context, set string, row map[string]any, expand *int) (*EntityResult, error) {
	id := e.ids.Generate()
	log := e.log.With("request_id", id, "entity_set", set)

	depth, err := e.depth(expand)
	if err != nil {
		return nil, e.fail(ctx, log, id, err)
	}
	es, err := e.set(set)
	if err != nil {
		return nil, e.fail(ctx, log, id, err)
	}

	row = e.stamp(es, row, CreatedBy, CreatedAt)
	record, err := e.store.Create(ctx, set, row)
	if err != nil {
		return nil, e.fail(ctx, log, id, err)
	}
	res, err := e.project(ctx, id, record, depth)
	if err != nil {
		return nil, e.fail(ctx, log, id, err)
	}

	log.Info("entity created", "entity_id", res.Entity.ID)
	return res, nil
}

// UpdateEntity patches the entity of set addressed by keys with the
// properties in row and returns its projection. Properties row leaves
// out keep their value; a nil value clears one.
func (e *Engine) UpdateEntity(ctx context.Context, set string, keys []predicate.Key, row map[string]any, expand *int) (*EntityResult, error) {
	id := e.ids.Generate()
	log := e.log.With("request_id", id, "entity_set", set)

	depth, err := e.depth(expand)
	if err != nil {
		return nil, e.fail(ctx, log, id, err)
	}
	current, err := e.findByKey(ctx, set, keys)
	if err != nil {
		return nil, e.fail(ctx, log, id, err)
	}

	row = e.stamp(current.Set(), row, UpdatedBy, UpdatedAt)
	record, err := e.store.Update(ctx, set, current.Key(), row)
	if err != nil {
		return nil, e.fail(ctx, log, id, err)
	}
	res, err := e.project(ctx, id, record, depth)
	if err != nil {
		return nil, e.fail(ctx, log, id, err)
	}

	log.Info("entity updated", "entity_id", res.Entity.ID, "fields", len(row))
	return res, nil
}

// DeleteEntity removes the entity of set addressed by keys. Links to it
// from join tables and foreign keys are cleared first.
func (e *Engine) DeleteEntity(ctx context.Context, set string, keys []predicate.Key) (*DeleteResult, error) {
	id := e.ids.Generate()
	log := e.log.With("request_id", id, "entity_set", set)

	current, err := e.findByKey(ctx, set, keys)
	if err != nil {
		return nil, e.fail(ctx, log, id, err)
	}
	res, err := e.store.Delete(ctx, set, current.Key())
	if err != nil {
		return nil, e.fail(ctx, log, id, err)
	}

	out := &DeleteResult{RequestID: id, ID: current.Entity().ID(), Unlinked: res.Unlinked}
	log.Info("entity deleted", "entity_id", out.ID, "unlinked", out.Unlinked)
	return out, nil
}

func (e *Engine) set(name string) (*schema.EntitySet, error) {
	es, ok := e.store.Model().Set(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", store.ErrUnknownEntitySet, name)
	}
	return es, nil
}

// stamp returns a copy of row with the audit properties by and at set,
// skipping those es does not declare.
func (e *Engine) stamp(es *schema.EntitySet, row map[string]any, by, at string) map[string]any {
	out := make(map[string]any, len(row)+2)
	maps.Copy(out, row)
	if _, ok := es.Property(by); ok {
		out[by] = e.user
	}
	if _, ok := es.Property(at); ok {
		out[at] = e.now().UTC()
	}
	return out
}

func (e *Engine) project(ctx context.Context, id string, record store.Record, depth int) (*EntityResult, error) {
	entities, err := e.store.Expand(ctx, []store.Record{record}, depth)
	if err != nil {
		return nil, err
	}
	return &EntityResult{RequestID: id, Entity: e.projector.Project(entities[0], depth)}, nil
}
