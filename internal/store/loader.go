package store

import (
	"context"
	"fmt"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/roach88/shopfloor/internal/graph"
	"github.com/roach88/shopfloor/internal/ir"
	"github.com/roach88/shopfloor/internal/schema"
)

// DefaultBatchWait is how long a navigation loader collects keys before
// it issues its query.
const DefaultBatchWait = 2 * time.Millisecond

// MaxBatchKeys caps the keys one navigation query binds. SQLite refuses
// statements with more than 32766 parameters.
const MaxBatchKeys = 500

// sourceKey is a dataloader key carrying a typed entity key.
type sourceKey struct {
	value ir.Value
}

func (k sourceKey) String() string   { return ir.Format(k.value) }
func (k sourceKey) Raw() interface{} { return k.value }

// Expand turns roots into entity graphs with navigations loaded depth
// hops deep. Every occurrence of a related row is a fresh node, so the
// result is a tree even when the stored relations are cyclic. Nodes on
// the last level keep their navigations unloaded.
//
// Loading is batched per level: all sources reaching for the same
// navigation share one query. Loaders live for this call only.
func (s *Store) Expand(ctx context.Context, roots []Record, depth int) ([]*graph.Entity, error) {
	return s.expand(ctx, roots, depth, MaxBatchKeys)
}

func (s *Store) expand(ctx context.Context, roots []Record, depth, capacity int) ([]*graph.Entity, error) {
	x := &expander{
		store:    s,
		wait:     DefaultBatchWait,
		capacity: capacity,
		loaders:  make(map[string]*dataloader.Loader),
	}

	entities := make([]*graph.Entity, len(roots))
	level := make([]expansion, len(roots))
	for i, r := range roots {
		entities[i] = r.Entity()
		level[i] = expansion{entity: entities[i], record: r}
	}

	for d := 0; d < depth && len(level) > 0; d++ {
		next, err := x.expandLevel(ctx, level)
		if err != nil {
			return nil, err
		}
		level = next
	}
	return entities, nil
}

type expansion struct {
	entity *graph.Entity
	record Record
}

type expander struct {
	store    *Store
	wait     time.Duration
	capacity int
	loaders  map[string]*dataloader.Loader
}

func (x *expander) loader(set *schema.EntitySet, nav *schema.Navigation) *dataloader.Loader {
	id := set.Name + "/" + nav.Name
	if l, ok := x.loaders[id]; ok {
		return l
	}
	l := dataloader.NewBatchedLoader(x.batch(set, nav),
		dataloader.WithWait(x.wait),
		dataloader.WithBatchCapacity(x.capacity),
	)
	x.loaders[id] = l
	return l
}

func (x *expander) batch(set *schema.EntitySet, nav *schema.Navigation) dataloader.BatchFunc {
	return func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		sources := make([]ir.Value, len(keys))
		for i, k := range keys {
			sources[i] = k.Raw().(ir.Value)
		}

		related, err := x.store.related(ctx, set, nav, sources)
		results := make([]*dataloader.Result, len(keys))
		for i, k := range keys {
			if err != nil {
				results[i] = &dataloader.Result{Error: err}
				continue
			}
			results[i] = &dataloader.Result{Data: related[k.String()]}
		}
		return results
	}
}

func (x *expander) expandLevel(ctx context.Context, level []expansion) ([]expansion, error) {
	type waiting struct {
		node  expansion
		index int
		nav   *schema.Navigation
		thunk dataloader.Thunk
	}

	var pending []waiting
	for _, node := range level {
		set := node.record.Set()
		key := node.record.Key()
		for i := range set.Navigations {
			nav := &set.Navigations[i]
			pending = append(pending, waiting{
				node:  node,
				index: i,
				nav:   nav,
				thunk: x.loader(set, nav).Load(ctx, sourceKey{value: key}),
			})
		}
	}

	var next []expansion
	for _, w := range pending {
		data, err := w.thunk()
		if err != nil {
			return nil, fmt.Errorf("expand %s.%s: %w", w.node.entity.Set, w.nav.Name, err)
		}
		related, _ := data.([]Record)

		if w.nav.Many {
			children := make([]*graph.Entity, len(related))
			for i, r := range related {
				children[i] = r.Entity()
				next = append(next, expansion{entity: children[i], record: r})
			}
			w.node.entity.Navigations[w.index].Target = graph.Collection{Entities: children}
			continue
		}

		var child *graph.Entity
		if len(related) > 0 {
			child = related[0].Entity()
			next = append(next, expansion{entity: child, record: related[0]})
		}
		w.node.entity.Navigations[w.index].Target = graph.Single{Entity: child}
	}
	return next, nil
}
