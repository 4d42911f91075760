// Package relindex implements the Relation indexer (C3, spec.md §4.1 Pass
// A): it builds a lookup from (entity-kind, id) to the relations that
// reference it, together with the member's role and the relation's tags.
// Grounded on the teacher's two-pass scan idea in parser.go (the teacher
// scans once for nodes, once for ways, relying on upstream filtering);
// generalized here into an explicit relation pass whose output feeds
// profile.RelationContext during Pass B.
package relindex

import (
	"context"

	"github.com/paulmach/osm"
	"golang.org/x/sync/errgroup"

	"github.com/LdDl/mapextract/internal/profile"
	"github.com/LdDl/mapextract/internal/source"
)

// Membership is one relation referencing an entity, with the role it was
// given and the relation's own tags (so the profile can later see, e.g.,
// `type=restriction`).
type Membership struct {
	RelationID int64
	Tags       map[string]string
	Role       string
}

type entityKey struct {
	kind source.EntityKind
	id   int64
}

// Index is the built (kind,id) -> []Membership lookup. Read-only once
// Build returns.
type Index struct {
	entries map[entityKey][]Membership
}

func newIndex() *Index {
	return &Index{entries: make(map[entityKey][]Membership)}
}

// Lookup returns the relations referencing the given entity, or nil.
func (idx *Index) Lookup(kind source.EntityKind, id int64) []Membership {
	return idx.entries[entityKey{kind, id}]
}

// Context builds a profile.RelationContext ready to hand to ProcessWay.
func (idx *Index) Context(kind source.EntityKind, id int64) profile.RelationContext {
	ms := idx.Lookup(kind, id)
	if len(ms) == 0 {
		return profile.RelationContext{}
	}
	ctx := profile.RelationContext{Relations: make([]profile.RelationMembership, len(ms))}
	for i, m := range ms {
		ctx.Relations[i] = profile.RelationMembership{RelationID: m.RelationID, Tags: m.Tags, Role: m.Role}
	}
	return ctx
}

// Len reports the number of distinct entities with at least one
// membership recorded.
func (idx *Index) Len() int { return len(idx.entries) }

func (idx *Index) merge(batch []translated) {
	for _, t := range batch {
		idx.entries[t.key] = append(idx.entries[t.key], t.membership)
	}
}

type translated struct {
	key        entityKey
	membership Membership
}

func memberKind(t osm.Type) (source.EntityKind, bool) {
	switch t {
	case osm.TypeNode:
		return source.KindNode, true
	case osm.TypeWay:
		return source.KindWay, true
	case osm.TypeRelation:
		return source.KindRelation, true
	}
	return 0, false
}

func translateBuffer(buf []source.Entity, wantedTypes map[string]bool) []translated {
	var out []translated
	for _, e := range buf {
		if e.Kind != source.KindRelation || e.Relation == nil {
			continue
		}
		r := e.Relation
		tags := profile.TagMap(r.Tags)
		if len(wantedTypes) > 0 && !wantedTypes[tags["type"]] {
			continue
		}
		for _, m := range r.Members {
			kind, ok := memberKind(m.Type)
			if !ok {
				continue
			}
			out = append(out, translated{
				key:        entityKey{kind: kind, id: m.Ref},
				membership: Membership{RelationID: int64(r.ID), Tags: tags, Role: m.Role},
			})
		}
	}
	return out
}

// Build streams relations from src, translating buffers in parallel
// (bounded by workers) while merging into the index strictly in the
// order buffers were read, matching spec.md §4.1's "relation-buffer
// translation is parallel; merging into the shared index is
// serial-in-order" discipline.
func Build(ctx context.Context, src source.Source, wantedTypes map[string]bool, workers int) (*Index, error) {
	if workers < 1 {
		workers = 1
	}
	bufs, errc := src.Stream(ctx, source.KindRelation)

	futures := make(chan chan []translated, workers*2)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(futures)
		sem := make(chan struct{}, workers)
		for buf := range bufs {
			buf := buf
			fc := make(chan []translated, 1)
			select {
			case futures <- fc:
			case <-gctx.Done():
				return gctx.Err()
			}
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			g.Go(func() error {
				defer func() { <-sem }()
				fc <- translateBuffer(buf, wantedTypes)
				close(fc)
				return nil
			})
		}
		return nil
	})

	idx := newIndex()
	g.Go(func() error {
		for fc := range futures {
			select {
			case batch := <-fc:
				idx.merge(batch)
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := <-errc; err != nil {
		return nil, err
	}
	return idx, nil
}
