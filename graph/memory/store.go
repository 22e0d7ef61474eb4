// Package memory is an in-process reference implementation of
// graph.Driver. It exists to exercise the engine end to end in tests
// without a real graph database: a small labeled-property graph held
// in maps, guarded by a RWMutex in the style of crew.Crew's
// read-mostly locking.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/graphrules/engine/ast"
	"github.com/graphrules/engine/graph"
)

// Relationship is a directed, typed link between two entities.
type Relationship struct {
	Type string
	From string
	To   string
}

// Store is a minimal labeled property graph held in memory.
type Store struct {
	mu            sync.RWMutex
	entities      map[string]map[string]*ast.Entity // type -> id -> entity
	relationships []Relationship
}

// New returns an empty Store.
func New() *Store {
	return &Store{entities: make(map[string]map[string]*ast.Entity)}
}

// PutEntity inserts or replaces an entity snapshot.
func (s *Store) PutEntity(e *ast.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.entities[e.Type]
	if !ok {
		bucket = make(map[string]*ast.Entity)
		s.entities[e.Type] = bucket
	}
	bucket[e.ID] = e
}

// Link records a directed relationship between two entity ids.
func (s *Store) Link(relType, fromID, toID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relationships = append(s.relationships, Relationship{Type: relType, From: fromID, To: toID})
}

// Get fetches a single entity by type and id.
func (s *Store) Get(ctx context.Context, entityType, id string) (*ast.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket, ok := s.entities[entityType]
	if !ok {
		return nil, nil
	}
	return bucket[id], nil
}

// Write applies a property update and returns the prior value.
func (s *Store) Write(ctx context.Context, entityType, id, property string, value interface{}) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.entities[entityType]
	if !ok {
		return nil, fmt.Errorf("memory: no entity %s/%s", entityType, id)
	}
	e, ok := bucket[id]
	if !ok {
		return nil, fmt.Errorf("memory: no entity %s/%s", entityType, id)
	}
	old := e.Properties[property]
	if e.Properties == nil {
		e.Properties = map[string]interface{}{}
	}
	e.Properties[property] = value
	return old, nil
}

// Related returns every entity reachable from (entityType, id) via an
// outgoing relationship of the given type.
func (s *Store) Related(ctx context.Context, entityType, id, relType string) ([]*ast.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket, ok := s.entities[entityType]
	if !ok || bucket[id] == nil {
		return nil, nil
	}
	var out []*ast.Entity
	for _, rel := range s.relationships {
		if rel.Type != relType || rel.From != id {
			continue
		}
		if tail := s.findByID(rel.To); tail != nil {
			out = append(out, tail)
		}
	}
	return out, nil
}

// All returns every entity currently held, grouped by type. Intended
// for callers that need to dump the whole graph (rulesctl run), not
// for query evaluation.
func (s *Store) All() map[string][]*ast.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]*ast.Entity, len(s.entities))
	for typ, bucket := range s.entities {
		list := make([]*ast.Entity, 0, len(bucket))
		for _, e := range bucket {
			list = append(list, e)
		}
		out[typ] = list
	}
	return out
}

// Run parses and executes a query string produced by package
// translate: MATCH clauses, an optional WHERE expression, and a
// RETURN list.
func (s *Store) Run(ctx context.Context, query string, params map[string]interface{}) ([]graph.Row, error) {
	q, err := parseQuery(query)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([][]*ast.Entity, len(q.matches))
	for i, m := range q.matches {
		bucket := s.entities[m.entityType]
		list := make([]*ast.Entity, 0, len(bucket))
		for _, e := range bucket {
			list = append(list, e)
		}
		candidates[i] = list
	}

	var rows []graph.Row
	var walk func(idx int, binding map[string]*ast.Entity) error
	walk = func(idx int, binding map[string]*ast.Entity) error {
		if idx == len(q.matches) {
			ok, err := s.evalBool(q.where, binding, params)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			row := graph.Row{}
			for _, alias := range q.returns {
				row[alias] = binding[alias]
			}
			rows = append(rows, row)
			return nil
		}
		alias := q.matches[idx].alias
		for _, e := range candidates[idx] {
			binding[alias] = e
			if err := walk(idx+1, binding); err != nil {
				return err
			}
		}
		delete(binding, alias)
		return nil
	}

	if err := walk(0, map[string]*ast.Entity{}); err != nil {
		return nil, err
	}
	return rows, nil
}
