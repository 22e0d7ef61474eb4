// Package registry holds the parsed ActionDef and RuleDef declarations
// for the process lifetime. Both registries follow the read-mostly
// locking idiom crew.Crew uses for its Machine map: concurrent reads
// never block each other, and registration takes an exclusive lock.
package registry

import (
	"sort"
	"sync"

	"github.com/graphrules/engine/ast"
	"github.com/graphrules/engine/parser"
)

// DuplicateAction occurs when registering an action whose
// (entity type, name) pair is already present.
type DuplicateAction struct {
	EntityType, Name string
}

func (e *DuplicateAction) Error() string {
	return `action "` + e.EntityType + "." + e.Name + `" is already registered`
}

// ActionRegistry stores ActionDefs keyed by (entity_type, name).
type ActionRegistry struct {
	mu      sync.RWMutex
	actions map[string]*ast.ActionDef
}

// NewActionRegistry returns an empty ActionRegistry.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{actions: make(map[string]*ast.ActionDef)}
}

func actionKey(entityType, name string) string {
	return entityType + "." + name
}

// Register adds an action. It is an error to register the same
// (entity_type, name) pair twice.
func (r *ActionRegistry) Register(a *ast.ActionDef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := actionKey(a.EntityType, a.Name)
	if _, exists := r.actions[key]; exists {
		return &DuplicateAction{EntityType: a.EntityType, Name: a.Name}
	}
	r.actions[key] = a
	return nil
}

// Lookup returns the action registered for (entityType, name), or nil.
func (r *ActionRegistry) Lookup(entityType, name string) *ast.ActionDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.actions[actionKey(entityType, name)]
}

// ListByEntity returns every action registered for an entity type, in
// no particular order.
func (r *ActionRegistry) ListByEntity(entityType string) []*ast.ActionDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*ast.ActionDef
	for _, a := range r.actions {
		if a.EntityType == entityType {
			out = append(out, a)
		}
	}
	return out
}

// All returns every registered action, sorted by entity type then
// name.
func (r *ActionRegistry) All() []*ast.ActionDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ast.ActionDef, 0, len(r.actions))
	for _, a := range r.actions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityType != out[j].EntityType {
			return out[i].EntityType < out[j].EntityType
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// LoadFromText parses DSL text and registers every ActionDef it
// contains, ignoring any RuleDefs (use a RuleRegistry for those).
func (r *ActionRegistry) LoadFromText(dsl string) error {
	items, err := parser.Parse(dsl)
	if err != nil {
		return err
	}
	for _, item := range items {
		if a, ok := item.(*ast.ActionDef); ok {
			if err := r.Register(a); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadFromFile reads a DSL file and registers its actions.
func (r *ActionRegistry) LoadFromFile(path string) error {
	items, err := parser.ParseFile(path)
	if err != nil {
		return err
	}
	for _, item := range items {
		if a, ok := item.(*ast.ActionDef); ok {
			if err := r.Register(a); err != nil {
				return err
			}
		}
	}
	return nil
}
