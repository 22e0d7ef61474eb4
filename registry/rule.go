package registry

import (
	"sort"
	"sync"

	"github.com/graphrules/engine/ast"
	"github.com/graphrules/engine/parser"
)

// DuplicateRule occurs when registering a rule whose name is already
// present.
type DuplicateRule struct {
	Name string
}

func (e *DuplicateRule) Error() string {
	return `rule "` + e.Name + `" is already registered`
}

type ruleEntry struct {
	rule *ast.RuleDef
	seq  int
}

// RuleRegistry stores RuleDefs indexed by trigger key, ordered by
// descending priority with insertion order breaking ties.
type RuleRegistry struct {
	mu      sync.RWMutex
	byName  map[string]*ast.RuleDef
	buckets map[string][]ruleEntry
	nextSeq int
}

// NewRuleRegistry returns an empty RuleRegistry.
func NewRuleRegistry() *RuleRegistry {
	return &RuleRegistry{
		byName:  make(map[string]*ast.RuleDef),
		buckets: make(map[string][]ruleEntry),
	}
}

// Register adds a rule under its declared trigger's index key. It is
// an error to register the same rule name twice.
func (r *RuleRegistry) Register(rule *ast.RuleDef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[rule.Name]; exists {
		return &DuplicateRule{Name: rule.Name}
	}
	r.byName[rule.Name] = rule
	key := rule.Trigger.Key()
	r.buckets[key] = append(r.buckets[key], ruleEntry{rule: rule, seq: r.nextSeq})
	r.nextSeq++
	return nil
}

// Lookup returns the rule registered under name, or nil.
func (r *RuleRegistry) Lookup(name string) *ast.RuleDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[name]
}

// GetByTrigger returns the rules indexed under a trigger key, with the
// highest-priority rule first; equal priorities preserve registration
// order.
func (r *RuleRegistry) GetByTrigger(trigger ast.Trigger) []*ast.RuleDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := r.buckets[trigger.Key()]
	sorted := make([]ruleEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].rule.Priority != sorted[j].rule.Priority {
			return sorted[i].rule.Priority > sorted[j].rule.Priority
		}
		return sorted[i].seq < sorted[j].seq
	})
	out := make([]*ast.RuleDef, len(sorted))
	for i, e := range sorted {
		out[i] = e.rule
	}
	return out
}

// All returns every registered rule, sorted by name, for callers that
// want a stable full listing (docgen, rulesctl validate) rather than
// trigger-indexed lookup.
func (r *RuleRegistry) All() []*ast.RuleDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ast.RuleDef, 0, len(r.byName))
	for _, rule := range r.byName {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LoadFromText parses DSL text and registers every RuleDef it
// contains, ignoring any ActionDefs (use an ActionRegistry for those).
func (r *RuleRegistry) LoadFromText(dsl string) error {
	items, err := parser.Parse(dsl)
	if err != nil {
		return err
	}
	for _, item := range items {
		if rule, ok := item.(*ast.RuleDef); ok {
			if err := r.Register(rule); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadFromFile reads a DSL file and registers its rules.
func (r *RuleRegistry) LoadFromFile(path string) error {
	items, err := parser.ParseFile(path)
	if err != nil {
		return err
	}
	for _, item := range items {
		if rule, ok := item.(*ast.RuleDef); ok {
			if err := r.Register(rule); err != nil {
				return err
			}
		}
	}
	return nil
}
