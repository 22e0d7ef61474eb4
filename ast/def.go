package ast

import "fmt"

// Entity is a graph object: a stable id, a type label, and a property
// map. Property values are string | float64 | bool | time.Time | nil.
type Entity struct {
	ID         string
	Type       string
	Properties map[string]interface{}
}

// Get reads a property, returning nil if absent — path resolution
// never fails on a missing property.
func (e *Entity) Get(name string) interface{} {
	if e == nil || e.Properties == nil {
		return nil
	}
	return e.Properties[name]
}

// TriggerType is the kind of graph mutation a Trigger reacts to.
type TriggerType string

const (
	TriggerUpdate TriggerType = "UPDATE"
	TriggerCreate TriggerType = "CREATE"
	TriggerDelete TriggerType = "DELETE"
	TriggerLink   TriggerType = "LINK"
	TriggerScan   TriggerType = "SCAN"
)

// Trigger is the declared shape of an event a RULE reacts to. Property
// is required iff Type is TriggerUpdate.
type Trigger struct {
	Type       TriggerType
	EntityType string
	Property   string // "" unless Type == TriggerUpdate
}

// Key computes the trigger index key per spec invariant (c):
// "UPDATE|<entity_type>|<property>" for UPDATE, "<type>|<entity_type>"
// otherwise.
func (t Trigger) Key() string {
	if t.Type == TriggerUpdate {
		return fmt.Sprintf("%s|%s|%s", t.Type, t.EntityType, t.Property)
	}
	return fmt.Sprintf("%s|%s", t.Type, t.EntityType)
}

// ChangeEvent records one property mutation observed on the graph.
//
// Kind distinguishes which trigger shape this event resolves to. The
// zero value behaves as TriggerUpdate, matching every producer that
// only ever deals in property mutations (the common case); CREATE,
// DELETE, LINK and SCAN producers set Kind explicitly and leave
// Property empty.
type ChangeEvent struct {
	EntityType string
	EntityID   string
	Property   string
	OldValue   interface{}
	NewValue   interface{}
	Kind       TriggerType
}

// TriggerKey returns the registry lookup key this event resolves to.
func (c ChangeEvent) TriggerKey() string {
	kind := c.Kind
	if kind == "" {
		kind = TriggerUpdate
	}
	return Trigger{Type: kind, EntityType: c.EntityType, Property: c.Property}.Key()
}

// Parameter is one declared ACTION parameter.
type Parameter struct {
	Name     string
	Type     string
	Optional bool
}

// Precondition is a named boolean guard on an ACTION. The first
// precondition (in declaration order) that evaluates falsy stops
// evaluation and its OnFailure message becomes the action's error.
type Precondition struct {
	Label     string // "" if unlabeled
	Condition Expr
	OnFailure string
}

// ActionDef is a named imperative operation on an entity type.
type ActionDef struct {
	Doc           string
	EntityType    string
	Name          string
	Parameters    []Parameter
	Preconditions []Precondition
	Effect        []Stmt // nil if the ACTION has no EFFECT block
}

// RuleDef is an event-triggered reactive computation.
type RuleDef struct {
	Doc      string
	Name     string
	Priority int
	Trigger  Trigger
	Body     ForStmt
}
