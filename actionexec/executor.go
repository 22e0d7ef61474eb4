// Package actionexec resolves, validates, and runs ActionDefs: check
// preconditions in declaration order, short-circuiting on the first
// falsy one, then apply effects sequentially. It also implements the
// SET/TRIGGER/FOR statement walker shared with package engine, since a
// rule's body and an action's effect block are the same statement
// grammar (see SPEC_FULL.md §4.5/§4.6).
package actionexec

import (
	"context"
	"fmt"

	"github.com/graphrules/engine/ast"
	"github.com/graphrules/engine/eval"
	"github.com/graphrules/engine/events"
	"github.com/graphrules/engine/graph"
	"github.com/graphrules/engine/registry"
	"github.com/graphrules/engine/translate"
)

// ExecutionResult is the uniform outcome of running an action: it is
// always returned, never an error, so the host never needs to handle
// an exception across this boundary.
type ExecutionResult struct {
	Success bool
	Error   string
	Changes map[string]interface{}
}

// ExecObserver receives one notification per Execute call, reporting
// the action's identity and outcome ("success" or "failed").
type ExecObserver interface {
	ActionExecuted(entityType, action, outcome string)
}

// MultiObserver fans one ActionExecuted call out to every observer in
// order, matching engine.Engine's Observers-slice pattern.
type MultiObserver []ExecObserver

func (m MultiObserver) ActionExecuted(entityType, action, outcome string) {
	for _, o := range m {
		if o != nil {
			o.ActionExecuted(entityType, action, outcome)
		}
	}
}

// Executor runs actions against a graph through a Driver, consulting
// an ActionRegistry to resolve (entity_type, name) and an Emitter to
// publish change events produced by SET statements.
type Executor struct {
	Actions  *registry.ActionRegistry
	Driver   graph.Driver
	Emitter  *events.Emitter
	MaxDepth int

	// Observer, when non-nil, is notified once per Execute call with
	// the action's outcome. A nil Observer is legal (no-op).
	Observer ExecObserver
}

// New returns an Executor with the default cascade depth (10).
func New(actions *registry.ActionRegistry, driver graph.Driver, emitter *events.Emitter) *Executor {
	return &Executor{Actions: actions, Driver: driver, Emitter: emitter, MaxDepth: 10}
}

// Execute resolves and runs entityType.actionName against entity,
// binding params into the precondition/effect evaluation context.
func (x *Executor) Execute(ctx context.Context, entityType, actionName, entityID string, entity *ast.Entity, params map[string]interface{}) (result *ExecutionResult) {
	defer func() {
		if x.Observer != nil && result != nil {
			outcome := "failed"
			if result.Success {
				outcome = "success"
			}
			x.Observer.ActionExecuted(entityType, actionName, outcome)
		}
	}()

	action := x.Actions.Lookup(entityType, actionName)
	if action == nil {
		return &ExecutionResult{Success: false, Error: (&ActionNotFound{EntityType: entityType, Name: actionName}).Error()}
	}

	if err := validateParams(action, params); err != nil {
		return &ExecutionResult{Success: false, Error: "Invalid parameters: " + err.Error()}
	}

	evalCtx := &eval.Context{
		GoContext: ctx,
		This:      entity,
		Params:    params,
		Driver:    x.Driver,
	}

	for _, pre := range action.Preconditions {
		ok, err := eval.EvalBool(pre.Condition, evalCtx)
		if err != nil {
			return &ExecutionResult{Success: false, Error: (&PreconditionError{Label: pre.Label, Err: err}).Error()}
		}
		if !ok {
			return &ExecutionResult{Success: false, Error: pre.OnFailure}
		}
	}

	changes := map[string]interface{}{}
	if err := x.runStatements(evalCtx, action.Effect, changes, 0); err != nil {
		return &ExecutionResult{Success: false, Error: err.Error()}
	}

	return &ExecutionResult{Success: true, Changes: changes}
}

func validateParams(action *ast.ActionDef, params map[string]interface{}) error {
	declared := make(map[string]ast.Parameter, len(action.Parameters))
	for _, p := range action.Parameters {
		declared[p.Name] = p
	}
	for name := range params {
		if _, ok := declared[name]; !ok {
			return fmt.Errorf("unknown parameter %q", name)
		}
	}
	for _, p := range action.Parameters {
		if p.Optional {
			continue
		}
		if _, ok := params[p.Name]; !ok {
			return fmt.Errorf("missing required parameter %q", p.Name)
		}
	}
	return nil
}

// RunStatements executes a statement list (an action's effect block,
// or a rule's FOR body) against evalCtx. changes, when non-nil,
// accumulates every property this call writes on evalCtx.This — used
// to build an ExecutionResult; callers that don't need that bookkeeping
// (the rule engine, operating on arbitrary bound rows rather than a
// single "this") may pass nil.
func (x *Executor) RunStatements(evalCtx *eval.Context, stmts []ast.Stmt, changes map[string]interface{}) error {
	return x.runStatements(evalCtx, stmts, changes, 0)
}

const maxNestedFor = 32

func (x *Executor) runStatements(evalCtx *eval.Context, stmts []ast.Stmt, changes map[string]interface{}, depth int) error {
	if depth > maxNestedFor {
		return fmt.Errorf("statement nesting exceeds %d levels", maxNestedFor)
	}
	for _, stmt := range stmts {
		if err := x.runStatement(evalCtx, stmt, changes, depth); err != nil {
			return err
		}
	}
	return nil
}

func (x *Executor) runStatement(evalCtx *eval.Context, stmt ast.Stmt, changes map[string]interface{}, depth int) error {
	switch s := stmt.(type) {
	case ast.SetStmt:
		return x.runSet(evalCtx, s, changes)
	case ast.TriggerStmt:
		return x.runTrigger(evalCtx, s)
	case ast.ForStmt:
		return x.runFor(evalCtx, s, changes, depth)
	}
	return fmt.Errorf("unsupported statement type %T", stmt)
}

func (x *Executor) runSet(evalCtx *eval.Context, s ast.SetStmt, changes map[string]interface{}) error {
	head := s.Target.Head()
	entity := evalCtx.This
	if head != "this" {
		entity = evalCtx.Vars[head]
	}
	if entity == nil || len(s.Target.Parts) < 2 {
		return fmt.Errorf("SET target %q does not resolve to an entity property", s.Target.String())
	}
	value, err := eval.Eval(s.Value, evalCtx)
	if err != nil {
		return err
	}
	property := s.Target.Parts[len(s.Target.Parts)-1]

	old, err := x.Driver.Write(evalCtx.GoContext, entity.Type, entity.ID, property, value)
	if err != nil {
		return err
	}
	if entity.Properties == nil {
		entity.Properties = map[string]interface{}{}
	}
	entity.Properties[property] = value

	if entity == evalCtx.This && changes != nil {
		changes[property] = value
	}

	if x.Emitter != nil {
		x.Emitter.Emit(ast.ChangeEvent{
			EntityType: entity.Type,
			EntityID:   entity.ID,
			Property:   property,
			OldValue:   old,
			NewValue:   value,
		})
	}
	return nil
}

func (x *Executor) runTrigger(evalCtx *eval.Context, s ast.TriggerStmt) error {
	entity := evalCtx.This
	if s.Var != "this" {
		entity = evalCtx.Vars[s.Var]
	}
	if entity == nil {
		return fmt.Errorf("TRIGGER target variable %q is not bound", s.Var)
	}
	params := map[string]interface{}{}
	for name, expr := range s.Args {
		v, err := eval.Eval(expr, evalCtx)
		if err != nil {
			return err
		}
		params[name] = v
	}
	result := x.Execute(evalCtx.GoContext, s.EntityType, s.ActionName, entity.ID, entity, params)
	if !result.Success {
		return fmt.Errorf("%s.%s on %s: %s", s.EntityType, s.ActionName, entity.ID, result.Error)
	}
	return nil
}

func (x *Executor) runFor(evalCtx *eval.Context, s ast.ForStmt, changes map[string]interface{}, depth int) error {
	var outer []translate.Bound
	for name, e := range evalCtx.Vars {
		outer = append(outer, translate.Bound{Var: name, EntityType: e.Type, ID: e.ID})
	}
	if evalCtx.This != nil {
		outer = append(outer, translate.Bound{Var: "this", EntityType: evalCtx.This.Type, ID: evalCtx.This.ID})
	}

	compiled, err := translate.Translate(s, outer, "")
	if err != nil {
		return err
	}
	rows, err := x.Driver.Run(evalCtx.GoContext, compiled.Query, compiled.Params)
	if err != nil {
		return err
	}
	for _, row := range rows {
		bound := row[s.Var]
		if bound == nil {
			continue
		}
		next := evalCtx.WithVar(s.Var, bound)
		if err := x.runStatements(next, s.Body, changes, depth+1); err != nil {
			return err
		}
	}
	return nil
}
