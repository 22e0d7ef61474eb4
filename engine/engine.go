// Package engine is the rule engine core (C9): it consumes change
// events, matches rules via the trigger index, drives the outer FOR
// through package translate and the graph driver, and recurses into
// nested statements through the same statement walker package
// actionexec uses for action effects. It owns cascade control (depth
// bound, per-pass dedupe, FIFO fan-out of cascaded events) and is the
// only component in this module that re-enters itself.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/graphrules/engine/actionexec"
	"github.com/graphrules/engine/ast"
	"github.com/graphrules/engine/events"
	"github.com/graphrules/engine/eval"
	"github.com/graphrules/engine/graph"
	"github.com/graphrules/engine/registry"
	"github.com/graphrules/engine/translate"
)

// DefaultMaxCascadeDepth is the default bound on cascade depth (spec
// default 10 — see SPEC_FULL.md §5).
const DefaultMaxCascadeDepth = 10

// DefaultMaxQueueSize bounds the per-firing cascade queue (spec
// recommends, does not require, a bound — see SPEC_FULL.md §5).
const DefaultMaxQueueSize = 1000

// Observer receives structured notifications about engine activity.
// Every method must tolerate being called on a nil receiver: the
// notify* helpers skip only nil interface values. The concrete sinks
// (metrics, diagnostics, execution log) implement every method
// directly; NoopObserver is available for sinks that need only some.
type Observer interface {
	RuleMatched(rule string)
	RuleFailed(rule, entityType, entityID string, err error)
	Overflow(o *CascadeOverflow)
	CascadeFinished(depth int)

	// TranslateError and EvalError report a firing failure's origin by
	// a short kind string (e.g. "unsafe_label", "unknown_function"),
	// split out from RuleFailed so a sink (metrics.Metrics) can bucket
	// failures by pipeline stage instead of only by rule name.
	TranslateError(kind string)
	EvalError(kind string)
}

// NoopObserver is embeddable by Observer implementations that only
// care about a subset of the callbacks.
type NoopObserver struct{}

func (NoopObserver) RuleMatched(string)                       {}
func (NoopObserver) RuleFailed(string, string, string, error) {}
func (NoopObserver) Overflow(*CascadeOverflow)                {}
func (NoopObserver) CascadeFinished(int)                      {}
func (NoopObserver) TranslateError(string)                    {}
func (NoopObserver) EvalError(string)                         {}

// QueueDepthObserver receives the live length of the cascade queue as
// OnEvent drains and refills it. It is separate from Observer because
// it has no per-firing hook to attach to — it samples a loop-local
// variable, not a rule outcome.
type QueueDepthObserver interface {
	SetQueueDepth(n int)
}

// Engine wires the rule registry, action registry, and graph driver
// into the cascade loop described in SPEC_FULL.md §4.6. It holds no
// package-level state; every field is supplied at construction,
// matching the "registries as owned values, not globals" redesign
// note.
type Engine struct {
	Rules   *registry.RuleRegistry
	Actions *registry.ActionRegistry
	Driver  graph.Driver
	Logger  *slog.Logger

	// MaxCascadeDepth and MaxQueueSize default to the package
	// constants when left zero.
	MaxCascadeDepth int
	MaxQueueSize    int

	// Observers are notified of rule outcomes and overflow; a nil or
	// empty slice is legal (no-op).
	Observers []Observer

	// QueueDepth is notified of the cascade queue's length as OnEvent
	// drains it; nil is legal (no-op).
	QueueDepth QueueDepthObserver

	// ActionObserver is handed to every actionexec.Executor a rule
	// firing constructs, so TRIGGERed action executions report through
	// the same sink as rule outcomes; nil is legal (no-op).
	ActionObserver actionexec.ExecObserver
}

// New returns an Engine with the default cascade bounds. logger may be
// nil, in which case slog.Default() is used.
func New(rules *registry.RuleRegistry, actions *registry.ActionRegistry, driver graph.Driver, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Rules:           rules,
		Actions:         actions,
		Driver:          driver,
		Logger:          logger,
		MaxCascadeDepth: DefaultMaxCascadeDepth,
		MaxQueueSize:    DefaultMaxQueueSize,
	}
}

func (e *Engine) maxDepth() int {
	if e.MaxCascadeDepth <= 0 {
		return DefaultMaxCascadeDepth
	}
	return e.MaxCascadeDepth
}

func (e *Engine) maxQueue() int {
	if e.MaxQueueSize <= 0 {
		return DefaultMaxQueueSize
	}
	return e.MaxQueueSize
}

// LoadRulesFromFile reads a DSL file and registers every RULE it
// contains (ActionDefs in the same file are ignored; load those with
// registry.ActionRegistry.LoadFromFile on the registry the
// actionexec.Executor uses).
func (e *Engine) LoadRulesFromFile(path string) error {
	return e.Rules.LoadFromFile(path)
}

// Deliver adapts the Engine to events.Subscriber so it can be
// subscribed directly to an events.Emitter.
func (e *Engine) Deliver(event ast.ChangeEvent) {
	e.OnEvent(context.Background(), event)
}

// CascadeReport summarizes one top-level OnEvent call: how many
// cascade entries were processed and how many were dropped for
// overflow. It is a convenience for tests and diagnostics, not part
// of the propagation contract — callers that only want fire-and-log
// behavior can discard it.
type CascadeReport struct {
	Processed int
	Overflows int
}

type cascadeItem struct {
	event ast.ChangeEvent
	depth int
}

// OnEvent is the engine's single entry point for a graph mutation. It
// drives the whole cascade to completion (or to cancellation),
// folding every SET/TRIGGER-produced change event back in as a new
// queue entry rather than recursing synchronously, per SPEC_FULL.md's
// "breadth-oriented within a cascade, depth-bounded overall" policy.
func (e *Engine) OnEvent(ctx context.Context, event ast.ChangeEvent) *CascadeReport {
	report := &CascadeReport{}
	now := time.Now().UTC()
	queue := []cascadeItem{{event: event, depth: 1}}
	maxDepth := e.maxDepth()
	deepest := 0

	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			return report
		default:
		}

		item := queue[0]
		queue = queue[1:]
		e.notifyQueueDepth(len(queue))

		if item.depth > maxDepth {
			report.Overflows++
			o := &CascadeOverflow{
				EntityType: item.event.EntityType,
				EntityID:   item.event.EntityID,
				Property:   item.event.Property,
				Depth:      item.depth,
				Reason:     "depth",
			}
			e.logOverflow(o)
			e.notifyOverflow(o)
			continue
		}

		produced := e.fireBucket(ctx, item, now)
		report.Processed++
		if item.depth > deepest {
			deepest = item.depth
		}

		for _, ev := range produced {
			if len(queue) >= e.maxQueue() {
				report.Overflows++
				o := &CascadeOverflow{
					EntityType: ev.EntityType,
					EntityID:   ev.EntityID,
					Property:   ev.Property,
					Depth:      item.depth + 1,
					Reason:     "queue",
				}
				e.logOverflow(o)
				e.notifyOverflow(o)
				continue
			}
			queue = append(queue, cascadeItem{event: ev, depth: item.depth + 1})
			e.notifyQueueDepth(len(queue))
		}
	}

	e.notifyQueueDepth(0)
	e.notifyCascadeFinished(deepest)
	return report
}

// fireBucket runs every rule registered under item.event's trigger key,
// in priority order, and returns every change event produced by their
// SET statements and TRIGGERed action effects, for the caller to
// enqueue as the next cascade generation.
//
// A fresh (rule_name, entity_id) visited set is scoped to this single
// bucket pass: it stops one rule from firing twice on the same row
// within the SAME pass (e.g. a duplicate candidate row), but does not
// prevent the rule from firing again in a later cascade generation —
// see DESIGN.md's resolution of this open question against spec.md §8
// scenario S5, which requires exactly that repeated-generation firing.
func (e *Engine) fireBucket(ctx context.Context, item cascadeItem, now time.Time) []ast.ChangeEvent {
	kind := item.event.Kind
	if kind == "" {
		kind = ast.TriggerUpdate
	}
	trigger := ast.Trigger{Type: kind, EntityType: item.event.EntityType, Property: item.event.Property}
	rules := e.Rules.GetByTrigger(trigger)
	if len(rules) == 0 {
		return nil
	}

	visited := map[string]bool{}
	var cascaded []ast.ChangeEvent

	for _, rule := range rules {
		e.logf(StatePending, rule.Name, item, "matched trigger bucket")
		produced, err := e.fireRule(ctx, rule, item.event, now, visited)
		if err != nil {
			e.logf(StateFailed, rule.Name, item, err.Error())
			e.notifyFailed(rule.Name, item.event, err)
			continue
		}
		e.notifyMatched(rule.Name)
		cascaded = append(cascaded, produced...)
	}
	return cascaded
}

// fireRule compiles and runs one rule's outermost FOR against the
// triggering event, pinning the loop variable to the triggering
// entity when its type matches, then walks each result row's nested
// statements through actionexec.Executor (the shared statement
// walker). Writes performed during this call are collected through a
// firing-local emitter rather than delivered to the engine
// synchronously; the caller folds the returned events back into the
// cascade queue.
func (e *Engine) fireRule(ctx context.Context, rule *ast.RuleDef, event ast.ChangeEvent, now time.Time, visited map[string]bool) ([]ast.ChangeEvent, error) {
	pinID := ""
	if rule.Body.EntityType == event.EntityType {
		pinID = event.EntityID
	}

	compiled, err := translate.Translate(rule.Body, nil, pinID)
	if err != nil {
		e.notifyErrorKind(err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := e.Driver.Run(ctx, compiled.Query, compiled.Params)
	if err != nil {
		return nil, err
	}

	var cascaded []ast.ChangeEvent
	for _, row := range rows {
		bound := row[rule.Body.Var]
		if bound == nil {
			continue
		}
		key := rule.Name + "|" + bound.ID
		if visited[key] {
			continue
		}
		visited[key] = true

		produced, err := e.runRow(ctx, rule, bound, event, now)
		if err != nil {
			// One row's effect failing does not abort the rest of
			// the outer FOR's rows, matching the bucket-level
			// "remainder continues" policy applied one level down.
			e.logf(StateEffectFailed, rule.Name, cascadeItem{event: event}, err.Error())
			e.notifyFailed(rule.Name, event, err)
			e.notifyErrorKind(err)
			continue
		}
		cascaded = append(cascaded, produced...)
	}
	return cascaded, nil
}

func (e *Engine) runRow(ctx context.Context, rule *ast.RuleDef, bound *ast.Entity, event ast.ChangeEvent, now time.Time) ([]ast.ChangeEvent, error) {
	localEmitter := events.New()
	var produced []ast.ChangeEvent
	localEmitter.Subscribe(events.SubscriberFunc(func(ev ast.ChangeEvent) {
		produced = append(produced, ev)
	}))

	exec := actionexec.New(e.Actions, e.Driver, localEmitter)
	exec.Observer = e.ActionObserver

	evalCtx := &eval.Context{
		GoContext: ctx,
		Vars:      map[string]*ast.Entity{rule.Body.Var: bound},
		Property:  event.Property,
		OldValue:  event.OldValue,
		NewValue:  event.NewValue,
		HasChange: true,
		Now:       now,
		Driver:    e.Driver,
	}

	if err := exec.RunStatements(evalCtx, rule.Body.Body, nil); err != nil {
		return produced, err
	}
	return produced, nil
}

func (e *Engine) logf(state FiringState, rule string, item cascadeItem, msg string) {
	if e.Logger == nil {
		return
	}
	e.Logger.Debug(msg,
		slog.String("state", string(state)),
		slog.String("rule", rule),
		slog.String("entity_type", item.event.EntityType),
		slog.String("entity_id", item.event.EntityID),
		slog.Int("cascade_depth", item.depth),
	)
}

func (e *Engine) logOverflow(o *CascadeOverflow) {
	if e.Logger == nil {
		return
	}
	e.Logger.Warn("cascade overflow",
		slog.String("reason", o.Reason),
		slog.String("entity_type", o.EntityType),
		slog.String("entity_id", o.EntityID),
		slog.String("property", o.Property),
		slog.Int("cascade_depth", o.Depth),
	)
}

func (e *Engine) notifyMatched(rule string) {
	for _, o := range e.Observers {
		if o != nil {
			o.RuleMatched(rule)
		}
	}
}

func (e *Engine) notifyFailed(rule string, event ast.ChangeEvent, err error) {
	for _, o := range e.Observers {
		if o != nil {
			o.RuleFailed(rule, event.EntityType, event.EntityID, err)
		}
	}
}

func (e *Engine) notifyOverflow(o *CascadeOverflow) {
	for _, ob := range e.Observers {
		if ob != nil {
			ob.Overflow(o)
		}
	}
}

func (e *Engine) notifyCascadeFinished(depth int) {
	for _, o := range e.Observers {
		if o != nil {
			o.CascadeFinished(depth)
		}
	}
}

func (e *Engine) notifyQueueDepth(n int) {
	if e.QueueDepth != nil {
		e.QueueDepth.SetQueueDepth(n)
	}
}

func (e *Engine) notifyTranslateError(kind string) {
	for _, o := range e.Observers {
		if o != nil {
			o.TranslateError(kind)
		}
	}
}

func (e *Engine) notifyEvalError(kind string) {
	for _, o := range e.Observers {
		if o != nil {
			o.EvalError(kind)
		}
	}
}

// notifyErrorKind classifies a firing failure by its originating stage
// (translate vs eval) and reports it through the matching notify call,
// so a sink like metrics.Metrics can bucket failures by pipeline stage
// instead of only by rule name via RuleFailed.
func (e *Engine) notifyErrorKind(err error) {
	var te *translate.TranslationError
	if errors.As(err, &te) {
		e.notifyTranslateError(translateErrorKind(te.Msg))
		return
	}
	var uf *eval.UnknownFunction
	if errors.As(err, &uf) {
		e.notifyEvalError("unknown_function")
		return
	}
	var uv *eval.UnknownVariable
	if errors.As(err, &uv) {
		e.notifyEvalError("unknown_variable")
		return
	}
	var ba *eval.BadArgument
	if errors.As(err, &ba) {
		e.notifyEvalError("bad_argument")
		return
	}
}

func translateErrorKind(msg string) string {
	switch {
	case strings.Contains(msg, "unsafe characters"):
		return "unsafe_label"
	case strings.Contains(msg, "empty label"):
		return "empty_label"
	case strings.Contains(msg, "CHANGED cannot appear"):
		return "changed_in_guard"
	case strings.Contains(msg, "function call"):
		return "call_in_guard"
	case strings.Contains(msg, "IN list elements must be literals"):
		return "non_literal_in_list"
	default:
		return "translation_error"
	}
}
