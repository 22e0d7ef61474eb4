// Package ruleengine is the module root for a reactive rule engine
// layered over a labeled property graph.
//
// The pipeline lives in the subpackages: ast holds the tagged-variant
// syntax tree, parser turns DSL text into that tree, eval walks
// expressions against a live entity, translate compiles FOR/WHERE
// clauses into parameterized graph queries, registry stores actions
// and rules, actionexec runs preconditions and effects, and engine
// wires all of the above into the event-driven cascade described in
// SPEC_FULL.md.
package ruleengine
