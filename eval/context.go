// Package eval walks ast.Expr trees against a live evaluation context
// and produces values. It is the tree-walking counterpart to package
// translate: translate compiles guards ahead of a graph query, eval
// runs everything else — preconditions, SET values, and the boolean
// result of a guard once rows are already in hand.
package eval

import (
	"context"

	"github.com/graphrules/engine/ast"
	"github.com/graphrules/engine/graph"
)

// Context holds everything an expression might read: the current
// entity ("this"), previously-bound loop variables, the old/new values
// of the property that triggered the enclosing rule firing (for
// CHANGED), and a handle to the graph driver for EXISTS. Contexts are
// firing-local and must not be shared across goroutines.
type Context struct {
	GoContext context.Context
	This      *ast.Entity
	Vars      map[string]*ast.Entity
	Params    map[string]interface{}
	Property  string
	OldValue  interface{}
	NewValue  interface{}
	HasChange bool
	Now       interface{}
	Driver    graph.Driver
}

// WithVar returns a copy of the context with an additional bound
// variable, leaving the receiver untouched.
func (c *Context) WithVar(name string, e *ast.Entity) *Context {
	vars := make(map[string]*ast.Entity, len(c.Vars)+1)
	for k, v := range c.Vars {
		vars[k] = v
	}
	vars[name] = e
	cp := *c
	cp.Vars = vars
	return &cp
}

func (c *Context) resolve(head string) *ast.Entity {
	if head == "this" {
		return c.This
	}
	return c.Vars[head]
}
