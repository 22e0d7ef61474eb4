// Package graph declares the boundary the rule engine depends on: a
// capability to run a parameterized query against a labeled property
// graph and get back matched entities. The engine never owns a driver's
// connection lifecycle; callers acquire and release sessions.
package graph

import (
	"context"

	"github.com/graphrules/engine/ast"
)

// Row is one result row: variable alias to the entity bound to it.
type Row map[string]*ast.Entity

// Driver is supplied by the host. It must accept MATCH/WHERE/RETURN
// read queries produced by package translate, and the direct
// parameterized property writes issued by the action executor and
// engine (see Write).
type Driver interface {
	// Run executes a read query and returns the matched rows in
	// whatever order the underlying store produces them.
	Run(ctx context.Context, query string, params map[string]interface{}) ([]Row, error)

	// Write applies a single parameterized property update to the
	// entity identified by (entityType, id) and returns the entity's
	// prior value for that property.
	Write(ctx context.Context, entityType, id, property string, value interface{}) (old interface{}, err error)

	// Get fetches a single entity snapshot by type and id. It returns
	// (nil, nil) if no such entity exists.
	Get(ctx context.Context, entityType, id string) (*ast.Entity, error)

	// Related returns every entity reachable from (entityType, id) by
	// an outgoing relationship of the given type. Used to evaluate
	// EXISTS patterns in expressions.
	Related(ctx context.Context, entityType, id, relType string) ([]*ast.Entity, error)
}
