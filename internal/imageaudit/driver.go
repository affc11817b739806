// internal/imageaudit/driver.go
package imageaudit

import (
	"context"

	"github.com/xkilldash9x/pagelens/api/schemas"
)

// Driver is the capability the gathering pass needs from the browser control
// channel. The session layer implements it over CDP; tests implement it with
// canned data. All calls are request/response round-trips; only one is ever
// outstanding per pass.
type Driver interface {
	// EnableDomains turns on DOM and CSS tracking for the tab. Must be called
	// before any node resolution or matched-styles query.
	EnableDomains(ctx context.Context) error

	// DisableDomains releases the DOM and CSS tracking enabled above.
	DisableDomains(ctx context.Context) error

	// Evaluate runs the expression in the page's execution context, awaiting
	// any returned promise, and unmarshals the structured result into out.
	Evaluate(ctx context.Context, expression string, out interface{}) error

	// PushNodeByPath resolves a stored devtools node path to a live node
	// identifier. A path that no longer resolves returns an error matching
	// ErrNodeNotFound; any other failure is fatal to the pass.
	PushNodeByPath(ctx context.Context, path string) (int64, error)

	// MatchedStylesForNode fetches the inline, attribute-derived, and
	// author-stylesheet rules matching the live node.
	MatchedStylesForNode(ctx context.Context, nodeID int64) (*schemas.MatchedStyles, error)
}
