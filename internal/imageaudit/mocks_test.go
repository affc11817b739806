package imageaudit

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/xkilldash9x/pagelens/api/schemas"
)

// fakeDriver is a scriptable Driver for exercising the pass against canned
// protocol behavior. Unset hooks succeed with zero values.
type fakeDriver struct {
	mu sync.Mutex

	enableErr  error
	disableErr error

	evaluateFunc func(ctx context.Context, expression string, out interface{}) error
	pushFunc     func(ctx context.Context, path string) (int64, error)
	matchedFunc  func(ctx context.Context, nodeID int64) (*schemas.MatchedStyles, error)

	enableCalls   int
	disableCalls  int
	evaluateCalls int
	pushCalls     int
	matchedCalls  int
}

func (f *fakeDriver) EnableDomains(ctx context.Context) error {
	f.mu.Lock()
	f.enableCalls++
	f.mu.Unlock()
	return f.enableErr
}

func (f *fakeDriver) DisableDomains(ctx context.Context) error {
	f.mu.Lock()
	f.disableCalls++
	f.mu.Unlock()
	return f.disableErr
}

func (f *fakeDriver) Evaluate(ctx context.Context, expression string, out interface{}) error {
	f.mu.Lock()
	f.evaluateCalls++
	f.mu.Unlock()
	if f.evaluateFunc != nil {
		return f.evaluateFunc(ctx, expression, out)
	}
	return nil
}

func (f *fakeDriver) PushNodeByPath(ctx context.Context, path string) (int64, error) {
	f.mu.Lock()
	f.pushCalls++
	f.mu.Unlock()
	if f.pushFunc != nil {
		return f.pushFunc(ctx, path)
	}
	return 1, nil
}

func (f *fakeDriver) MatchedStylesForNode(ctx context.Context, nodeID int64) (*schemas.MatchedStyles, error) {
	f.mu.Lock()
	f.matchedCalls++
	f.mu.Unlock()
	if f.matchedFunc != nil {
		return f.matchedFunc(ctx, nodeID)
	}
	return &schemas.MatchedStyles{}, nil
}

// evaluateJSON returns an evaluateFunc that unmarshals the given JSON payload
// into out, mimicking a by-value protocol result.
func evaluateJSON(payload string) func(ctx context.Context, expression string, out interface{}) error {
	return func(ctx context.Context, expression string, out interface{}) error {
		return json.Unmarshal([]byte(payload), out)
	}
}

// decls is a shorthand constructor for a declaration block.
func decls(pairs ...string) *schemas.StyleDeclarations {
	d := &schemas.StyleDeclarations{}
	for i := 0; i+1 < len(pairs); i += 2 {
		d.Declarations = append(d.Declarations, schemas.StyleDeclaration{Name: pairs[i], Value: pairs[i+1]})
	}
	return d
}
