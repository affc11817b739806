// internal/browser/session/interfaces.go
package session

import (
	"context"

	"github.com/chromedp/chromedp"
)

// ActionExecutor is the generic contract for executing browser actions,
// abstracting the underlying chromedp plumbing. Components like the Recorder
// and the protocol driver request browser operations through it without
// coupling to the Session struct.
type ActionExecutor interface {
	// RunActions executes a sequence of browser actions within the given
	// operational context. The implementation combines it with the
	// long-lived session context so actions carry the CDP target.
	RunActions(ctx context.Context, actions ...chromedp.Action) error
}
