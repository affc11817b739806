// internal/browser/session/context_utils.go
package session

import "context"

// CombineContext derives a context from parentCtx that is additionally
// cancelled when secondaryCtx finishes. chromedp actions must run on the
// session's context chain to reach the target, but operational deadlines
// arrive on a separate context; this joins the two.
func CombineContext(parentCtx, secondaryCtx context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(parentCtx)

	go func() {
		select {
		case <-secondaryCtx.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	return combinedCtx, cancel
}
