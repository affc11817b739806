// internal/browser/session/driver.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/css"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagelens/api/schemas"
	"github.com/xkilldash9x/pagelens/internal/imageaudit"
)

// Driver adapts the session's CDP channel to the capability interface the
// audit core consumes: domain bracketing, in-page evaluation, node path
// resolution, and matched-styles queries.
type Driver struct {
	executor ActionExecutor
	logger   *zap.Logger
}

var _ imageaudit.Driver = (*Driver)(nil)

// NewDriver wraps an ActionExecutor (normally the Session) as a protocol
// driver for the audit core.
func NewDriver(executor ActionExecutor, logger *zap.Logger) *Driver {
	return &Driver{executor: executor, logger: logger.Named("driver")}
}

// EnableDomains turns on DOM and CSS tracking. CSS requires DOM first.
func (d *Driver) EnableDomains(ctx context.Context) error {
	err := d.executor.RunActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		if err := dom.Enable().Do(c); err != nil {
			return fmt.Errorf("DOM.enable: %w", err)
		}
		if err := css.Enable().Do(c); err != nil {
			return fmt.Errorf("CSS.enable: %w", err)
		}
		return nil
	}))
	if err != nil {
		return imageaudit.NewCallError("enableDomains", classifyKind(ctx, err), err)
	}
	return nil
}

// DisableDomains releases DOM and CSS tracking, reverse order of enable.
func (d *Driver) DisableDomains(ctx context.Context) error {
	err := d.executor.RunActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		if err := css.Disable().Do(c); err != nil {
			return fmt.Errorf("CSS.disable: %w", err)
		}
		if err := dom.Disable().Do(c); err != nil {
			return fmt.Errorf("DOM.disable: %w", err)
		}
		return nil
	}))
	if err != nil {
		return imageaudit.NewCallError("disableDomains", classifyKind(ctx, err), err)
	}
	return nil
}

// Evaluate runs the expression in the page, awaiting any returned promise,
// and unmarshals the by-value result into out.
func (d *Driver) Evaluate(ctx context.Context, expression string, out interface{}) error {
	var raw json.RawMessage
	err := d.executor.RunActions(ctx,
		chromedp.Evaluate(expression, &raw, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
		}),
	)
	if err != nil {
		return imageaudit.NewCallError("Runtime.evaluate", classifyKind(ctx, err), err)
	}
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal evaluation result: %w (payload: %s)", err, string(raw))
	}
	return nil
}

// PushNodeByPath resolves a stored devtools node path to a live node ID.
// A protocol-level rejection means the path no longer names a node - the
// document mutated since extraction - and is reported as NodeNotFound.
func (d *Driver) PushNodeByPath(ctx context.Context, path string) (int64, error) {
	var nodeID cdp.NodeID
	err := d.executor.RunActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		var err error
		nodeID, err = dom.PushNodeByPathToFrontend(path).Do(c)
		return err
	}))
	if err != nil {
		var cdpErr *cdproto.Error
		if errors.As(err, &cdpErr) {
			return 0, imageaudit.NewCallError("DOM.pushNodeByPathToFrontend", imageaudit.KindNodeNotFound, err)
		}
		return 0, imageaudit.NewCallError("DOM.pushNodeByPathToFrontend", classifyKind(ctx, err), err)
	}
	if nodeID == 0 {
		return 0, imageaudit.NewCallError("DOM.pushNodeByPathToFrontend", imageaudit.KindNodeNotFound,
			fmt.Errorf("path %q resolved to no node", path))
	}
	return int64(nodeID), nil
}

// MatchedStylesForNode fetches the matched rule set for a live node and
// projects it down to the declarations and selector texts the cascade needs.
func (d *Driver) MatchedStylesForNode(ctx context.Context, nodeID int64) (*schemas.MatchedStyles, error) {
	params := &css.GetMatchedStylesForNodeParams{NodeID: cdp.NodeID(nodeID)}
	res := &css.GetMatchedStylesForNodeReturns{}

	err := d.executor.RunActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		return cdp.Execute(c, css.CommandGetMatchedStylesForNode, params, res)
	}))
	if err != nil {
		return nil, imageaudit.NewCallError("CSS.getMatchedStylesForNode", classifyKind(ctx, err), err)
	}

	return projectMatchedStyles(res), nil
}

// projectMatchedStyles converts the CDP response to the protocol-agnostic
// shape. Only author-stylesheet rules participate in the cascade here; UA,
// injected, and inspector rules never size page images in a way the audit
// should attribute to the page.
func projectMatchedStyles(res *css.GetMatchedStylesForNodeReturns) *schemas.MatchedStyles {
	matched := &schemas.MatchedStyles{
		InlineStyle:     projectStyle(res.InlineStyle),
		AttributesStyle: projectStyle(res.AttributesStyle),
	}

	for _, ruleMatch := range res.MatchedCSSRules {
		if ruleMatch == nil || ruleMatch.Rule == nil || ruleMatch.Rule.SelectorList == nil {
			continue
		}
		if ruleMatch.Rule.Origin != css.StyleSheetOriginRegular {
			continue
		}
		style := projectStyle(ruleMatch.Rule.Style)
		if style == nil {
			continue
		}
		// One projected rule per matched selector: specificity is a property
		// of the selector that matched, not of the rule's whole list.
		for _, idx := range ruleMatch.MatchingSelectors {
			selectors := ruleMatch.Rule.SelectorList.Selectors
			if idx < 0 || int(idx) >= len(selectors) {
				continue
			}
			matched.MatchedRules = append(matched.MatchedRules, schemas.MatchedRule{
				Selector: selectors[idx].Text,
				Style:    *style,
			})
		}
	}
	return matched
}

func projectStyle(style *css.Style) *schemas.StyleDeclarations {
	if style == nil {
		return nil
	}
	decls := &schemas.StyleDeclarations{
		Declarations: make([]schemas.StyleDeclaration, 0, len(style.CSSProperties)),
	}
	for _, prop := range style.CSSProperties {
		if prop == nil {
			continue
		}
		decls.Declarations = append(decls.Declarations, schemas.StyleDeclaration{
			Name:  prop.Name,
			Value: prop.Value,
		})
	}
	return decls
}

// classifyKind separates a call-scoped deadline from channel failure.
func classifyKind(ctx context.Context, err error) imageaudit.FailureKind {
	if ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
		return imageaudit.KindTimeout
	}
	return imageaudit.KindProtocol
}
