// internal/imageaudit/sizing.go
package imageaudit

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagelens/api/schemas"
)

// SizingResolver determines the cascade-effective width/height declarations
// for an element, distinguishing intrinsically sized images from CSS-sized
// ones. It is eligible only for real, light-DOM image elements: CSS
// backgrounds size through the host element and shadow-DOM node paths do not
// resolve through the DOM domain.
type SizingResolver struct {
	drv    Driver
	logger *zap.Logger
}

func NewSizingResolver(drv Driver, logger *zap.Logger) *SizingResolver {
	return &SizingResolver{drv: drv, logger: logger.Named("sizing")}
}

// Eligible reports whether the element's effective CSS sizing can be
// resolved at all.
func (r *SizingResolver) Eligible(el *schemas.ImageElement) bool {
	return !el.IsCSS && !el.IsInShadowDOM
}

// Resolve fills in CSSWidth/CSSHeight and EffectiveSizing for the element.
// A node that no longer exists is an expected outcome and leaves the element
// untouched; any other protocol failure is returned and aborts the pass.
func (r *SizingResolver) Resolve(ctx context.Context, el *schemas.ImageElement) error {
	nodeID, err := r.drv.PushNodeByPath(ctx, el.NodePath)
	if err != nil {
		if errors.Is(err, ErrNodeNotFound) {
			r.logger.Debug("Node path no longer resolves; skipping CSS sizing.",
				zap.String("src", el.Src), zap.String("nodePath", el.NodePath))
			return nil
		}
		return fmt.Errorf("resolving node for %q: %w", el.Src, err)
	}

	matched, err := r.drv.MatchedStylesForNode(ctx, nodeID)
	if err != nil {
		return fmt.Errorf("matched styles for %q: %w", el.Src, err)
	}

	width := resolveCascadedValue(matched, "width")
	height := resolveCascadedValue(matched, "height")

	el.CSSWidth = width
	el.CSSHeight = height
	el.EffectiveSizing = &schemas.EffectiveCSSSizing{Width: width, Height: height}
	return nil
}

// resolveCascadedValue applies the cascade for one non-inherited sizing
// property. Precedence, highest first: inline style, attribute-derived style,
// then the most specific matched stylesheet rule, with ties broken by source
// order (later wins). A nil return means no source declared the property.
func resolveCascadedValue(matched *schemas.MatchedStyles, property string) *string {
	if matched == nil {
		return nil
	}
	if value, ok := matched.InlineStyle.Get(property); ok {
		return &value
	}
	if value, ok := matched.AttributesStyle.Get(property); ok {
		return &value
	}

	var (
		found    bool
		best     string
		bestSpec Specificity
	)
	for _, rule := range matched.MatchedRules {
		value, ok := rule.Style.Get(property)
		if !ok {
			continue
		}
		spec := ComputeSpecificity(rule.Selector)
		// >= 0 keeps the later rule on equal specificity.
		if !found || spec.Compare(bestSpec) >= 0 {
			found, best, bestSpec = true, value, spec
		}
	}
	if !found {
		return nil
	}
	return &best
}
