// internal/imageaudit/naturalsize.go
package imageaudit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagelens/api/schemas"
)

// naturalSizeProbeJS creates a detached image handle pointed at the URL and
// resolves with the decoded intrinsic dimensions once load or error fires.
// Error resolves to null, never rejects.
const naturalSizeProbeJS = `
(function probeNaturalSize(url) {
    return new Promise(function (resolve) {
        var img = new Image();
        img.addEventListener('load', function () {
            resolve({ naturalWidth: img.naturalWidth, naturalHeight: img.naturalHeight });
        });
        img.addEventListener('error', function () {
            resolve(null);
        });
        img.src = url;
    });
})(%s)
`

// NaturalSizeResolver determines intrinsic pixel dimensions for elements
// whose live DOM value could not be trusted: CSS backgrounds, srcset images,
// and images inside <picture>. Results are memoized per URL for the lifetime
// of one gathering pass; the cache is owned here and never shared.
type NaturalSizeResolver struct {
	drv          Driver
	probeTimeout time.Duration
	cache        map[string]schemas.NaturalDimensions
	probes       int
	logger       *zap.Logger
}

func NewNaturalSizeResolver(drv Driver, probeTimeout time.Duration, logger *zap.Logger) *NaturalSizeResolver {
	return &NaturalSizeResolver{
		drv:          drv,
		probeTimeout: probeTimeout,
		cache:        make(map[string]schemas.NaturalDimensions),
		logger:       logger.Named("naturalsize"),
	}
}

// Eligible reports whether the element needs (and is worth) a probe: its
// natural size is untrustworthy and the resource actually transferred.
func (r *NaturalSizeResolver) Eligible(el *schemas.ImageElement, index RecordIndex) bool {
	if !el.IsCSS && !el.IsPicture && el.Srcset == "" {
		return false
	}
	_, matched := index.Lookup(el.Src)
	return matched
}

// Resolve fills in the element's natural dimensions, read-through cached by
// URL. Decode failures and probe timeouts leave the element unresolved and
// return nil; only unexpected protocol failures propagate.
func (r *NaturalSizeResolver) Resolve(ctx context.Context, el *schemas.ImageElement) error {
	if dims, ok := r.cache[el.Src]; ok {
		el.NaturalDimensions = &schemas.NaturalDimensions{Width: dims.Width, Height: dims.Height}
		return nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	expression := fmt.Sprintf(naturalSizeProbeJS, jsonEncode(el.Src))

	var result *schemas.NaturalDimensions
	r.probes++
	err := r.drv.Evaluate(probeCtx, expression, &result)
	if err != nil {
		if errors.Is(err, ErrProbeTimeout) || probeCtx.Err() == context.DeadlineExceeded {
			// Dead or slow URL; the element stays unresolved and is treated
			// downstream as not a visible raster image.
			r.logger.Debug("Natural size probe timed out.",
				zap.String("src", el.Src), zap.Duration("timeout", r.probeTimeout))
			return nil
		}
		return fmt.Errorf("natural size probe for %q: %w", el.Src, err)
	}
	if result == nil {
		r.logger.Debug("Image failed to decode during natural size probe.", zap.String("src", el.Src))
		return nil
	}

	r.cache[el.Src] = *result
	el.NaturalDimensions = result
	return nil
}

// ProbeCount reports how many in-page probes were issued this pass.
func (r *NaturalSizeResolver) ProbeCount() int { return r.probes }

// jsonEncode safely encodes a value for embedding into a page script.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
