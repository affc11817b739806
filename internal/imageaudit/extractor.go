// internal/imageaudit/extractor.go
package imageaudit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagelens/api/schemas"
)

// collectImageElementsJS runs synchronously inside the page and returns the
// raw element list for the pass: one record per real <img> and one per
// single-layer url(...) CSS background. Natural dimensions are read from the
// live element only when they are deterministic (no srcset, not inside a
// <picture>); every other case is left null for the decode probe. The
// position of a <picture>-wrapped image is taken from the wrapper, which is
// what layout-shift containment follows.
const collectImageElementsJS = `
(function collectImageElements() {
    // CSS serializer output for a single absolute-URL background layer.
    var CSS_URL_REGEX = /^url\("([^"]+)"\)$/;

    function getNodeIndex(node) {
        var index = 0;
        var prev = node;
        while ((prev = prev.previousSibling)) {
            // Empty text nodes do not count toward devtools child indices.
            if (prev.nodeType === Node.TEXT_NODE && prev.textContent.trim().length === 0) continue;
            index++;
        }
        return index;
    }

    // Devtools node path: "index,NAME" pairs from the root down, resolvable
    // later via DOM.pushNodeByPathToFrontend.
    function getNodePath(node) {
        var path = [];
        while (node && node.parentNode) {
            path.push([getNodeIndex(node), node.nodeName]);
            node = node.parentNode;
        }
        path.reverse();
        return path.join(',');
    }

    function getElementsInDocument() {
        var results = [];
        var collect = function (nodes) {
            for (var i = 0; i < nodes.length; i++) {
                var el = nodes[i];
                results.push(el);
                if (el.shadowRoot) collect(el.shadowRoot.querySelectorAll('*'));
            }
        };
        collect(document.querySelectorAll('*'));
        return results;
    }

    function getClientRect(element) {
        var rect = element.getBoundingClientRect();
        return { top: rect.top, bottom: rect.bottom, left: rect.left, right: rect.right };
    }

    var allElements = getElementsInDocument();

    var htmlImages = allElements.filter(function (el) {
        return el.localName === 'img';
    }).map(function (element) {
        var computedStyle = window.getComputedStyle(element);
        var isPicture = !!element.parentElement && element.parentElement.tagName === 'PICTURE';
        var canTrustNatural = !isPicture && !element.srcset;
        return {
            src: element.currentSrc,
            srcset: element.srcset,
            displayedWidth: element.width,
            displayedHeight: element.height,
            clientRect: getClientRect(element),
            naturalDimensions: canTrustNatural
                ? { naturalWidth: element.naturalWidth, naturalHeight: element.naturalHeight }
                : null,
            attributeWidth: element.getAttribute('width') || '',
            attributeHeight: element.getAttribute('height') || '',
            cssComputedPosition: isPicture
                ? window.getComputedStyle(element.parentElement).getPropertyValue('position')
                : computedStyle.getPropertyValue('position'),
            cssComputedObjectFit: computedStyle.getPropertyValue('object-fit'),
            cssComputedImageRendering: computedStyle.getPropertyValue('image-rendering'),
            isCss: false,
            isPicture: isPicture,
            isInShadowDOM: element.getRootNode() instanceof ShadowRoot,
            loading: element.getAttribute('loading'),
            nodePath: getNodePath(element)
        };
    });

    var cssImages = allElements.reduce(function (images, element) {
        var style = window.getComputedStyle(element);
        // Multiple layers, gradients, and relative serializations are all
        // excluded; only the quoted single-URL form identifies a background
        // image we can account for.
        var match = style.backgroundImage && style.backgroundImage.match(CSS_URL_REGEX);
        if (!match) return images;
        images.push({
            src: match[1],
            srcset: '',
            displayedWidth: element.clientWidth,
            displayedHeight: element.clientHeight,
            clientRect: getClientRect(element),
            naturalDimensions: null,
            attributeWidth: '',
            attributeHeight: '',
            cssComputedPosition: style.getPropertyValue('position'),
            cssComputedObjectFit: '',
            cssComputedImageRendering: style.getPropertyValue('image-rendering'),
            isCss: true,
            isPicture: false,
            isInShadowDOM: element.getRootNode() instanceof ShadowRoot,
            loading: null,
            nodePath: getNodePath(element)
        });
        return images;
    }, []);

    return htmlImages.concat(cssImages);
})()
`

// ExtractElements performs the one in-page scan of the pass and returns the
// raw element list, HTML images first.
func ExtractElements(ctx context.Context, drv Driver, logger *zap.Logger) ([]schemas.ImageElement, error) {
	var elements []schemas.ImageElement
	if err := drv.Evaluate(ctx, collectImageElementsJS, &elements); err != nil {
		return nil, fmt.Errorf("image element extraction failed: %w", err)
	}
	logger.Debug("Extracted image elements from page.", zap.Int("count", len(elements)))
	return elements, nil
}
