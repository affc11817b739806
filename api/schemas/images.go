package schemas

import "time"

// -- Image Audit Schemas --

// ClientRect captures the viewport-relative edges of a rendered box.
type ClientRect struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// EffectiveCSSSizing is the cascade-resolved width/height pair for an element.
// A nil field means no source in the cascade declared the property, which is
// distinct from a declared-but-empty value.
type EffectiveCSSSizing struct {
	Width  *string `json:"width"`
	Height *string `json:"height"`
}

// NaturalDimensions holds intrinsic decoded pixel dimensions of an image
// resource, independent of any CSS or attribute sizing.
type NaturalDimensions struct {
	Width  int64 `json:"naturalWidth"`
	Height int64 `json:"naturalHeight"`
}

// ImageElement is one diagnostic record per discovered image-like element on
// the page. Real <img> tags and CSS background images both produce one.
type ImageElement struct {
	// Src is the resolved, currently displayed source URL (currentSrc for
	// real images, the extracted url(...) for CSS backgrounds).
	Src    string `json:"src"`
	Srcset string `json:"srcset"`

	DisplayedWidth  int64      `json:"displayedWidth"`
	DisplayedHeight int64      `json:"displayedHeight"`
	ClientRect      ClientRect `json:"clientRect"`

	// NaturalDimensions is populated in-page only when the element is a plain
	// <img> with no srcset and no <picture> ancestor; in every other case the
	// browser's live value does not correspond to a single deterministic
	// source and the field stays nil until the decode probe resolves it.
	NaturalDimensions *NaturalDimensions `json:"naturalDimensions"`

	// AttributeWidth/Height are the raw HTML attribute values, "" when absent.
	AttributeWidth  string `json:"attributeWidth"`
	AttributeHeight string `json:"attributeHeight"`

	// CSSWidth/CSSHeight mirror EffectiveSizing for pre-existing consumers:
	// omitted entirely when the cascade declares nothing.
	CSSWidth        *string             `json:"cssWidth,omitempty"`
	CSSHeight       *string             `json:"cssHeight,omitempty"`
	EffectiveSizing *EffectiveCSSSizing `json:"cssEffectiveImageRules,omitempty"`

	CSSComputedPosition       string `json:"cssComputedPosition"`
	CSSComputedObjectFit      string `json:"cssComputedObjectFit"`
	CSSComputedImageRendering string `json:"cssComputedImageRendering"`

	IsCSS         bool `json:"isCss"`
	IsPicture     bool `json:"isPicture"`
	IsInShadowDOM bool `json:"isInShadowDOM"`

	LoadingAttribute *string `json:"loading,omitempty"`

	// NodePath is an opaque devtools node path usable to re-locate the DOM
	// node across the protocol boundary (DOM.pushNodeByPathToFrontend).
	NodePath string `json:"nodePath"`

	// MimeType is populated only when a matching network record exists.
	MimeType *string `json:"mimeType,omitempty"`
}

// AuditReport is the artifact of one gathering pass over one loaded page.
type AuditReport struct {
	PassID    string         `json:"passId"`
	URL       string         `json:"url"`
	FetchedAt time.Time      `json:"fetchedAt"`
	Elements  []ImageElement `json:"elements"`
	// Skipped counts elements that kept only their transfer metadata because
	// the enrichment budget expired before they were reached.
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}
