package schemas

// -- Network Transfer Schemas --

// NetworkRecord is one completed transfer observed during the page load, as
// collected from the browser's network events. It is the only shape the audit
// core knows about; CDP event plumbing stays behind the session layer.
type NetworkRecord struct {
	URL          string `json:"url"`
	MimeType     string `json:"mimeType"`
	StatusCode   int64  `json:"statusCode"`
	Finished     bool   `json:"finished"`
	ResourceSize int64  `json:"resourceSize"`
	Protocol     string `json:"protocol,omitempty"`
	FrameID      string `json:"frameId,omitempty"`
}

// -- Matched Styles Schemas --

// StyleDeclaration is one property declaration from a CSS rule or style block.
type StyleDeclaration struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// StyleDeclarations is an ordered list of declarations from a single source
// (inline style, attribute-derived style, or one stylesheet rule).
type StyleDeclarations struct {
	Declarations []StyleDeclaration `json:"declarations"`
}

// Get returns the last declared value for a property name, and whether any
// declaration for it exists. Later declarations within one block win.
func (s *StyleDeclarations) Get(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	value, found := "", false
	for _, d := range s.Declarations {
		if d.Name == name {
			value, found = d.Value, true
		}
	}
	return value, found
}

// MatchedRule is one author-stylesheet rule that matched the element,
// carrying the selector text that actually matched for specificity
// comparison. Rules arrive in source order (later entries defined later).
type MatchedRule struct {
	// Selector is the single complex selector from the rule's selector list
	// that matched the element.
	Selector string            `json:"selector"`
	Style    StyleDeclarations `json:"style"`
}

// MatchedStyles is the protocol-agnostic projection of a matched-styles query
// for one live node: everything the sizing cascade needs, nothing more.
type MatchedStyles struct {
	InlineStyle     *StyleDeclarations `json:"inlineStyle"`
	AttributesStyle *StyleDeclarations `json:"attributesStyle"`
	MatchedRules    []MatchedRule      `json:"matchedRules"`
}
