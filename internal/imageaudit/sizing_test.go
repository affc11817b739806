package imageaudit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pagelens/api/schemas"
)

// Verifies only light-DOM element images get their CSS sizing resolved.
func TestSizingResolver_Eligible(t *testing.T) {
	r := NewSizingResolver(&fakeDriver{}, zaptest.NewLogger(t))

	tests := []struct {
		name string
		el   schemas.ImageElement
		want bool
	}{
		{"Plain img", schemas.ImageElement{}, true},
		{"CSS background", schemas.ImageElement{IsCSS: true}, false},
		{"Shadow DOM img", schemas.ImageElement{IsInShadowDOM: true}, false},
		{"Shadow DOM CSS background", schemas.ImageElement{IsCSS: true, IsInShadowDOM: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Eligible(&tt.el))
		})
	}
}

// Verifies the cascade precedence for the width/height declarations: inline
// style first, then attribute-derived style, then matched rules by
// specificity with later rules winning ties.
func TestResolveCascadedValue(t *testing.T) {
	strPtr := func(s string) *string { return &s }

	tests := []struct {
		name     string
		matched  *schemas.MatchedStyles
		property string
		want     *string
	}{
		{
			name:     "Nil matched styles",
			matched:  nil,
			property: "width",
			want:     nil,
		},
		{
			name:     "No source declares the property",
			matched:  &schemas.MatchedStyles{InlineStyle: decls("display", "block")},
			property: "width",
			want:     nil,
		},
		{
			name: "Inline beats everything",
			matched: &schemas.MatchedStyles{
				InlineStyle:     decls("width", "100px"),
				AttributesStyle: decls("width", "200px"),
				MatchedRules: []schemas.MatchedRule{
					{Selector: "#hero", Style: *decls("width", "300px")},
				},
			},
			property: "width",
			want:     strPtr("100px"),
		},
		{
			name: "Attributes beat matched rules",
			matched: &schemas.MatchedStyles{
				AttributesStyle: decls("width", "200px"),
				MatchedRules: []schemas.MatchedRule{
					{Selector: "#hero", Style: *decls("width", "300px")},
				},
			},
			property: "width",
			want:     strPtr("200px"),
		},
		{
			name: "Higher specificity rule wins regardless of order",
			matched: &schemas.MatchedStyles{
				MatchedRules: []schemas.MatchedRule{
					{Selector: "#hero", Style: *decls("width", "300px")},
					{Selector: "img", Style: *decls("width", "50px")},
				},
			},
			property: "width",
			want:     strPtr("300px"),
		},
		{
			name: "Equal specificity tie goes to the later rule",
			matched: &schemas.MatchedStyles{
				MatchedRules: []schemas.MatchedRule{
					{Selector: ".a", Style: *decls("width", "10px")},
					{Selector: ".b", Style: *decls("width", "20px")},
				},
			},
			property: "width",
			want:     strPtr("20px"),
		},
		{
			name: "Rules without the property are transparent",
			matched: &schemas.MatchedStyles{
				MatchedRules: []schemas.MatchedRule{
					{Selector: "#hero", Style: *decls("height", "40px")},
					{Selector: "img", Style: *decls("width", "50px")},
				},
			},
			property: "width",
			want:     strPtr("50px"),
		},
		{
			name: "Later declaration wins within one block",
			matched: &schemas.MatchedStyles{
				InlineStyle: decls("width", "10px", "width", "30px"),
			},
			property: "width",
			want:     strPtr("30px"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveCascadedValue(tt.matched, tt.property)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

// Verifies a vanished node is an expected outcome: the element keeps nil
// sizing fields and no error surfaces.
func TestSizingResolver_Resolve_NodeGone(t *testing.T) {
	drv := &fakeDriver{
		pushFunc: func(ctx context.Context, path string) (int64, error) {
			return 0, NewCallError("DOM.pushNodeByPathToFrontend", KindNodeNotFound, errors.New("no node"))
		},
	}
	r := NewSizingResolver(drv, zaptest.NewLogger(t))

	el := schemas.ImageElement{Src: "https://a.test/x.png", NodePath: "1,HTML,1,BODY,0,IMG"}
	err := r.Resolve(context.Background(), &el)

	require.NoError(t, err)
	assert.Nil(t, el.CSSWidth)
	assert.Nil(t, el.CSSHeight)
	assert.Nil(t, el.EffectiveSizing)
	assert.Zero(t, drv.matchedCalls, "matched styles must not be queried for a vanished node")
}

// Verifies any other protocol failure propagates to abort the pass.
func TestSizingResolver_Resolve_ProtocolFailure(t *testing.T) {
	t.Run("On node resolution", func(t *testing.T) {
		drv := &fakeDriver{
			pushFunc: func(ctx context.Context, path string) (int64, error) {
				return 0, NewCallError("DOM.pushNodeByPathToFrontend", KindProtocol, errors.New("target crashed"))
			},
		}
		r := NewSizingResolver(drv, zaptest.NewLogger(t))

		err := r.Resolve(context.Background(), &schemas.ImageElement{Src: "https://a.test/x.png"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNodeNotFound)
	})

	t.Run("On matched styles query", func(t *testing.T) {
		drv := &fakeDriver{
			matchedFunc: func(ctx context.Context, nodeID int64) (*schemas.MatchedStyles, error) {
				return nil, NewCallError("CSS.getMatchedStylesForNode", KindProtocol, errors.New("target crashed"))
			},
		}
		r := NewSizingResolver(drv, zaptest.NewLogger(t))

		err := r.Resolve(context.Background(), &schemas.ImageElement{Src: "https://a.test/x.png"})
		require.Error(t, err)
	})
}

// Verifies a successful resolution populates both the flat fields and the
// effective sizing block, with absent declarations staying nil.
func TestSizingResolver_Resolve_Populates(t *testing.T) {
	drv := &fakeDriver{
		matchedFunc: func(ctx context.Context, nodeID int64) (*schemas.MatchedStyles, error) {
			return &schemas.MatchedStyles{
				MatchedRules: []schemas.MatchedRule{
					{Selector: ".hero", Style: *decls("width", "100%")},
				},
			}, nil
		},
	}
	r := NewSizingResolver(drv, zaptest.NewLogger(t))

	el := schemas.ImageElement{Src: "https://a.test/x.png", NodePath: "1,HTML,1,BODY,0,IMG"}
	require.NoError(t, r.Resolve(context.Background(), &el))

	require.NotNil(t, el.CSSWidth)
	assert.Equal(t, "100%", *el.CSSWidth)
	assert.Nil(t, el.CSSHeight)
	require.NotNil(t, el.EffectiveSizing)
	assert.Equal(t, el.CSSWidth, el.EffectiveSizing.Width)
	assert.Nil(t, el.EffectiveSizing.Height)
}
