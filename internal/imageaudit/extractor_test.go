package imageaudit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// Verifies the in-page scan result unmarshals field-for-field into the
// element schema, covering both an <img> record and a CSS background record
// as the script emits them.
func TestExtractElements(t *testing.T) {
	payload := `[
		{
			"src": "https://a.test/photo.jpg",
			"srcset": "photo.jpg 1x, photo@2x.jpg 2x",
			"displayedWidth": 300,
			"displayedHeight": 200,
			"clientRect": {"top": 10, "bottom": 210, "left": 5, "right": 305},
			"naturalDimensions": null,
			"attributeWidth": "300",
			"attributeHeight": "",
			"cssComputedPosition": "absolute",
			"cssComputedObjectFit": "cover",
			"cssComputedImageRendering": "auto",
			"isCss": false,
			"isPicture": true,
			"isInShadowDOM": false,
			"loading": "lazy",
			"nodePath": "1,HTML,1,BODY,0,PICTURE,0,IMG"
		},
		{
			"src": "https://a.test/bg.png",
			"srcset": "",
			"displayedWidth": 1350,
			"displayedHeight": 400,
			"clientRect": {"top": 0, "bottom": 400, "left": 0, "right": 1350},
			"naturalDimensions": null,
			"attributeWidth": "",
			"attributeHeight": "",
			"cssComputedPosition": "static",
			"cssComputedObjectFit": "",
			"cssComputedImageRendering": "auto",
			"isCss": true,
			"isPicture": false,
			"isInShadowDOM": true,
			"loading": null,
			"nodePath": "1,HTML,1,BODY,1,HEADER"
		}
	]`
	drv := &fakeDriver{evaluateFunc: evaluateJSON(payload)}

	elements, err := ExtractElements(context.Background(), drv, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, elements, 2)

	img := elements[0]
	assert.Equal(t, "https://a.test/photo.jpg", img.Src)
	assert.Equal(t, "photo.jpg 1x, photo@2x.jpg 2x", img.Srcset)
	assert.Equal(t, int64(300), img.DisplayedWidth)
	assert.Equal(t, int64(200), img.DisplayedHeight)
	assert.Equal(t, 10.0, img.ClientRect.Top)
	assert.Equal(t, 305.0, img.ClientRect.Right)
	assert.Nil(t, img.NaturalDimensions, "picture children carry no trusted natural size")
	assert.Equal(t, "300", img.AttributeWidth)
	assert.Equal(t, "absolute", img.CSSComputedPosition)
	assert.Equal(t, "cover", img.CSSComputedObjectFit)
	assert.True(t, img.IsPicture)
	assert.False(t, img.IsCSS)
	require.NotNil(t, img.LoadingAttribute)
	assert.Equal(t, "lazy", *img.LoadingAttribute)
	assert.Equal(t, "1,HTML,1,BODY,0,PICTURE,0,IMG", img.NodePath)

	bg := elements[1]
	assert.True(t, bg.IsCSS)
	assert.True(t, bg.IsInShadowDOM)
	assert.Empty(t, bg.Srcset)
	assert.Nil(t, bg.LoadingAttribute)

	assert.Equal(t, 1, drv.evaluateCalls, "extraction is a single in-page scan")
}

// Verifies an extraction failure is fatal; the pass has nothing to work on.
func TestExtractElements_Failure(t *testing.T) {
	drv := &fakeDriver{
		evaluateFunc: func(ctx context.Context, expression string, out interface{}) error {
			return NewCallError("Runtime.evaluate", KindProtocol, context.Canceled)
		},
	}

	elements, err := ExtractElements(context.Background(), drv, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Nil(t, elements)
}
