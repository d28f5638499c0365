package tesseract

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsLanguage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultLanguage, New(Config{}).cfg.Language)
	assert.Equal(t, "nor", New(Config{Language: "nor"}).cfg.Language)
}

func TestPreprocessProducesGrayscaleAndUpscales(t *testing.T) {
	t.Parallel()

	src := imaging.New(40, 20, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
	out := Preprocess(src)

	require.Equal(t, preprocessMinHeight, out.Bounds().Dy())
	assert.Equal(t, 40*preprocessMinHeight/20, out.Bounds().Dx())

	c := out.NRGBAAt(out.Bounds().Dx()/2, out.Bounds().Dy()/2)
	assert.Equal(t, c.R, c.G)
	assert.Equal(t, c.G, c.B)
}

func TestPreprocessKeepsTallImages(t *testing.T) {
	t.Parallel()

	src := imaging.New(10, preprocessMinHeight+10, color.White)
	out := Preprocess(src)
	assert.Equal(t, image.Rect(0, 0, 10, preprocessMinHeight+10), out.Bounds())
}

func TestEncodeWritesPNG(t *testing.T) {
	t.Parallel()

	src := imaging.New(8, 8, color.Black)
	for _, preprocess := range []bool{false, true} {
		r := New(Config{Preprocess: preprocess})
		payload, err := r.encode(src)
		require.NoError(t, err)
		require.True(t, bytes.HasPrefix(payload, []byte("\x89PNG")), "payload is not PNG")

		decoded, err := imaging.Decode(bytes.NewReader(payload))
		require.NoError(t, err)
		if preprocess {
			assert.Equal(t, preprocessMinHeight, decoded.Bounds().Dy())
		} else {
			assert.Equal(t, 8, decoded.Bounds().Dy())
		}
	}
}

func TestRecognizeRejectsBadInput(t *testing.T) {
	t.Parallel()

	r := New(Config{})
	_, err := r.Recognize(context.Background(), nil)
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Recognize(ctx, imaging.New(1, 1, color.White))
	require.ErrorIs(t, err, context.Canceled)
}
