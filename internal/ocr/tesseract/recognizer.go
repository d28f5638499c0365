// Package tesseract recognizes catalog text with Tesseract via gosseract.
package tesseract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguage is used when Config.Language is empty.
const DefaultLanguage = "eng"

// Minimum height an image is upscaled to before recognition when preprocessing.
const preprocessMinHeight = 1300

// Config controls recognition.
type Config struct {
	Language   string
	Preprocess bool
}

// Recognizer implements scanner.TextRecognizer. Each call owns its own
// Tesseract client, so a Recognizer is safe for concurrent use.
type Recognizer struct {
	cfg Config
}

// New returns a Recognizer.
func New(cfg Config) *Recognizer {
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	return &Recognizer{cfg: cfg}
}

// Recognize returns the text Tesseract finds in img.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	if img == nil {
		return "", errors.New("nil image")
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("ocr canceled: %w", err)
	}
	payload, err := r.encode(img)
	if err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(r.cfg.Language); err != nil {
		return "", fmt.Errorf("set language %q: %w", r.cfg.Language, err)
	}
	if err := client.SetImageFromBytes(payload); err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return text, nil
}

func (r *Recognizer) encode(img image.Image) ([]byte, error) {
	if r.cfg.Preprocess {
		img = Preprocess(img)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Preprocess converts img to a sharpened, contrast-boosted grayscale image and
// upscales short images so small catalog print survives recognition.
func Preprocess(img image.Image) *image.NRGBA {
	out := imaging.Grayscale(img)
	out = imaging.AdjustContrast(out, 15)
	out = imaging.Sharpen(out, 0.7)
	if h := out.Bounds().Dy(); h > 0 && h < preprocessMinHeight {
		out = imaging.Resize(out, 0, preprocessMinHeight, imaging.Lanczos)
	}
	return out
}
