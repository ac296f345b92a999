// Package ocr extracts text from receipt images using Tesseract.
//
// Tesseract and its language data must be installed on the system
// (apt-get install tesseract-ocr tesseract-ocr-eng).
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// Engine recognizes text in an image
type Engine interface {
	Recognize(ctx context.Context, imageData []byte) (string, error)
}

// Tesseract runs OCR through gosseract after preprocessing the image
// for better recognition on low-quality receipt photos.
type Tesseract struct {
	language string
}

func NewTesseract(language string) *Tesseract {
	if language == "" {
		language = "eng"
	}
	return &Tesseract{language: language}
}

// Recognize extracts text from an image. Tesseract needs a file path,
// so the preprocessed image goes through a temporary PNG.
func (t *Tesseract) Recognize(ctx context.Context, imageData []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	img, err := imaging.Decode(bytes.NewReader(imageData))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	processed := preprocess(img)

	tmpFile, err := os.CreateTemp("", "receipt-ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if err := png.Encode(tmpFile, processed); err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("encode temp image: %w", err)
	}
	tmpFile.Close()

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if err := client.SetImage(tmpPath); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

// preprocess upscales 2x and pushes the image toward high-contrast
// grayscale, which noticeably improves Tesseract output on phone photos.
func preprocess(img image.Image) image.Image {
	bounds := img.Bounds()
	upscaled := transform.Resize(img, bounds.Dx()*2, bounds.Dy()*2, transform.Linear)

	gray := imaging.Grayscale(upscaled)
	gray = imaging.AdjustContrast(gray, 30)
	gray = imaging.AdjustBrightness(gray, 4)
	return gray
}
