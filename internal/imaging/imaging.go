// Package imaging validates uploaded print artwork and renders previews.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// MaxUploadSize is the largest artwork file accepted, in bytes.
const MaxUploadSize = 25 << 20

// PreviewDimension is the maximum width or height of a preview.
const PreviewDimension = 512

// JPEGQuality is the compression quality for previews.
const JPEGQuality = 85

// MIME types accepted as artwork.
const (
	MIMEPDF  = "application/pdf"
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
)

// AllowedMIME lists the accepted artwork types.
var AllowedMIME = map[string]bool{
	MIMEPDF:  true,
	MIMEJPEG: true,
	MIMEPNG:  true,
}

// Artwork is a validated upload with an optional preview. PDF files carry
// no preview.
type Artwork struct {
	Data        []byte
	MIME        string
	Preview     []byte
	PreviewMIME string
}

// Process reads an upload, checks its type by sniffing the content and
// renders a JPEG preview for raster images.
func Process(r io.Reader) (*Artwork, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading artwork: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, fmt.Errorf("artwork exceeds %d MB", MaxUploadSize>>20)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("artwork is empty")
	}

	detected := http.DetectContentType(data)
	if !AllowedMIME[detected] {
		return nil, fmt.Errorf("unsupported artwork format: %s (PDF, PNG and JPEG accepted)", detected)
	}

	a := &Artwork{Data: data, MIME: detected}
	if detected == MIMEPDF {
		return a, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, downscale(img, PreviewDimension), &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding preview: %w", err)
	}
	a.Preview = buf.Bytes()
	a.PreviewMIME = MIMEJPEG
	return a, nil
}

// downscale resizes img so neither dimension exceeds maxDim, keeping the
// aspect ratio. Smaller images are returned unchanged.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = h * maxDim / w
	} else {
		newW = w * maxDim / h
	}
	newW = max(newW, 1)
	newH = max(newH, 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
