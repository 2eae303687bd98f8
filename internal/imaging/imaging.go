// Package imaging normalizes uploaded item photos.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// Defaults for item photos.
const (
	MaxDimension = 1024
	JPEGQuality  = 85
	MaxInput     = 16 << 20
)

// ErrUnsupported is returned for inputs that are not an accepted image
// format.
var ErrUnsupported = errors.New("unsupported image format")

var decoders = map[string]func(io.Reader) (image.Image, error){
	"image/jpeg": jpeg.Decode,
	"image/png":  png.Decode,
	"image/gif":  gif.Decode,
	"image/webp": webp.Decode,
}

// Photo is a processed image, always JPEG.
type Photo struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Options tune Process. Zero fields take the package defaults.
type Options struct {
	MaxDimension int
	Quality      int
}

// Process sniffs the input format from its bytes, downscales it to fit in
// MaxDimension and re-encodes it as JPEG on a white background.
func Process(r io.Reader, opts Options) (*Photo, error) {
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = MaxDimension
	}
	if opts.Quality <= 0 {
		opts.Quality = JPEGQuality
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxInput+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxInput {
		return nil, fmt.Errorf("image larger than %d bytes", MaxInput)
	}

	detected := http.DetectContentType(data)
	decode, ok := decoders[detected]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, detected)
	}
	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", detected, err)
	}

	dst := flatten(img, opts.MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return &Photo{
		Data:   buf.Bytes(),
		MIME:   "image/jpeg",
		Width:  dst.Bounds().Dx(),
		Height: dst.Bounds().Dy(),
	}, nil
}

// fitWithin returns w×h scaled so neither side exceeds maxDim, keeping the
// aspect ratio.
func fitWithin(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	if w > h {
		h = int(float64(h) * float64(maxDim) / float64(w))
		w = maxDim
	} else {
		w = int(float64(w) * float64(maxDim) / float64(h))
		h = maxDim
	}
	return max(w, 1), max(h, 1)
}

// flatten draws img onto an opaque white canvas of at most maxDim per side.
func flatten(img image.Image, maxDim int) *image.RGBA {
	bounds := img.Bounds()
	w, h := fitWithin(bounds.Dx(), bounds.Dy(), maxDim)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == bounds.Dx() && h == bounds.Dy() {
		draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Over)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
