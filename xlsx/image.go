package xlsx

import (
	"bytes"
	"fmt"
	"image"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// defaultDPI is assumed when the image format carries no density
// information.
const defaultDPI = 96.0

var imageContentTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
}

// Image is an embeddable picture. Construct with NewImage or
// NewImageFromFile; the pixel dimensions are probed from the encoded
// header.
type Image struct {
	blob   []byte
	format string
	width  int // px
	height int // px

	// ScaleX and ScaleY scale the anchored size; 1 is natural size.
	ScaleX float64
	ScaleY float64

	// DPI used to convert pixels to document units.
	DPI float64

	// AltText is the accessibility description.
	AltText string
}

// NewImage probes blob and returns an embeddable image. PNG, JPEG, GIF,
// BMP and TIFF data is recognized.
func NewImage(blob []byte) (*Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if _, ok := imageContentTypes[format]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, format)
	}
	return &Image{
		blob:   blob,
		format: format,
		width:  cfg.Width,
		height: cfg.Height,
		ScaleX: 1,
		ScaleY: 1,
		DPI:    defaultDPI,
	}, nil
}

// NewImageFromFile reads and probes an image file.
func NewImageFromFile(path string) (*Image, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewImage(blob)
}

// Width returns the probed width in pixels.
func (im *Image) Width() int { return im.width }

// Height returns the probed height in pixels.
func (im *Image) Height() int { return im.height }

// Format returns the probed format name ("png", "jpeg", ...).
func (im *Image) Format() string { return im.format }

func (im *Image) contentType() string { return imageContentTypes[im.format] }

// scaledPixels returns the anchored size in pixels after scaling and
// density correction.
func (im *Image) scaledPixels() (w, h float64) {
	dpi := im.DPI
	if dpi <= 0 {
		dpi = defaultDPI
	}
	w = float64(im.width) * im.ScaleX * defaultDPI / dpi
	h = float64(im.height) * im.ScaleY * defaultDPI / dpi
	return w, h
}
