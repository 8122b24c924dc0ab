// Package imaging extracts descriptive metadata from uploaded images.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/narwhalmedia/gallery/internal/gallery/domain"
)

// Metadata describes a decoded image.
type Metadata struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Format   string `json:"format"`
	Size     int64  `json:"size"`
	HasAlpha bool   `json:"hasAlpha"`
	Color    string `json:"color"`
}

// MaxPixels caps width x height of an image Extract is willing to decode.
const MaxPixels = 268402689

// ErrTooManyPixels is returned for images whose header announces more than
// MaxPixels pixels.
var ErrTooManyPixels = errors.New("image exceeds pixel limit")

// Extract decodes data and computes its metadata. The dominant color is the
// per-channel mean over every pixel, rounded to the nearest integer. The
// header is checked against MaxPixels before any pixel is decoded.
func Extract(data []byte) (Metadata, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || uint64(cfg.Width)*uint64(cfg.Height) > MaxPixels {
		return Metadata{}, fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	md := Metadata{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: format,
		Size:   int64(len(data)),
		Color:  domain.DefaultColor,
	}
	md.HasAlpha = hasAlphaChannel(img)
	md.Color = meanColor(img)
	return md, nil
}

// ExtractOrEmpty returns the metadata of data as a domain map together with
// the dominant color. Images that cannot be decoded yield empty metadata and
// the default color.
func ExtractOrEmpty(data []byte) (domain.Metadata, string) {
	md, err := Extract(data)
	if err != nil {
		return domain.Metadata{}, domain.DefaultColor
	}
	return md.Map(), md.Color
}

// Map converts the metadata into its stored form.
func (m Metadata) Map() domain.Metadata {
	return domain.Metadata{
		"width":    m.Width,
		"height":   m.Height,
		"format":   m.Format,
		"size":     m.Size,
		"hasAlpha": m.HasAlpha,
	}
}

// hasAlphaChannel reports whether the decoded image carries an alpha
// channel, whether or not any pixel uses it. Opaque truecolor PNGs decode to
// *image.RGBA and have none.
func hasAlphaChannel(img image.Image) bool {
	switch m := img.(type) {
	case *image.NRGBA, *image.NRGBA64, *image.NYCbCrA, *image.Alpha, *image.Alpha16:
		return true
	case *image.Paletted:
		for _, c := range m.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func meanColor(img image.Image) string {
	bounds := img.Bounds()
	pixels := uint64(bounds.Dx()) * uint64(bounds.Dy())
	if pixels == 0 {
		return domain.DefaultColor
	}

	var r, g, b uint64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			r += uint64(c.R)
			g += uint64(c.G)
			b += uint64(c.B)
		}
	}
	return Hex(roundedMean(r, pixels), roundedMean(g, pixels), roundedMean(b, pixels))
}

// roundedMean rounds half up.
func roundedMean(sum, n uint64) uint8 {
	return uint8((sum + n/2) / n)
}

// Hex formats a color as #rrggbb.
func Hex(r, g, b uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}
