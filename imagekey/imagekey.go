// Package imagekey derives sortable per-pixel channels from images.
//
// Offsets are row-major pixel indices y*W + x relative to the image bounds'
// minimum point. Values for each Kind are in [0,1], computed from
// non-premultiplied colour.
package imagekey

import (
	"fmt"
	"image"
	"strings"

	"golang.org/x/image/draw"
)

// Kind selects the per-pixel value a channel is sorted by.
type Kind uint8

const (
	Red Kind = iota
	Green
	Blue
	Alpha
	// Luma is Rec. 709 luma of the gamma-encoded components.
	Luma
	// Luminance is Rec. 709 relative luminance in linear light.
	Luminance
	Hue
	Saturation
	Lightness
)

var kindNames = [...]string{
	Red:        "red",
	Green:      "green",
	Blue:       "blue",
	Alpha:      "alpha",
	Luma:       "luma",
	Luminance:  "luminance",
	Hue:        "hue",
	Saturation: "saturation",
	Lightness:  "lightness",
}

var kindAliases = map[string]Kind{
	"r": Red, "g": Green, "b": Blue, "a": Alpha,
	"y": Luma, "h": Hue, "s": Saturation, "l": Lightness,
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ParseKind parses a kind name or its one-letter alias, case-insensitively.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if s == name {
			return Kind(k), nil
		}
	}
	if k, ok := kindAliases[s]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("imagekey: unknown channel %q", s)
}

// ParseKinds parses a comma-separated list of kinds.
func ParseKinds(s string) ([]Kind, error) {
	var kinds []Kind
	for part := range strings.SplitSeq(s, ",") {
		k, err := ParseKind(part)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func (k Kind) value(c rgba) float32 {
	switch k {
	case Red:
		return c.R
	case Green:
		return c.G
	case Blue:
		return c.B
	case Alpha:
		return c.A
	case Luma:
		return luma(c.R, c.G, c.B)
	case Luminance:
		return luminance(c.R, c.G, c.B)
	case Hue:
		return hue(c.R, c.G, c.B)
	case Saturation:
		return saturation(c.R, c.G, c.B)
	case Lightness:
		return lightness(c.R, c.G, c.B)
	}
	return 0
}

// Offsets returns the row-major offsets of every pixel in img, in order.
func Offsets(img image.Image) []uint32 {
	b := img.Bounds()
	offsets := make([]uint32, b.Dx()*b.Dy())
	for i := range offsets {
		offsets[i] = uint32(i) //nolint:gosec // pixel count fits uint32
	}
	return offsets
}

// Channels returns one value array per kind, each indexed by row-major
// offset.
func Channels(img image.Image, kinds ...Kind) [][]float32 {
	b := img.Bounds()
	w := b.Dx()
	channels := make([][]float32, len(kinds))
	for c := range channels {
		channels[c] = make([]float32, w*b.Dy())
	}

	src := toNRGBA(img)
	for y := range b.Dy() {
		for x := range w {
			px := fromNRGBA(src.NRGBAAt(x, y))
			for c, k := range kinds {
				channels[c][y*w+x] = k.value(px)
			}
		}
	}
	return channels
}

// Values returns the values of a single kind, indexed by row-major offset.
func Values(img image.Image, kind Kind) []float32 {
	return Channels(img, kind)[0]
}

// Permute builds an image of the same size whose i-th pixel, in row-major
// order, is the source pixel at offsets[i]. Pixels past len(offsets) are
// left transparent.
func Permute(img image.Image, offsets []uint32) (*image.NRGBA, error) {
	src := toNRGBA(img)
	n := src.Rect.Dx() * src.Rect.Dy()
	if len(offsets) > n {
		return nil, fmt.Errorf("imagekey: %d offsets for %d pixels", len(offsets), n)
	}

	dst := image.NewNRGBA(src.Rect)
	for i, off := range offsets {
		if int(off) >= n {
			return nil, fmt.Errorf("imagekey: offset %d out of range [0,%d)", off, n)
		}
		copy(dst.Pix[i*4:i*4+4], src.Pix[off*4:off*4+4])
	}
	return dst, nil
}

// Fit scales img down so neither side exceeds maxSide, keeping the aspect
// ratio. Images already within bounds, or maxSide <= 0, are returned as is.
func Fit(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	if maxSide <= 0 || (b.Dx() <= maxSide && b.Dy() <= maxSide) {
		return img
	}
	scale := float64(maxSide) / float64(max(b.Dx(), b.Dy()))
	w := max(1, int(float64(b.Dx())*scale+0.5))
	h := max(1, int(float64(b.Dy())*scale+0.5))

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// toNRGBA returns img as an *image.NRGBA with bounds at the origin, copying
// only when needed.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) && n.Stride == 4*n.Rect.Dx() {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
