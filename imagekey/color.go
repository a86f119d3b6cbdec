package imagekey

import (
	"image/color"
	"math"
)

// rgba is a non-premultiplied colour with components in [0,1].
type rgba struct {
	R, G, B, A float32
}

// fromNRGBA maps each 8-bit component to [0,1].
func fromNRGBA(c color.NRGBA) rgba {
	return rgba{
		R: float32(c.R) / 255.0,
		G: float32(c.G) / 255.0,
		B: float32(c.B) / 255.0,
		A: float32(c.A) / 255.0,
	}
}

// srgbToLinear converts an sRGB component to linear light.
// Formula: if s <= 0.04045: s/12.92; else: pow((s+0.055)/1.055, 2.4)
func srgbToLinear(s float32) float32 {
	if s <= 0.04045 {
		return s / 12.92
	}
	return float32(math.Pow(float64((s+0.055)/1.055), 2.4))
}

// luma returns Rec. 709 luma of gamma-encoded components.
func luma(r, g, b float32) float32 {
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// luminance returns Rec. 709 relative luminance, computed in linear light.
func luminance(r, g, b float32) float32 {
	return luma(srgbToLinear(r), srgbToLinear(g), srgbToLinear(b))
}

// lightness returns HSL lightness: the midpoint of the extreme components.
func lightness(r, g, b float32) float32 {
	return (max(r, g, b) + min(r, g, b)) / 2
}

// saturation returns HSL saturation in [0,1]. Greys have zero saturation.
func saturation(r, g, b float32) float32 {
	hi, lo := max(r, g, b), min(r, g, b)
	chroma := hi - lo
	if chroma == 0 {
		return 0
	}
	l := (hi + lo) / 2
	return chroma / (1 - float32(math.Abs(float64(2*l-1))))
}

// hue returns the HSL hue as a fraction of a full turn, in [0,1). Greys have
// zero hue.
func hue(r, g, b float32) float32 {
	hi, lo := max(r, g, b), min(r, g, b)
	chroma := hi - lo
	if chroma == 0 {
		return 0
	}

	var h float32
	switch hi {
	case r:
		h = (g - b) / chroma
		if h < 0 {
			h += 6
		}
	case g:
		h = (b-r)/chroma + 2
	default:
		h = (r-g)/chroma + 4
	}
	h /= 6
	if h >= 1 {
		h -= 1
	}
	return h
}
