package imagekey

import (
	"errors"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"slices"
	"testing"
)

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 255 / max(1, w-1)), G: uint8(y * 255 / max(1, h-1)), B: 128, A: 255})
		}
	}
	return img
}

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-3
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"red", Red}, {"R", Red}, {" luma ", Luma}, {"y", Luma},
		{"Luminance", Luminance}, {"h", Hue}, {"saturation", Saturation}, {"l", Lightness}, {"a", Alpha},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseKind(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseKind("chroma"); err == nil {
		t.Error("ParseKind(chroma) succeeded")
	}
	if Hue.String() != "hue" || Kind(99).String() != "Kind(99)" {
		t.Error("unexpected String()")
	}
}

func TestParseKinds(t *testing.T) {
	got, err := ParseKinds("r,g,b")
	if err != nil || !slices.Equal(got, []Kind{Red, Green, Blue}) {
		t.Errorf("ParseKinds = %v, %v", got, err)
	}
	if _, err := ParseKinds("r,,b"); err == nil {
		t.Error("empty entry accepted")
	}
}

func TestColorKeys(t *testing.T) {
	tests := []struct {
		name string
		c    rgba
		kind Kind
		want float32
	}{
		{"white luma", rgba{1, 1, 1, 1}, Luma, 1},
		{"green luma", rgba{0, 1, 0, 1}, Luma, 0.7152},
		{"mid grey luminance", rgba{0.5, 0.5, 0.5, 1}, Luminance, 0.2140},
		{"red hue", rgba{1, 0, 0, 1}, Hue, 0},
		{"green hue", rgba{0, 1, 0, 1}, Hue, 1.0 / 3},
		{"blue hue", rgba{0, 0, 1, 1}, Hue, 2.0 / 3},
		{"magenta hue", rgba{1, 0, 1, 1}, Hue, 5.0 / 6},
		{"grey hue", rgba{0.4, 0.4, 0.4, 1}, Hue, 0},
		{"pure saturation", rgba{1, 0, 0, 1}, Saturation, 1},
		{"grey saturation", rgba{0.3, 0.3, 0.3, 1}, Saturation, 0},
		{"pastel saturation", rgba{1, 0.5, 0.5, 1}, Saturation, 1},
		{"red lightness", rgba{1, 0, 0, 1}, Lightness, 0.5},
		{"alpha", rgba{0, 0, 0, 0.25}, Alpha, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kind.value(tt.c); !near(got, tt.want) {
				t.Errorf("%v = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestChannelsAndOffsets(t *testing.T) {
	img := gradient(3, 2)
	offsets := Offsets(img)
	if !slices.Equal(offsets, []uint32{0, 1, 2, 3, 4, 5}) {
		t.Fatalf("Offsets = %v", offsets)
	}

	ch := Channels(img, Red, Green)
	if len(ch) != 2 || len(ch[0]) != 6 {
		t.Fatalf("Channels shape = %d x %d", len(ch), len(ch[0]))
	}
	// Offset 5 is (x=2, y=1).
	if !near(ch[0][5], 1) || !near(ch[1][5], 1) || !near(ch[0][3], 0) {
		t.Errorf("unexpected values: red=%v green=%v", ch[0], ch[1])
	}
	if !slices.Equal(Values(img, Blue), Channels(img, Blue)[0]) {
		t.Error("Values disagrees with Channels")
	}
}

func TestChannelsOffsetBounds(t *testing.T) {
	img := gradient(4, 4).SubImage(image.Rect(2, 2, 4, 4))
	ch := Channels(img, Red)
	if len(ch[0]) != 4 {
		t.Fatalf("len = %d, want 4", len(ch[0]))
	}
	if !near(ch[0][1], 1) {
		t.Errorf("sub-image x=1 red = %v, want 1", ch[0][1])
	}
}

func TestPermute(t *testing.T) {
	img := gradient(2, 2)
	got, err := Permute(img, []uint32{3, 2, 1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if got.NRGBAAt(0, 0) != img.NRGBAAt(1, 1) || got.NRGBAAt(1, 1) != img.NRGBAAt(0, 0) {
		t.Error("pixels not permuted")
	}

	if _, err := Permute(img, []uint32{4}); err == nil {
		t.Error("out-of-range offset accepted")
	}
	if _, err := Permute(img, make([]uint32, 5)); err == nil {
		t.Error("too many offsets accepted")
	}
}

func TestFit(t *testing.T) {
	img := gradient(40, 20)
	if Fit(img, 0) != image.Image(img) || Fit(img, 40) != image.Image(img) {
		t.Error("Fit resized an image already within bounds")
	}
	got := Fit(img, 10)
	if b := got.Bounds(); b.Dx() != 10 || b.Dy() != 5 {
		t.Errorf("Fit bounds = %v, want 10x5", b)
	}
}

func TestSaveLoad(t *testing.T) {
	img := gradient(8, 8)
	dir := t.TempDir()
	for _, name := range []string{"out.png", "out.bmp", "out.tiff"} {
		path := filepath.Join(dir, name)
		if err := Save(path, img); err != nil {
			t.Fatalf("Save %s: %v", name, err)
		}
		got, _, err := Load(path)
		if err != nil {
			t.Fatalf("Load %s: %v", name, err)
		}
		if !slices.Equal(Values(got, Red), Values(img, Red)) {
			t.Errorf("%s: lossless round trip changed pixels", name)
		}
	}

	if err := Save(filepath.Join(dir, "out.xyz"), img); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("error = %v, want ErrUnsupportedFormat", err)
	}
	if _, _, err := Load(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}
