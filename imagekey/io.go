package imagekey

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	// Decoders registered for Load.
	_ "image/gif"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedFormat is returned by Save for an unknown file extension.
var ErrUnsupportedFormat = errors.New("imagekey: unsupported image format")

// Load decodes an image file. PNG, JPEG, GIF, BMP, TIFF and WebP are
// recognised by content.
func Load(path string) (image.Image, string, error) {
	f, err := os.Open(path) //nolint:gosec // path supplied by the caller
	if err != nil {
		return nil, "", fmt.Errorf("imagekey: load: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("imagekey: decode %s: %w", path, err)
	}
	return img, format, nil
}

// Save encodes img to path, choosing the format from the extension: .png,
// .jpg/.jpeg, .bmp or .tif/.tiff.
func Save(path string, img image.Image) (err error) {
	ext := strings.ToLower(filepath.Ext(path))
	var encode func(*os.File) error
	switch ext {
	case ".png":
		encode = func(f *os.File) error { return png.Encode(f, img) }
	case ".jpg", ".jpeg":
		encode = func(f *os.File) error { return jpeg.Encode(f, img, &jpeg.Options{Quality: 95}) }
	case ".bmp":
		encode = func(f *os.File) error { return bmp.Encode(f, img) }
	case ".tif", ".tiff":
		encode = func(f *os.File) error {
			return tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Create(path) //nolint:gosec // path supplied by the caller
	if err != nil {
		return fmt.Errorf("imagekey: save: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("imagekey: save: %w", cerr)
		}
	}()
	if err := encode(f); err != nil {
		return fmt.Errorf("imagekey: encode %s: %w", path, err)
	}
	return nil
}
