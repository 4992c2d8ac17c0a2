// Package thumbnail produces small JPEG previews for scan history.
package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"ecospectre-be/pkg/vision"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

const (
	DefaultMaxDimension = 320
	jpegQuality         = 80
)

type Thumbnailer struct {
	Dir          string
	MaxDimension int
}

func New(dir string, maxDimension int) *Thumbnailer {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	return &Thumbnailer{Dir: dir, MaxDimension: maxDimension}
}

// Thumbnail returns a file:// reference to a downscaled copy of imageRef.
// Images that already fit are returned unchanged.
func (t *Thumbnailer) Thumbnail(ctx context.Context, imageRef string) (string, error) {
	data, _, err := vision.LoadImage(ctx, imageRef)
	if err != nil {
		return "", err
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := scaledSize(bounds.Dx(), bounds.Dy(), t.MaxDimension)
	if w == bounds.Dx() && h == bounds.Dy() {
		return imageRef, nil
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	if err := os.MkdirAll(t.Dir, 0o755); err != nil {
		return "", err
	}
	path, err := filepath.Abs(filepath.Join(t.Dir, "thumb-"+uuid.NewString()+".jpg"))
	if err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := jpeg.Encode(f, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(path), nil
}

// scaledSize fits w x h inside limit on the longest side, keeping the aspect ratio.
func scaledSize(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		nh := h * limit / w
		if nh < 1 {
			nh = 1
		}
		return limit, nh
	}
	nw := w * limit / h
	if nw < 1 {
		nw = 1
	}
	return nw, limit
}
