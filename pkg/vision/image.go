package vision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// MaxImageBytes bounds how much of a remote image is read.
const MaxImageBytes = 20 << 20

var ErrUnsupportedImage = errors.New("unsupported image reference")

// LocalPath resolves a plain path or file:// URI. ok is false for remote references.
func LocalPath(ref string) (path string, ok bool) {
	switch {
	case strings.HasPrefix(ref, "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return strings.TrimPrefix(ref, "file://"), true
		}
		return u.Path, true
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return "", false
	default:
		return ref, true
	}
}

// LoadImage reads the bytes behind an image reference and sniffs the MIME type.
func LoadImage(ctx context.Context, ref string) ([]byte, string, error) {
	if ref == "" {
		return nil, "", ErrUnsupportedImage
	}

	var data []byte
	if path, ok := LocalPath(ref); ok {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("read image: %w", err)
		}
		data = b
	} else {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return nil, "", fmt.Errorf("create image request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("fetch image: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, "", fmt.Errorf("fetch image: status %d", resp.StatusCode)
		}
		data, err = io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes))
		if err != nil {
			return nil, "", fmt.Errorf("read image: %w", err)
		}
	}

	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return nil, "", fmt.Errorf("%w: detected %s", ErrUnsupportedImage, mime)
	}
	return data, mime, nil
}
