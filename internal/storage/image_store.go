// Package storage keeps uploaded product images on the local filesystem.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/prperemyshlev/storefront-api/internal/apperror"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const thumbnailQuality = 85

var extensions = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"webp": ".webp",
	"bmp":  ".bmp",
	"tiff": ".tiff",
}

var (
	ErrUnsupportedImage = apperror.Validation("Image must be jpeg, png, gif, webp, bmp or tiff")
	ErrImageTooLarge    = apperror.Validation("Image dimensions are too large")
)

// ImageStore writes originals and JPEG thumbnails under dir and
// addresses them by URL path under publicPath.
type ImageStore struct {
	dir           string
	publicPath    string
	thumbnailSize int
	maxPixels     int
}

// NewImageStore creates dir if needed. Images declaring more than maxPixels
// pixels are rejected before decoding.
func NewImageStore(dir, publicPath string, thumbnailSize, maxPixels int) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	return &ImageStore{
		dir:           dir,
		publicPath:    "/" + strings.Trim(publicPath, "/"),
		thumbnailSize: thumbnailSize,
		maxPixels:     maxPixels,
	}, nil
}

// Save decodes r, stores it unchanged and writes a thumbnail whose longer side
// is at most the configured size.
func (s *ImageStore) Save(r io.Reader) (string, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", "", fmt.Errorf("failed to read image: %w", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", "", ErrUnsupportedImage
	}
	ext, ok := extensions[format]
	if !ok {
		return "", "", ErrUnsupportedImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(s.maxPixels) {
		return "", "", ErrImageTooLarge
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", "", ErrUnsupportedImage
	}

	id := uuid.NewString()
	imageName := id + ext
	thumbName := id + "_thumb.jpg"

	if err := os.WriteFile(filepath.Join(s.dir, imageName), data, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write image: %w", err)
	}

	if err := s.writeThumbnail(filepath.Join(s.dir, thumbName), img); err != nil {
		_ = os.Remove(filepath.Join(s.dir, imageName))
		return "", "", err
	}

	return path.Join(s.publicPath, imageName), path.Join(s.publicPath, thumbName), nil
}

// Delete removes files by public path. Empty and missing paths are ignored.
func (s *ImageStore) Delete(paths ...string) error {
	var errs []error
	for _, p := range paths {
		if p == "" {
			continue
		}
		name := path.Base(strings.TrimPrefix(p, s.publicPath))
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *ImageStore) writeThumbnail(dst string, img image.Image) error {
	thumb := scaleToFit(img, s.thumbnailSize)

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create thumbnail: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, thumb, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return nil
}

// scaleToFit keeps the aspect ratio; images already small enough are only re-encoded
func scaleToFit(img image.Image, maxSide int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		maxSide = max(w, h)
	}

	newW, newH := maxSide, maxSide
	if w > h {
		newH = max(1, h*maxSide/w)
	} else {
		newW = max(1, w*maxSide/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
