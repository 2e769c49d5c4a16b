// Package codec reads and writes images on disk.
package codec

import (
	"fmt"
	"image"
	"io"
	"os"

	"nobg/internal/core/domain"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"
)

// Imaging decodes JPEG, PNG, GIF, BMP, TIFF and WebP input and always writes PNG.
type Imaging struct{}

func NewImaging() *Imaging {
	return &Imaging{}
}

func (c *Imaging) Load(path string) (*domain.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("unsupported image: %w", err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("path", path).
		Str("format", format).
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Msg("decoded image")

	return &domain.Image{Path: path, Format: format, Bitmap: img}, nil
}

func (c *Imaging) Save(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := imaging.Encode(f, imaging.Clone(img), imaging.PNG); err != nil {
		return fmt.Errorf("error encoding png: %w", err)
	}

	log.Debug().Str("path", path).Msg("wrote png")

	return nil
}

func (c *Imaging) Fit(img image.Image, maxDimension int) image.Image {
	b := img.Bounds()
	if maxDimension <= 0 || (b.Dx() <= maxDimension && b.Dy() <= maxDimension) {
		return img
	}

	log.Debug().
		Int("width", b.Dx()).
		Int("height", b.Dy()).
		Int("max", maxDimension).
		Msg("downscaling image")

	return resize.Thumbnail(uint(maxDimension), uint(maxDimension), img, resize.Lanczos3)
}
