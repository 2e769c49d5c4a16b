package port

import (
	"image"
	"nobg/internal/core/domain"
)

type ImageCodec interface {
	// Load decodes the image stored at path.
	Load(path string) (*domain.Image, error)
	// Save writes img to path as a PNG with alpha channel, replacing any existing file.
	Save(path string, img image.Image) error
	// Fit downscales img so neither side exceeds maxDimension. Smaller images are returned unchanged.
	Fit(img image.Image, maxDimension int) image.Image
}
