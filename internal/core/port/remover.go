package port

import (
	"context"
	"image"
)

type BackgroundRemover interface {
	// Remove segments the image and returns a copy of the same size with background pixels made transparent.
	Remove(ctx context.Context, img image.Image) (image.Image, error)
}
