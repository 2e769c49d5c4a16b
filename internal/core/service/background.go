package service

import (
	"context"
	"errors"
	"image"
	"os"

	"nobg/internal/core/domain"
	"nobg/internal/core/port"

	"github.com/rs/zerolog/log"
)

type Options struct {
	// MaxDimension downscales larger images before removal. Zero disables it.
	MaxDimension int
	// NoClobber refuses to replace an existing output file.
	NoClobber bool
}

// Background runs a single background removal from an input file to a PNG output file.
type Background struct {
	remover port.BackgroundRemover
	codec   port.ImageCodec
	options Options
}

func NewBackground(remover port.BackgroundRemover, codec port.ImageCodec, options Options) *Background {
	return &Background{remover: remover, codec: codec, options: options}
}

// Run validates the input, loads it, removes the background and saves the result. Every failure matches
// domain.ErrOperationFailed.
func (b *Background) Run(ctx context.Context, inputPath, outputPath string) (err error) {
	l := log.With().
		Str("input", inputPath).
		Str("output", outputPath).
		Logger()

	defer func() {
		if err == nil {
			return
		}
		var opErr *domain.OperationError
		if errors.As(err, &opErr) {
			l.Error().Err(opErr.Err).Str("stage", string(opErr.Stage)).Msg(opErr.Message)
		}
	}()

	stage := domain.StageValidate
	defer func() {
		if r := recover(); r != nil {
			path := inputPath
			if stage == domain.StageSave {
				path = outputPath
			}
			err = domain.NewPanicError(stage, path, r)
		}
	}()

	l.Info().Msg("removing background")

	if _, err := os.Stat(inputPath); err != nil {
		return domain.NewFileNotFoundError(inputPath, err)
	}

	if b.options.NoClobber {
		if _, err := os.Stat(outputPath); err == nil {
			return domain.NewOutputExistsError(outputPath)
		}
	}

	stage = domain.StageLoad
	img, err := b.codec.Load(inputPath)
	if err != nil {
		return domain.NewDecodeError(inputPath, err)
	}

	bitmap := img.Bitmap
	if b.options.MaxDimension > 0 {
		bitmap = b.codec.Fit(bitmap, b.options.MaxDimension)
	}

	stage = domain.StageProcess
	result, err := b.remove(ctx, bitmap)
	if err != nil {
		return domain.NewRemovalError(err)
	}

	stage = domain.StageSave
	if err := b.codec.Save(outputPath, result); err != nil {
		return domain.NewWriteError(outputPath, err)
	}

	l.Info().Str("format", img.Format).Msg("background removed")

	return nil
}

func (b *Background) remove(ctx context.Context, img image.Image) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := b.remover.Remove(ctx, img)
	if err == nil && result == nil {
		err = errors.New("remover returned no image")
	}

	return result, err
}
