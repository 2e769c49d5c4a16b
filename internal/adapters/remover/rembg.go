package remover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"strings"
	"time"

	"nobg/internal/adapters/file"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
)

const DefaultRembgBinary = "rembg"

// Rembg shells out to the rembg command line tool.
type Rembg struct {
	command      []string
	model        string
	alphaMatting bool
}

const probeTimeout = 30 * time.Second

// NewRembg checks that the configured command answers to --help. The binary may carry extra words, e.g.
// "python3 -m rembg.cli".
func NewRembg(ctx context.Context, binary, model string, alphaMatting bool) (*Rembg, error) {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultRembgBinary
	}

	command := strings.Fields(binary)
	probe := append(append([]string{}, command[1:]...), "--help")

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	_, err := exec.CommandContext(probeCtx, command[0], probe...).Output()
	if err != nil {
		log.Debug().Strs("command", command).Err(err).Msg("binary not found")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("rembg binary not available: %w", err)
	}

	log.Debug().Strs("command", command).Msg("binary found")

	return &Rembg{command: command, model: model, alphaMatting: alphaMatting}, nil
}

func (r *Rembg) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("error encoding rembg input: %w", err)
	}

	in, err := file.SaveTempFile(buf.Bytes(), ".png")
	if err != nil {
		return nil, err
	}
	defer file.RemoveTempFile(in)

	out, err := file.TempPath(".png")
	if err != nil {
		return nil, err
	}
	defer file.RemoveTempFile(out)

	args := r.args(in, out)

	cmd := exec.CommandContext(ctx, r.command[0], args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.Error().Strs("args", args).Bytes("rembgOutput", output).Err(err).Msg("rembg command failed")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("rembg failed: %w", err)
	}

	log.Debug().Msg("rembg command finished")

	data, err := file.GetTempFile(out)
	if err != nil {
		return nil, err
	}

	result, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error decoding rembg output: %w", err)
	}

	if !result.Bounds().Size().Eq(img.Bounds().Size()) {
		return nil, errors.New("rembg output size does not match input")
	}

	return result, nil
}

func (r *Rembg) args(in, out string) []string {
	args := append([]string{}, r.command[1:]...)
	args = append(args, "i")

	if r.model != "" {
		args = append(args, "-m", r.model)
	}

	if r.alphaMatting {
		args = append(args, "-a")
	}

	return append(args, in, out)
}
