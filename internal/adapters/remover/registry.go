// Package remover holds the background removal backends and the registry that picks one by name.
package remover

import (
	"context"
	"fmt"
	"image"
	"sort"
	"strings"
	"sync"

	"nobg/internal/config"
	"nobg/internal/core/port"

	"github.com/rs/zerolog/log"
)

// Factory builds a backend from the loaded config.
type Factory func(ctx context.Context, cfg *config.Config) (port.BackgroundRemover, error)

type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry with the rembg and fal backends.
func NewRegistry() *Registry {
	r := &Registry{}

	r.Register("rembg", func(ctx context.Context, cfg *config.Config) (port.BackgroundRemover, error) {
		return NewRembg(ctx, cfg.RembgBinary, cfg.RembgModel, cfg.RembgAlphaMatting)
	})
	r.Register("fal", func(_ context.Context, cfg *config.Config) (port.BackgroundRemover, error) {
		return NewFAL(cfg.FALURL, cfg.FALAPIKey)
	})

	return r
}

func (r *Registry) Register(name string, factory Factory) {
	if r.factories == nil {
		r.factories = make(map[string]Factory)
	}

	log.Debug().Str("backend", name).Msg("adding backend to registry")
	r.factories[strings.ToLower(name)] = factory
}

func (r *Registry) Get(name string) (Factory, error) {
	factory, ok := r.factories[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q, available: %s", name, strings.Join(r.List(), ", "))
	}

	return factory, nil
}

func (r *Registry) List() []string {
	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// Deferred postpones building the backend until the first Remove call, so input validation runs before probing
// binaries or checking API keys. build receives the context of the first Remove call.
func Deferred(build func(ctx context.Context) (port.BackgroundRemover, error)) port.BackgroundRemover {
	return &deferred{build: build}
}

type deferred struct {
	build   func(ctx context.Context) (port.BackgroundRemover, error)
	once    sync.Once
	remover port.BackgroundRemover
	err     error
}

func (d *deferred) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	d.once.Do(func() {
		d.remover, d.err = d.build(ctx)
	})

	if d.err != nil {
		return nil, fmt.Errorf("backend unavailable: %w", d.err)
	}

	return d.remover.Remove(ctx, img)
}
