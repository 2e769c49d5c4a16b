// Package cmd wires config, logging and the background service behind the nobg command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"nobg/internal/adapters/codec"
	"nobg/internal/adapters/remover"
	"nobg/internal/config"
	"nobg/internal/core/domain"
	"nobg/internal/core/port"
	"nobg/internal/core/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const usage = "Uso: nobg <entrada> <salida>"

var errUsage = errors.New(usage)

// NewRootCommand builds the nobg command. Backends are looked up in registry by name.
func NewRootCommand(registry *remover.Registry) *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "nobg [flags] <input_path> <output_path>",
		Short: "Remove the background from an image and save it as a transparent PNG",
		Long: `nobg loads an image, hands it to a background removal backend (the local rembg
tool or the hosted FAL rembg model) and writes the result as a PNG with alpha channel.
An existing output file is overwritten unless --no-clobber is given.`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errUsage
			}
			return nil
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cmd, registry, configFile, args[0], args[1])
		},
	}

	root.Flags().StringVar(&configFile, "config", "", "config file (default: ./nobg.toml or ~/.config/nobg/nobg.toml)")
	config.RegisterFlags(root.Flags())

	return root
}

// Execute runs the command with the process arguments and returns the exit code.
func Execute(ctx context.Context) int {
	return Run(ctx, NewRootCommand(remover.NewRegistry()), os.Args[1:], os.Stdout)
}

// Run executes root with args and prints exactly one outcome line to out. It returns 0 on success and 1 otherwise.
func Run(ctx context.Context, root *cobra.Command, args []string, out io.Writer) int {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	root.SetArgs(args)
	root.SetOut(out)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(out, usage)
	default:
		fmt.Fprintln(out, domain.ErrorPrefix+err.Error())
	}

	return 1
}

func runRemove(cmd *cobra.Command, registry *remover.Registry, configFile, inputPath, outputPath string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	zerolog.SetGlobalLevel(cfg.Level())

	factory, err := registry.Get(cfg.Backend)
	if err != nil {
		return err
	}

	log.Debug().Str("backend", cfg.Backend).Dur("timeout", cfg.Timeout).Msg("config loaded")

	backend := remover.Deferred(func(ctx context.Context) (port.BackgroundRemover, error) {
		return factory(ctx, cfg)
	})

	ctx := cmd.Context()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	svc := service.NewBackground(backend, codec.NewImaging(), service.Options{
		MaxDimension: cfg.MaxDimension,
		NoClobber:    cfg.NoClobber,
	})

	if err := svc.Run(ctx, inputPath, outputPath); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), domain.SuccessPrefix+outputPath)

	return nil
}
