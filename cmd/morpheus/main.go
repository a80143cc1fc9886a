// Command morpheus evaluates CSG scene programs and renders them with a
// WebGPU ray marcher.
//
//	morpheus view scene.lisp      open a window and hot reload on save
//	morpheus inspect scene.lisp   print binarized trees and node records
//	morpheus mesh scene.lisp      export preview meshes as JSON
//	morpheus shader --check       print or validate the WGSL ray marcher
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/chazu/morpheus/pkg/config"
	"github.com/chazu/morpheus/pkg/logging"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	logLevel   string

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "morpheus",
		Short:         "Evaluate and ray march CSG scenes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a TOML settings file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides the settings file)")

	root.AddCommand(
		newViewCmd(opts),
		newInspectCmd(opts),
		newMeshCmd(opts),
		newShaderCmd(opts),
	)
	return root
}

// setup loads the settings and installs the logger.
func (o *options) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	o.cfg = cfg

	h := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logging.ParseLevel(cfg.Log.Level),
	})
	logging.SetLogger(slog.New(h))
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "morpheus:", err)
		os.Exit(1)
	}
}
