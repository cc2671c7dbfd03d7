package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"reactivegraph/internal/config"
	"reactivegraph/internal/core"
	"reactivegraph/internal/logging"
	"reactivegraph/pkg/pluginapi"
	"reactivegraph/plugins/arithmetic"
	"reactivegraph/plugins/connector"
	"reactivegraph/plugins/logical"
)

type app struct {
	configPath string
	trace      bool
	out        io.Writer
	errOut     io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}
	root := &cobra.Command{
		Use:           "graphctl",
		Short:         "Drive the reactive graph runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML or TOML configuration file")
	root.PersistentFlags().BoolVar(&a.trace, "trace", false, "write one JSON trace line per service operation to stderr")
	root.AddCommand(a.behavioursCmd(), a.demoCmd(), a.exportCmd())
	return root
}

func referencePlugins() []pluginapi.Plugin {
	return []pluginapi.Plugin{arithmetic.New(), logical.New(), connector.New()}
}

// open builds a service from configuration and installs the reference
// plugins. The caller closes it.
func (a *app) open(ctx context.Context) (*core.Service, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log, a.errOut)
	if err != nil {
		return nil, err
	}
	opts := []core.ServiceOption{core.WithLogger(logger)}
	if a.trace {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(a.errOut)))
	}
	s, err := core.OpenService(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	for _, p := range referencePlugins() {
		if _, err := s.InstallPlugin(ctx, p); err != nil {
			return nil, errors.Join(fmt.Errorf("install %s: %w", p.Name(), err), s.Close(ctx))
		}
	}
	return s, nil
}

func (a *app) withService(cmd *cobra.Command, fn func(context.Context, *core.Service) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.Close(ctx)) }()
	return fn(ctx, s)
}
