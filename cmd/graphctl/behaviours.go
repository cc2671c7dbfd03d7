package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"reactivegraph/internal/core"
)

func (a *app) behavioursCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "behaviours",
		Short: "List installed plugins and the behaviours they register",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd, func(_ context.Context, s *core.Service) error {
				w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "PLUGIN\tVERSION\tBEHAVIOUR")
				for _, meta := range s.RegisteredPlugins() {
					for _, b := range meta.Behaviours {
						fmt.Fprintf(w, "%s\t%s\t%s\n", meta.Name, meta.Version, b)
					}
				}
				return w.Flush()
			})
		},
	}
}
