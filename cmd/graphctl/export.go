package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"reactivegraph/internal/core"
)

func (a *app) exportCmd() *cobra.Command {
	var fromSnapshot bool
	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Export the graph to the configured blob store",
		Long: "Export writes one JSON object per instance plus a manifest under exports/<id>/.\n" +
			"The graph is the demo graph unless --from-snapshot restores the saved one.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			return a.withService(cmd, func(ctx context.Context, s *core.Service) error {
				if fromSnapshot {
					res, err := s.Restore(ctx)
					if err != nil {
						return err
					}
					if err := res.Err(); err != nil {
						return err
					}
				} else if _, err := buildDemo(ctx, s); err != nil {
					return err
				}
				manifest, err := s.ExportSnapshot(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "export %s: %d entities, %d relations\n", manifest.ID, len(manifest.Entities), len(manifest.Relations))
				for _, key := range append(append([]string{}, manifest.Entities...), manifest.Relations...) {
					fmt.Fprintln(a.out, key)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&fromSnapshot, "from-snapshot", false, "restore the saved snapshot instead of building the demo graph")
	return cmd
}
