package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/export"
	"github.com/sahilr2050/step-by-step-guide-generator/internal/guides"
	"github.com/sahilr2050/step-by-step-guide-generator/internal/store"
)

func newExportCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "export <guide-id>",
		Short: "Export a guide as markdown and HTML with its screenshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(cfg.Storage.DatabasePath)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			svc := guides.New(st, logger)
			g, err := svc.Get(ctx, args[0])
			if err != nil {
				return err
			}

			if outputDir == "" {
				outputDir = filepath.Join(cfg.Storage.ExportDir, export.Slug(g.Name))
			}
			bundle, err := export.NewBundle(outputDir, st)
			if err != nil {
				return err
			}
			if err := bundle.Write(ctx, g); err != nil {
				return err
			}
			fmt.Printf("exported %q to %s\n", g.Name, outputDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default: export dir + guide slug)")
	return cmd
}
