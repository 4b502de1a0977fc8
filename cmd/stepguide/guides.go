package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/guides"
	"github.com/sahilr2050/step-by-step-guide-generator/internal/store"
)

func newGuidesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guides",
		Short: "Manage recorded guides",
	}
	cmd.AddCommand(newGuidesListCmd())
	cmd.AddCommand(newGuidesDeleteCmd())
	cmd.AddCommand(newGuidesRenameCmd())
	return cmd
}

func withService(run func(ctx context.Context, svc *guides.Service) error) error {
	st, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()
	return run(context.Background(), guides.New(st, logger))
}

func newGuidesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all guides, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(ctx context.Context, svc *guides.Service) error {
				all, err := svc.List(ctx)
				if err != nil {
					return err
				}
				if len(all) == 0 {
					fmt.Println("no guides recorded yet")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tSTEPS\tCREATED")
				for _, g := range all {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
						g.ID, g.Name, len(g.Steps), g.DateCreated.Format("2006-01-02 15:04"))
				}
				return w.Flush()
			})
		},
	}
}

func newGuidesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <guide-id>",
		Short: "Delete a guide and all its screenshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(ctx context.Context, svc *guides.Service) error {
				return svc.Delete(ctx, args[0])
			})
		},
	}
}

func newGuidesRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <guide-id> <name>",
		Short: "Rename a guide",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(ctx context.Context, svc *guides.Service) error {
				return svc.Rename(ctx, args[0], args[1])
			})
		},
	}
}
