package cli

import (
	"os"

	"github.com/spf13/cobra"

	"feedmail/internal/registry"
)

func opmlImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "opmlimport <path>",
		Short: "Import feeds from an OPML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.loadDatabase()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := registry.New(db).ImportOPML(f)
			if err != nil {
				return err
			}
			if err := a.store.Save(db); err != nil {
				return err
			}

			cmd.Printf("imported %d feeds\n", len(res.Added))
			for _, skipped := range res.Skipped {
				cmd.Printf("skipped %s\n", skipped)
			}
			return nil
		},
	}
}

func opmlExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "opmlexport [path]",
		Short: "Export registered feeds as OPML (stdout by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.loadDatabase()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return registry.New(db).ExportOPML(out)
		},
	}
}
