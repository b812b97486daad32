package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const purgePhrase = "purge keeper"

func (a *App) keeperCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keeper",
		Short: "Inspect and maintain the keeper database",
	}
	cmd.AddCommand(
		a.keeperListCommand(),
		a.keeperExportCommand(),
		a.keeperImportCommand(),
		a.keeperPurgeCommand(),
	)
	return cmd
}

func (a *App) keeperListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every record: file, original path and cloud location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			recs, err := store.List(ctx)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintln(a.out, "keeper is empty")
				return nil
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tPATH\tCLOUD")
			for _, r := range recs {
				remote := r.RemoteID
				if remote == "" {
					remote = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.OriginalName(), r.FullPath, remote)
			}
			return tw.Flush()
		},
	}
}

func (a *App) keeperExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.csv>",
		Short: "Write every record to a CSV file",
		Long: `Export writes the keeper to a CSV file with the columns
id, filename, extension, full_path, key, nonce, remote_id.

The file holds every key in the keeper; store it as carefully as the
keeper itself.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Export(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s exported %d records to %s\n", color.GreenString("✓"), n, args[0])
			return nil
		},
	}
}

func (a *App) keeperImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Upsert records from a CSV file written by export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Import(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s imported %d records from %s\n", color.GreenString("✓"), n, args[0])
			return nil
		},
	}
}

func (a *App) keeperPurgeCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every record from the keeper",
		Long: `Purge deletes every record. Artifacts encrypted with those records can
no longer be decrypted unless the records are imported again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()

			if !yes {
				ok, err := a.confirmPhrase("This deletes every key in the keeper.", purgePhrase)
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("purge cancelled")
				}
			}

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteAll(ctx); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s keeper purged\n", color.GreenString("✓"))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
