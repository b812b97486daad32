package cli

import (
	"fmt"

	"github.com/dmitrijs2005/cryptkeeper/internal/syncer"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func (a *App) cloudCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cloud",
		Short: "Synchronize artifacts with remote storage",
	}
	cmd.AddCommand(a.uploadCommand(), a.downloadCommand(), a.viewCommand())
	return cmd
}

func (a *App) uploadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <path>",
		Short: "Mirror a local directory (or file) under the remote root",
		Long: `Upload mirrors the directory at path into a folder of the same name
under the remote root, then records where every artifact went in the
keeper. Artifacts already uploaded are replaced in place.`,
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

			s, err := a.synchronizer(ctx, store)
			if err != nil {
				return err
			}

			report, runErr := s.Upload(ctx, args[0])
			if report != nil {
				a.printSync(report, "uploaded")
				if report.RootID != "" && runErr == nil {
					if tree, err := s.View(ctx, ""); err == nil {
						fmt.Fprint(a.out, tree.Render())
					}
				}
			}
			if runErr != nil {
				return runErr
			}
			if len(report.Failed) > 0 {
				return errFailed(len(report.Failed), len(report.Failed)+len(report.Transferred))
			}
			return nil
		},
	}
}

func (a *App) downloadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "download <remote-path> <dest>",
		Short: "Download a remote folder and decrypt its artifacts",
		Args:  cobra.ExactArgs(2),
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

			s, err := a.synchronizer(ctx, store)
			if err != nil {
				return err
			}

			report, runErr := s.Download(ctx, args[0], args[1])
			if report != nil {
				a.printSync(report, "downloaded")
			}
			if runErr != nil {
				return runErr
			}
			if len(report.Failed) > 0 {
				return errFailed(len(report.Failed), len(report.Failed)+len(report.Transferred))
			}
			return nil
		},
	}
}

func (a *App) viewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view [remote-path]",
		Short: "Print the remote tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()

			storage, err := a.newStorage(ctx, a.cfg)
			if err != nil {
				return err
			}
			// viewing never touches the keeper
			s := syncer.New(storage, nil, nil, a.cfg, a.logger)

			remotePath := ""
			if len(args) == 1 {
				remotePath = args[0]
			}
			tree, err := s.View(ctx, remotePath)
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, tree.Render())
			return nil
		},
	}
}

func (a *App) printSync(report *syncer.Report, verb string) {
	for _, f := range report.Failed {
		fmt.Fprintf(a.out, "%s %s\n", color.RedString("✗"), describe(f.Err))
	}
	if len(report.Skipped) > 0 {
		fmt.Fprintf(a.out, "%s %d items skipped after the run was aborted\n", color.YellowString("!"), len(report.Skipped))
	}
	fmt.Fprintf(a.out, "%s %d files", verb, len(report.Transferred))
	if len(report.Decrypted) > 0 {
		fmt.Fprintf(a.out, ", decrypted %d", len(report.Decrypted))
	}
	fmt.Fprintln(a.out)
}
