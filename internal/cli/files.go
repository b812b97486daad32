package cli

import (
	"fmt"

	"github.com/dmitrijs2005/cryptkeeper/internal/services"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func (a *App) encryptCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt <path>",
		Short: "Encrypt a file or every file under a directory",
		Long: `Encrypt compresses and encrypts the file at path into a .crypt artifact
next to it and records its key in the keeper. For a directory every file
below it is encrypted; existing artifacts and ignored directories are
skipped. Sources are removed unless --retain is given.

Examples:
  cryptkeeper encrypt notes.txt
  cryptkeeper encrypt ~/Documents --level 9 --retain`,
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

			report, err := services.NewFileService(store, a.cfg, a.logger).Encrypt(ctx, args[0])
			if err != nil {
				return err
			}
			return a.printBatch(report, "encrypted")
		},
	}
}

func (a *App) decryptCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "decrypt <path>",
		Short: "Restore artifacts to their original files",
		Long: `Decrypt restores the artifact at path, or every artifact under a
directory, using the keys in the keeper. Without --output each file is
written next to its artifact under its original name.

Examples:
  cryptkeeper decrypt notes.crypt
  cryptkeeper decrypt ~/Documents -o /tmp/restored`,
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

			report, err := services.NewFileService(store, a.cfg, a.logger).Decrypt(ctx, args[0], output)
			if err != nil {
				return err
			}
			return a.printBatch(report, "decrypted")
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file or directory")
	return cmd
}

func (a *App) printBatch(report *services.BatchReport, verb string) error {
	for _, o := range report.Succeeded {
		a.printf("%s %s → %s\n", color.GreenString("✓"), o.Source, o.Output)
	}
	for _, f := range report.Failed {
		a.printf("%s %s\n", color.RedString("✗"), describe(f.Err))
	}

	total := len(report.Succeeded) + len(report.Failed)
	a.printf("%s %d of %d files\n", verb, len(report.Succeeded), total)

	if len(report.Failed) > 0 {
		return errFailed(len(report.Failed), total)
	}
	return nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
