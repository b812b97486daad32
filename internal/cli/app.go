package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/cryptkeeper/internal/cloud"
	"github.com/dmitrijs2005/cryptkeeper/internal/common"
	"github.com/dmitrijs2005/cryptkeeper/internal/config"
	"github.com/dmitrijs2005/cryptkeeper/internal/keeper"
	"github.com/dmitrijs2005/cryptkeeper/internal/logging"
	"github.com/dmitrijs2005/cryptkeeper/internal/services"
	"github.com/dmitrijs2005/cryptkeeper/internal/syncer"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type App struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	verbose    bool
	flags      *config.Flags

	cfg    *config.Config
	logger logging.Logger

	// newStorage and isTerminal are test seams.
	newStorage func(ctx context.Context, cfg *config.Config) (cloud.Storage, error)
	isTerminal func() bool
}

func NewApp(in io.Reader, out, errOut io.Writer) *App {
	a := &App{
		in:         in,
		out:        out,
		errOut:     errOut,
		logger:     logging.Nop(),
		newStorage: s3Storage,
	}
	a.isTerminal = func() bool {
		f, ok := a.in.(*os.File)
		return ok && term.IsTerminal(int(f.Fd()))
	}
	return a
}

func s3Storage(ctx context.Context, cfg *config.Config) (cloud.Storage, error) {
	return cloud.NewS3Storage(ctx, cfg, cloud.TokenFor(cfg))
}

// Run executes the command line in args and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	root := a.Command()
	root.SetArgs(args)
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(a.errOut, color.RedString("✗"), describe(err))
		return 1
	}
	return 0
}

// Command builds the root command with every subcommand attached.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "cryptkeeper",
		Short: "Encrypt files locally and keep them in sync with remote storage",
		Long: `cryptkeeper compresses and encrypts files with per-file keys kept in a
local keeper database. Artifacts carry only an identifier; without the
keeper they cannot be decrypted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath(), "path of the JSON config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")
	a.flags = config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		a.encryptCommand(),
		a.decryptCommand(),
		a.keeperCommand(),
		a.configCommand(),
		a.cloudCommand(),
		a.versionCommand(),
	)
	return root
}

// setup loads the effective configuration for cmd.
func (a *App) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if err := a.flags.Apply(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = logging.New(a.errOut, level)
	return nil
}

func (a *App) openStore(ctx context.Context) (*keeper.Store, error) {
	store, err := keeper.Open(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("open keeper: %w", err)
	}
	return store, nil
}

func (a *App) synchronizer(ctx context.Context, store *keeper.Store) (*syncer.Synchronizer, error) {
	storage, err := a.newStorage(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	files := services.NewFileService(store, a.cfg, a.logger)
	return syncer.New(storage, store, files, a.cfg, a.logger), nil
}

// describe turns an error into the message shown to the user. Integrity
// failures and missing records get their own wording because fixing them
// means something other than fixing the filesystem.
func describe(err error) string {
	var hint string
	switch {
	case errors.Is(err, common.ErrAuthenticationFailed):
		hint = "integrity check failed: the artifact was modified or does not match its keeper record"
	case errors.Is(err, common.ErrRecordNotFound):
		hint = "no keeper record for this artifact: it is unrecoverable without the keeper that encrypted it"
	case errors.Is(err, common.ErrRemoteAuthExpired):
		hint = "remote storage rejected the credentials: refresh the token and run again"
	case errors.Is(err, common.ErrFormat):
		hint = "not a valid artifact or keeper file"
	case errors.Is(err, common.ErrConfig):
		hint = "configuration problem"
	default:
		return err.Error()
	}
	return hint + " (" + err.Error() + ")"
}

// errFailed reports that a batch finished with failures already printed.
func errFailed(failed, total int) error {
	return fmt.Errorf("%d of %d items failed", failed, total)
}
