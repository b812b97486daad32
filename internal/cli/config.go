package cli

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/cryptkeeper/internal/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func (a *App) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or change persistent settings",
	}
	cmd.AddCommand(a.configShowCommand(), a.configSetCommand(), a.configResetCommand(), a.configIgnoreCommand())
	return cmd
}

// updateConfig loads the config file, applies change and saves it back.
// Flags are not applied so they never leak into the file.
func (a *App) updateConfig(change func(*config.Config) error) error {
	cfg, err := config.Load(a.configPath, false)
	if err != nil {
		return err
	}
	if err := change(cfg); err != nil {
		return err
	}
	return cfg.Save(a.configPath)
}

func (a *App) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "# %s\n%s\n", a.configPath, a.cfg)
			return nil
		},
	}
}

func (a *App) configSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting in the config file",
		Long: fmt.Sprintf(`Set changes one setting and saves the config file. Lists are comma
separated, durations look like 30s or 1m.

Keys: %s`, strings.Join(config.Keys(), ", ")),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.updateConfig(func(cfg *config.Config) error {
				return cfg.Set(args[0], args[1])
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s %s saved to %s\n", color.GreenString("✓"), args[0], a.configPath)
			return nil
		},
	}
}

func (a *App) configResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &config.Config{}
			cfg.LoadDefaults()
			if err := cfg.Save(a.configPath); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s defaults restored in %s\n", color.GreenString("✓"), a.configPath)
			return nil
		},
	}
}

func (a *App) configIgnoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ignore",
		Short: "Edit the list of directories skipped while walking",
	}

	add := &cobra.Command{
		Use:   "add <dir>...",
		Short: "Add directory names or absolute paths to the ignore list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editIgnore(func(cfg *config.Config) error {
				for _, dir := range args {
					if err := cfg.AddIgnore(dir); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <dir>...",
		Short: "Remove entries from the ignore list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editIgnore(func(cfg *config.Config) error {
				for _, dir := range args {
					if err := cfg.RemoveIgnore(dir); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	def := &cobra.Command{
		Use:   "default",
		Short: "Restore the default ignore list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editIgnore(func(cfg *config.Config) error {
				cfg.ResetIgnore()
				return nil
			})
		},
	}

	cmd.AddCommand(add, remove, def)
	return cmd
}

func (a *App) editIgnore(change func(*config.Config) error) error {
	var list []string
	err := a.updateConfig(func(cfg *config.Config) error {
		if err := change(cfg); err != nil {
			return err
		}
		list = cfg.IgnoreDirectories
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s ignore_directories: %s\n", color.GreenString("✓"), strings.Join(list, ", "))
	return nil
}
