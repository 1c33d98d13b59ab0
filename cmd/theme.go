package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/w3market/internal/storage"
	"github.com/Mohsinsiddi/w3market/internal/ui"
	"github.com/spf13/cobra"
)

func themes() *storage.Themes {
	return storage.NewThemes(storage.NewLocal(cfg.StatePath()))
}

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Show the colour theme",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.Meta("theme:"), ui.Val(themes().Current()))
		return nil
	},
}

var themeToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Switch between dark and light",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := themes().Toggle()
		if err != nil {
			return err
		}
		ui.SetTheme(name)
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Theme set to "+name))
		return nil
	},
}

var themeSetCmd = &cobra.Command{
	Use:       "set <dark|light>",
	Short:     "Choose a theme",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{storage.ThemeDark, storage.ThemeLight},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := themes().Set(args[0]); err != nil {
			return err
		}
		ui.SetTheme(args[0])
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Theme set to "+ui.Theme()))
		return nil
	},
}

func init() {
	themeCmd.AddCommand(themeToggleCmd, themeSetCmd)
}
