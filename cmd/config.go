package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/PolarWolf314/backpack/internal/configs"
	"github.com/PolarWolf314/backpack/internal/ui"
	"github.com/PolarWolf314/backpack/internal/workflows"

	"github.com/spf13/cobra"
)

var configInitForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func resetConfigCommandState() {
	configInitForce = false
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the backpack user configuration",
	Long: `Backpack reads optional settings from config.toml in the user config directory
(override with BACKPACK_CONFIG_DIR). Environment variables such as
BACKPACK_CONTAINER and BACKPACK_VAULT_BACKEND take precedence over the file.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config init command")

		result, err := workflows.ConfigInit(context.Background(), workflows.ConfigInitOptions{Force: configInitForce})
		if err != nil {
			Logger.Errorf("Config init failed: %v", err)
			fmt.Println(failureMessage(err))
			return nil
		}

		Logger.Infof("Wrote config to %s", result.Path)
		fmt.Println(successMessage("Wrote default config to " + ui.Path.Sprint(result.Path)))
		if result.Overwritten {
			fmt.Println(ui.Warning.Sprint("⚠") + " The previous config file was replaced")
		}
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Prints the configuration every command uses, after environment overrides,
as TOML. The vault file password is never printed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config show command")

		result, err := workflows.ConfigShow(context.Background(), workflows.ConfigShowOptions{Common: commonOptions()})
		if err != nil {
			Logger.Errorf("Config show failed: %v", err)
			fmt.Println(failureMessage(err))
			return nil
		}

		source := "defaults, no config file at " + result.Path
		if result.FromFile {
			source = result.Path
		}
		fmt.Println("# " + source)
		return configs.EncodeTOML(os.Stdout, result.Config)
	},
}
