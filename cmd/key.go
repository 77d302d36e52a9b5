package cmd

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/backpack/internal/ui"
	"github.com/PolarWolf314/backpack/internal/utils"
	"github.com/PolarWolf314/backpack/internal/workflows"

	"github.com/spf13/cobra"
)

var keyValue string

func init() {
	keyAddCmd.Flags().StringVar(&keyValue, "value", "", "secret value, or - to read from stdin (prompted when omitted)")

	keyCmd.AddCommand(keyAddCmd)
	keyCmd.AddCommand(keyListCmd)
	keyCmd.AddCommand(keyRemoveCmd)
}

func resetKeyCommandState() {
	keyValue = ""
}

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage secrets in the OS vault",
	Long: `Stores, lists and removes the real secret values that agents request by name.

Values live in the OS keychain (or the configured keyring backend) and never
in the agent container.`,
}

var keyAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Store a secret in the vault",
	Long: `Stores a secret under NAME, replacing any existing value.

Without --value the secret is read from the terminal without echo. Use
--value - to read it from stdin.`,
	Example: `  backpack key add OPENAI_API_KEY
  echo "$TOKEN" | backpack key add GITHUB_TOKEN --value -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting key add command")
		name := args[0]

		value, err := readKeyValue(cmd, name)
		if err != nil {
			fmt.Println(failureMessage(err))
			return nil
		}

		spinner, cleanup := startSpinner("Storing secret...", verbose)
		defer cleanup()

		result, err := workflows.KeyAdd(context.Background(), workflows.KeyAddOptions{
			Common: commonOptions(),
			Name:   name,
			Value:  value,
		})
		if err != nil {
			Logger.Errorf("Key add failed: %v", err)
			spinner.FinalMSG = failureMessage(err)
			return nil
		}

		if result.Replaced {
			spinner.FinalMSG = successMessage("Updated " + ui.Secret.Sprint(result.Name) + " in the vault")
			return nil
		}
		spinner.FinalMSG = successMessage("Stored " + ui.Secret.Sprint(result.Name) + " in the vault")
		return nil
	},
}

// readKeyValue resolves the secret from --value, stdin or a hidden prompt.
func readKeyValue(cmd *cobra.Command, name string) (string, error) {
	switch {
	case keyValue == "-":
		Logger.Debugf("Reading value for %s from stdin", name)
		data, err := utils.ReadStdin()
		if err != nil {
			return "", err
		}
		return string(utils.TrimNewline(data)), nil

	case cmd.Flags().Changed("value"):
		Logger.Warnf("Passing a secret with %s can leave it in your shell history", ui.Flag.Sprint("--value"))
		return keyValue, nil

	default:
		data, err := utils.ReadPassphrase(fmt.Sprintf("Value for %s: ", name))
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

var keyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered secret names",
	Long: `Lists the names of secrets stored through backpack. Values are never shown.

The list is kept alongside the secrets and can drift if entries are removed
with other tools; 'backpack doctor' reports such entries.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting key list command")
		spinner, cleanup := startSpinner("Reading vault...", verbose)
		defer cleanup()

		result, err := workflows.KeyList(context.Background(), workflows.KeyListOptions{Common: commonOptions()})
		if err != nil {
			Logger.Errorf("Key list failed: %v", err)
			spinner.FinalMSG = failureMessage(err)
			return nil
		}

		if len(result.Names) == 0 {
			spinner.FinalMSG = ui.Info.Sprint("→") + " No secrets stored. Add one with " + ui.Code.Sprint("backpack key add NAME")
			return nil
		}

		spinner.FinalMSG = fmt.Sprintf("Stored secrets (%d):\n", len(result.Names)) + utils.FormatNames(result.Names)
		return nil
	},
}

var keyRemoveCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Remove a secret from the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting key remove command")
		spinner, cleanup := startSpinner("Removing secret...", verbose)
		defer cleanup()

		result, err := workflows.KeyRemove(context.Background(), workflows.KeyRemoveOptions{
			Common: commonOptions(),
			Name:   args[0],
		})
		if err != nil {
			Logger.Errorf("Key remove failed: %v", err)
			spinner.FinalMSG = failureMessage(err)
			return nil
		}

		spinner.FinalMSG = successMessage("Removed " + ui.Secret.Sprint(result.Name) + " from the vault")
		return nil
	},
}
