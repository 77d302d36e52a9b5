package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/PolarWolf314/backpack/internal/ui"
	"github.com/PolarWolf314/backpack/internal/workflows"

	"github.com/spf13/cobra"
)

var statusJSONOutput bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSONOutput, "json", false, "output in JSON format")
}

func resetStatusCommandState() {
	statusJSONOutput = false
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the agent container and its credentials",
	Long: `Decrypts the agent container and shows its personality, memory size and
each declared credential with its vault state:
  - stored:  the vault holds a value
  - missing: declared but not in the vault (run 'backpack key add NAME')
  - unknown: the vault could not be reached

Secret values are never read or shown.

Use --json for machine-readable output.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting status command")

		result, err := workflows.Status(context.Background(), workflows.StatusOptions{Common: commonOptions()})
		if err != nil {
			Logger.Errorf("Status failed: %v", err)
			if statusJSONOutput {
				return outputStatusJSON(map[string]string{"error": err.Error()})
			}
			fmt.Println(failureMessage(err))
			return nil
		}

		if statusJSONOutput {
			return outputStatusJSON(result)
		}

		if !result.Exists {
			fmt.Println(ui.Error.Sprint("✗") + " No agent container found at " + ui.Path.Sprint(result.Path))
			fmt.Println(ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("backpack init") + " to create one")
			return nil
		}

		printStatus(result)
		return nil
	},
}

// outputStatusJSON outputs the result as JSON.
func outputStatusJSON(result any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// printStatus prints the status in a human-readable format.
func printStatus(result *workflows.StatusResult) {
	fmt.Printf("Container: %s %s\n", ui.Path.Sprint(result.Path),
		ui.Muted.Sprint(fmt.Sprintf("version %s, integrity %s", result.Version, result.Integrity)))
	fmt.Println()

	fmt.Println("Personality:")
	keys := make([]string, 0, len(result.Personality))
	for key := range result.Personality {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("  %-14s %s\n", key, result.Personality[key])
	}
	fmt.Println()

	fmt.Printf("Memory: %d bytes\n", result.MemorySize)
	fmt.Println()

	if len(result.Credentials) == 0 {
		fmt.Println("Credentials: none declared")
	} else {
		fmt.Println("Credentials:")
		for _, credential := range result.Credentials {
			var icon string
			switch credential.State {
			case workflows.CredentialStored:
				icon = ui.Mark(true)
			case workflows.CredentialMissing:
				icon = ui.Warning.Sprint("⚠")
			default:
				icon = ui.Muted.Sprint("?")
			}
			fmt.Printf("  %s %-24s %s\n", icon, credential.Name, ui.Muted.Sprint(string(credential.State)))
		}
	}

	if result.VaultError != "" {
		fmt.Println()
		fmt.Println(ui.Error.Sprint("✗") + " Could not query the vault: " + result.VaultError)
	}

	fmt.Println()
	fmt.Printf("Summary: %d stored", result.Summary.Stored)
	if result.Summary.Missing > 0 {
		fmt.Printf(", %s", ui.Warning.Sprint(fmt.Sprintf("%d missing", result.Summary.Missing)))
	}
	if result.Summary.Unknown > 0 {
		fmt.Printf(", %d unknown", result.Summary.Unknown)
	}
	fmt.Println()

	if result.Summary.Missing > 0 {
		fmt.Println(ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("backpack key add NAME") + " for each missing credential")
	}
}
