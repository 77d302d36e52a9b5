package cmd

import (
	"context"
	"strings"

	"github.com/PolarWolf314/backpack/internal/ui"
	"github.com/PolarWolf314/backpack/internal/utils"
	"github.com/PolarWolf314/backpack/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	initCredentials     string
	initSystemPrompt    string
	initTone            string
	initPersonalityFile string
)

func init() {
	initCmd.Flags().StringVar(&initCredentials, "credentials", "", "comma-separated secret names the agent requires")
	initCmd.Flags().StringVar(&initSystemPrompt, "personality", "", "system prompt for the agent")
	initCmd.Flags().StringVar(&initTone, "tone", "", "tone for the agent")
	initCmd.Flags().StringVar(&initPersonalityFile, "personality-file", "", "YAML file of personality keys")
}

func resetInitCommandState() {
	initCredentials = ""
	initSystemPrompt = ""
	initTone = ""
	initPersonalityFile = ""
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an encrypted agent container",
	Long: `Creates an agent container (agent.lock by default) encrypted with AGENT_MASTER_KEY.

The container declares which secrets the agent needs, by name only. Real values
are added to the vault separately with 'backpack key add'.

Personality starts from a default system prompt and tone. --personality-file
adds any further keys from a YAML mapping; --personality and --tone override.

An existing container at the same path is replaced.`,
	Example: `  backpack init --credentials OPENAI_API_KEY,STRIPE_KEY --personality "You are a financial analyst." --tone formal`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting init command")
		spinner, cleanup := startSpinner("Encrypting agent container...", verbose)
		defer cleanup()

		credentials := utils.SplitList(initCredentials)
		Logger.Debugf("Declared credentials: %v", credentials)

		result, err := workflows.Init(context.Background(), workflows.InitOptions{
			Common:          commonOptions(),
			Credentials:     credentials,
			PersonalityFile: initPersonalityFile,
			SystemPrompt:    initSystemPrompt,
			Tone:            initTone,
		})
		if err != nil {
			Logger.Errorf("Init failed: %v", err)
			spinner.FinalMSG = failureMessage(err)
			return nil
		}

		if result.Replaced {
			Logger.Warnf("Replaced existing container at %s", result.Path)
		}
		Logger.Infof("Container written to %s", result.Path)

		finalMessage := successMessage("Agent container created at " + ui.Path.Sprint(result.Path))
		if len(result.Credentials) > 0 {
			names := make([]string, len(result.Credentials))
			for i, name := range result.Credentials {
				names[i] = ui.Secret.Sprint(name)
			}
			finalMessage += "\nRequired credentials: " + strings.Join(names, ", ") + "\n" +
				ui.Info.Sprint("→") + " Store each value with " + ui.Code.Sprint("backpack key add NAME")
		}
		if result.Replaced {
			finalMessage += "\n" + ui.Warning.Sprint("⚠") + " The previous container at this path was replaced"
		}

		spinner.FinalMSG = finalMessage
		return nil
	},
}
