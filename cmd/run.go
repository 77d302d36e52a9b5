package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PolarWolf314/backpack/internal/inject"
	"github.com/PolarWolf314/backpack/internal/ui"
	"github.com/PolarWolf314/backpack/internal/utils"
	"github.com/PolarWolf314/backpack/internal/workflows"

	"github.com/spf13/cobra"
)

var runAllowAll bool

func init() {
	runCmd.Flags().BoolVarP(&runAllowAll, "yes", "y", false, "grant every declared secret without prompting")
	runCmd.Flags().SetInterspersed(false)
}

func resetRunCommandState() {
	runAllowAll = false
}

var runCmd = &cobra.Command{
	Use:   "run SCRIPT [-- ARGS...]",
	Short: "Run an agent with its secrets injected",
	Long: `Decrypts the agent container, asks for consent for each declared secret found
in the vault, and runs SCRIPT with the granted secrets and the personality in
its environment.

The agent receives:
  - each granted secret under its declared name
  - AGENT_SYSTEM_PROMPT, AGENT_TONE and AGENT_<KEY> for other personality keys
  - AGENT_RUN_ID, unique to this run

Secrets that are missing or denied are skipped with a warning; the agent still
runs. Scripts ending in .py run with python3 unless configured otherwise.

The exit code is the agent's exit code.`,
	Example: `  backpack run agent.py
  backpack run agent.py -- --task "summarize inbox"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting run command")
		script := args[0]
		scriptArgs := args[1:]
		if len(scriptArgs) > 0 && scriptArgs[0] == "--" {
			scriptArgs = scriptArgs[1:]
		}

		consent := inject.TerminalConsent(utils.Confirm)
		if runAllowAll {
			Logger.Infof("Granting every declared secret without prompting")
			consent = inject.AllowAll
		}

		result, err := workflows.Run(context.Background(), workflows.RunOptions{
			Common:  commonOptions(),
			Script:  script,
			Args:    scriptArgs,
			Consent: consent,
			Stdin:   os.Stdin,
			Stdout:  os.Stdout,
			Stderr:  os.Stderr,
			BeforeStart: func(result *workflows.RunResult) {
				printInjectionSummary(result)
				Logger.Debugf("Executing %s with run id %s", strings.Join(result.Command, " "), result.RunID)
			},
		})
		if err != nil {
			Logger.Errorf("Run failed: %v", err)
			fmt.Println(failureMessage(err))
			return nil
		}

		Logger.Infof("Agent exited with code %d", result.ExitCode)
		if result.ExitCode != 0 {
			exitFunc(result.ExitCode)
		}
		return nil
	},
}

// printInjectionSummary reports what the agent will receive. Values are never printed.
func printInjectionSummary(result *workflows.RunResult) {
	consentFailed := false
	for _, warning := range result.Warnings {
		Logger.WarnfUser("%s", warning.String())
		if warning.Kind == inject.WarnConsentFailed {
			consentFailed = true
		}
	}
	if consentFailed {
		fmt.Println(ui.Info.Sprint("→") + " Without a terminal, use " + ui.Flag.Sprint("--yes") + " to grant every declared secret")
	}

	if len(result.Injected) == 0 {
		fmt.Println(ui.Info.Sprint("→") + " Starting agent with no secrets")
		return
	}

	names := make([]string, len(result.Injected))
	for i, name := range result.Injected {
		names[i] = ui.Secret.Sprint(name)
	}
	fmt.Println(successMessage(fmt.Sprintf("Injected %d secret(s): %s", len(names), strings.Join(names, ", "))))
}
