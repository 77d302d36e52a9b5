package cmd

import (
	"fmt"

	logger "github.com/PolarWolf314/backpack/internal/logging"
	"github.com/PolarWolf314/backpack/internal/ui"

	"github.com/awnumar/memguard"
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose       bool
	debug         bool
	containerFile string
	Logger        logger.Logger

	// exitFunc is called to exit with a specific code. Can be overridden for testing.
	exitFunc = memguard.SafeExit

	RootCmd = &cobra.Command{
		Use:   "backpack",
		Short: "Backpack - encrypted agent containers with consent-gated secrets",
		Long: `Backpack packages an AI agent's required credentials, personality and memory
into a single encrypted agent.lock file, and injects real secrets from your OS
keychain into the agent's environment only when it runs, with your consent.

Set AGENT_MASTER_KEY to the container password before using init, run, memory,
status or doctor.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing %s command with verbose=%t, debug=%t", cmd.Name(), verbose, debug)
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println()
			myFigure := figure.NewColorFigure("Backpack", "small", "cyan", true)
			myFigure.Print()
			fmt.Println()
			fmt.Println(ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("backpack --help") + " to see available commands.")
		},
	}
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	RootCmd.PersistentFlags().StringVarP(&containerFile, "file", "f", "", "agent container path (default from config, then agent.lock)")

	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(keyCmd)
	RootCmd.AddCommand(memoryCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(doctorCmd)
	RootCmd.AddCommand(configCmd)
}

// Helper functions for testing

// GetRootCmd returns the RootCmd for testing.
func GetRootCmd() *cobra.Command {
	return RootCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	containerFile = ""
	exitFunc = memguard.SafeExit
	resetInitCommandState()
	resetRunCommandState()
	resetKeyCommandState()
	resetStatusCommandState()
	resetDoctorCommandState()
	resetConfigCommandState()
	// Reset Cobra flag state to prevent pollution between tests
	resetFlagState(RootCmd)
}

// resetFlagState clears the Changed mark on every flag of cmd and its subcommands.
func resetFlagState(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		flag.Changed = false
	})
	cmd.PersistentFlags().VisitAll(func(flag *pflag.Flag) {
		flag.Changed = false
	})
	for _, sub := range cmd.Commands() {
		resetFlagState(sub)
	}
}

// SetVerbose sets the verbose flag for testing.
func SetVerbose(v bool) {
	verbose = v
}

// SetDebug sets the debug flag for testing.
func SetDebug(d bool) {
	debug = d
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}

// SetExitFunc sets the exit function for testing purposes.
func SetExitFunc(f func(int)) {
	exitFunc = f
}
