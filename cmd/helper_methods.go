package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/PolarWolf314/backpack/internal/configs"
	kerrors "github.com/PolarWolf314/backpack/internal/errors"
	"github.com/PolarWolf314/backpack/internal/ui"
	"github.com/PolarWolf314/backpack/internal/workflows"

	"github.com/briandowns/spinner"
)

// startSpinner creates and starts a spinner with the given message when not in verbose or debug mode.
// Returns the spinner and a function that should be deferred to clean up.
// Uses the global debug flag from the root command.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// automatically calls ui.EnsureNewline() on the final message before printing it.
// This ensures consistent output formatting across all commands.
func startSpinner(message string, verbose bool) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	err := s.Color("cyan")
	if err != nil {
		// If we can't set spinner color, just continue without it.
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	if !verbose && !debug {
		Logger.Debugf("Starting spinner in non-verbose mode")
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	cleanup := func() {
		// Restore log output first.
		if !verbose && !debug {
			Logger.Debugf("Restoring log output")
			log.SetOutput(os.Stdout)
		}

		// Ensure final message ends with a newline.
		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		// Stop the spinner first to clear the spinner line.
		if !verbose && !debug {
			Logger.Debugf("Stopping spinner")
			s.Stop()
		}

		// Print final message to stdout (for tests to capture).
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// commonOptions returns the workflow overrides set by global flags.
func commonOptions() workflows.Common {
	return workflows.Common{ContainerPath: containerFile}
}

// successMessage formats a ✓ line.
func successMessage(msg string) string {
	return ui.Mark(true) + " " + msg
}

// failureMessage turns a workflow error into a ✗ line with a → hint.
// Expected conditions (no container, no master key, missing keys) get a
// specific hint; anything else is shown with its error text.
func failureMessage(err error) string {
	msg, hint := describeError(err)
	out := ui.Mark(false) + " " + msg
	if hint != "" {
		out += "\n" + ui.Info.Sprint("→") + " " + hint
	}
	return out
}

func describeError(err error) (string, string) {
	switch {
	case errors.Is(err, kerrors.ErrMasterKeyNotSet):
		return ui.Code.Sprint(configs.MasterKeyEnv) + " is not set",
			"Export " + ui.Code.Sprint(configs.MasterKeyEnv) + " with the password for your agent container"

	case errors.Is(err, kerrors.ErrContainerNotFound):
		return "No agent container found",
			"Run " + ui.Code.Sprint("backpack init") + " to create one"

	case errors.Is(err, kerrors.ErrIntegrityMissing):
		return "Agent container has no integrity tag and require_integrity is enabled",
			"Recreate it with " + ui.Code.Sprint("backpack init")

	case errors.Is(err, kerrors.ErrContainerCorrupted):
		return "Agent container could not be decrypted",
			"Check that " + ui.Code.Sprint(configs.MasterKeyEnv) + " is the password the container was created with\n" +
				ui.Error.Sprint("Error: ") + err.Error()

	case errors.Is(err, kerrors.ErrInvalidKeyName):
		return err.Error(),
			"Key names must be valid environment variable names, e.g. " + ui.Secret.Sprint("OPENAI_API_KEY")

	case errors.Is(err, kerrors.ErrKeyDeletionFailed) && errors.Is(err, kerrors.ErrKeyNotFound):
		return "Key not found in vault",
			"Run " + ui.Code.Sprint("backpack key list") + " to see stored keys"

	case errors.Is(err, kerrors.ErrVaultAccess), errors.Is(err, kerrors.ErrUnknownBackend):
		return "Could not open the secret vault",
			"Check your keyring, or set " + ui.Code.Sprint(configs.EnvVaultBackend+"=file") + "\n" +
				ui.Error.Sprint("Error: ") + err.Error()

	case errors.Is(err, kerrors.ErrScriptNotFound):
		return err.Error(), "Pass the path to the agent script, e.g. " + ui.Code.Sprint("backpack run ./agent.py")

	case errors.Is(err, kerrors.ErrConfigExists):
		return "A config file already exists at " + ui.Path.Sprint(configs.ConfigPath()),
			"Use " + ui.Flag.Sprint("--force") + " to overwrite it with the defaults"

	case errors.Is(err, kerrors.ErrInvalidConfig):
		return err.Error(), "Fix or remove " + ui.Path.Sprint(configs.ConfigPath())

	default:
		return ui.Error.Sprint("Error: ") + err.Error(), ""
	}
}
