// Package cmd contains testing utilities shared between integration tests.
// This file provides common functions for setting up test environments,
// capturing output, and driving the root command.
package cmd

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/PolarWolf314/backpack/internal/configs"
	logger "github.com/PolarWolf314/backpack/internal/logging"

	"github.com/spf13/cobra"
)

// testMasterKey is the container password used by integration tests.
const testMasterKey = "integration-test-master-key"

// setupTestEnvironment points every command at a temporary directory: the
// user config, the container, and an encrypted file keyring. It returns the
// temporary directory.
func setupTestEnvironment(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()

	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	originalUserSettings := configs.UserBackpackSettings

	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	t.Cleanup(func() {
		if err := os.Chdir(originalWd); err != nil {
			t.Fatalf("Failed to change to original directory: %v", err)
		}
		configs.UserBackpackSettings = originalUserSettings
		ResetGlobalState()
	})

	configs.UserBackpackSettings = &configs.UserSettings{
		UserConfigsPath: filepath.Join(tempDir, "config"),
		UserDataPath:    filepath.Join(tempDir, "data"),
	}

	t.Setenv(configs.MasterKeyEnv, testMasterKey)
	t.Setenv(configs.EnvContainerPath, filepath.Join(tempDir, "agent.lock"))
	t.Setenv(configs.EnvVaultBackend, "file")
	t.Setenv(configs.EnvVaultDir, filepath.Join(tempDir, "vault"))
	t.Setenv(configs.EnvVaultPassword, "integration-test-vault-password")

	ResetGlobalState()
	return tempDir
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	// Save original stdout and stderr
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	// Create pipes to capture output
	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	// Replace stdout and stderr
	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	stdoutChan := make(chan string, 1)
	stderrChan := make(chan string, 1)

	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stdoutReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		stdoutChan <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stderrReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		stderrChan <- buf.String()
	}()

	// Execute the function
	err := fn()

	// Close writers to signal EOF
	stdoutWriter.Close()
	stderrWriter.Close()

	// Restore original stdout and stderr
	os.Stdout = originalStdout
	os.Stderr = originalStderr

	return <-stdoutChan + <-stderrChan, err
}

// captureStdout is captureOutput for commands whose stdout must be parsed on its own.
func captureStdout(fn func() error) (string, error) {
	originalStdout := os.Stdout
	reader, writer, _ := os.Pipe()
	os.Stdout = writer

	outputChan := make(chan string, 1)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, reader)
		outputChan <- buf.String()
	}()

	err := fn()

	writer.Close()
	os.Stdout = originalStdout
	return <-outputChan, err
}

// createTestCLI prepares the root command to run with args.
func createTestCLI(args []string, verboseFlag, debugFlag bool) *cobra.Command {
	// Set global flags for the actual command (needed for the real command implementations)
	verbose = verboseFlag
	debug = debugFlag

	// Initialize the logger with the test flags
	Logger = logger.Logger{
		Verbose: verbose,
		Debug:   debug,
	}

	RootCmd.SetArgs(args)

	// Set the flags on the root command
	if err := RootCmd.PersistentFlags().Set("verbose", fmt.Sprintf("%t", verboseFlag)); err != nil {
		log.Fatalf("Failed to set verbose flag for testing: %s", err)
	}
	if err := RootCmd.PersistentFlags().Set("debug", fmt.Sprintf("%t", debugFlag)); err != nil {
		log.Fatalf("Failed to set debug flag for testing: %s", err)
	}

	return RootCmd
}

// runCommand executes backpack with args and returns the combined output.
func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	output, err := captureOutput(func() error {
		return createTestCLI(args, false, false).Execute()
	})
	if err != nil {
		t.Fatalf("backpack %v failed: %v\nOutput: %s", args, err, output)
	}
	return output
}

// captureExitCode replaces the exit function and returns a pointer to the
// last code passed to it, or -1 if it was never called.
func captureExitCode(t *testing.T) *int {
	t.Helper()
	code := -1
	SetExitFunc(func(c int) {
		code = c
	})
	return &code
}
