package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/PolarWolf314/backpack/internal/ui"
	"github.com/PolarWolf314/backpack/internal/utils"
	"github.com/PolarWolf314/backpack/internal/workflows"

	"github.com/spf13/cobra"
)

func init() {
	memoryCmd.AddCommand(memoryShowCmd)
	memoryCmd.AddCommand(memorySetCmd)
	memoryCmd.AddCommand(memoryClearCmd)
}

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect or replace the agent's memory layer",
	Long: `The memory layer holds arbitrary JSON the agent carries between runs. It is
encrypted separately from credentials and personality, and replacing it leaves
them untouched.`,
}

var memoryShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the memory layer as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting memory show command")

		result, err := workflows.MemoryShow(context.Background(), workflows.MemoryOptions{Common: commonOptions()})
		if err != nil {
			Logger.Errorf("Memory show failed: %v", err)
			fmt.Println(failureMessage(err))
			return nil
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result.Memory)
	},
}

var memorySetCmd = &cobra.Command{
	Use:   "set FILE",
	Short: "Replace the memory layer from a JSON file",
	Long: `Replaces the memory layer with the JSON document in FILE, or stdin when FILE
is -. Comments and trailing commas are allowed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting memory set command")

		var data []byte
		var err error
		if args[0] == "-" {
			data, err = utils.ReadStdin()
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			fmt.Println(failureMessage(fmt.Errorf("reading memory document: %w", err)))
			return nil
		}

		spinner, cleanup := startSpinner("Encrypting memory...", verbose)
		defer cleanup()

		result, err := workflows.MemorySet(context.Background(), workflows.MemorySetOptions{
			Common: commonOptions(),
			Data:   data,
		})
		if err != nil {
			Logger.Errorf("Memory set failed: %v", err)
			spinner.FinalMSG = failureMessage(err)
			return nil
		}

		spinner.FinalMSG = successMessage("Memory updated in " + ui.Path.Sprint(result.Path))
		return nil
	},
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Reset the memory layer to an empty object",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting memory clear command")
		spinner, cleanup := startSpinner("Clearing memory...", verbose)
		defer cleanup()

		result, err := workflows.MemoryClear(context.Background(), workflows.MemoryOptions{Common: commonOptions()})
		if err != nil {
			Logger.Errorf("Memory clear failed: %v", err)
			spinner.FinalMSG = failureMessage(err)
			return nil
		}

		spinner.FinalMSG = successMessage("Memory cleared in " + ui.Path.Sprint(result.Path))
		return nil
	},
}
