package main

import (
	"fmt"

	"github.com/PolarWolf314/backpack/cmd"

	"github.com/awnumar/memguard"
)

func main() {
	// Wipe the master key enclave on Ctrl+C and on exit.
	memguard.CatchInterrupt()
	defer memguard.Purge()

	if err := cmd.RootCmd.Execute(); err != nil {
		fmt.Println(err)
		memguard.SafeExit(1)
	}
}
