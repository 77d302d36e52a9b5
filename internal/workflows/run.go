package workflows

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/PolarWolf314/backpack/internal/configs"
	kerrors "github.com/PolarWolf314/backpack/internal/errors"
	"github.com/PolarWolf314/backpack/internal/inject"
	"github.com/PolarWolf314/backpack/internal/utils"

	"github.com/google/uuid"
)

// EnvRunID is set in every agent environment to a fresh UUID.
const EnvRunID = "AGENT_RUN_ID"

// RunOptions configures the run workflow.
type RunOptions struct {
	Common

	// Script is the agent entry point.
	Script string

	// Args are passed to the script after its path.
	Args []string

	// Consent is asked once per secret found in the vault.
	Consent inject.ConsentFunc

	// BaseEnv is the environment the agent inherits. Nil means os.Environ().
	BaseEnv []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// BeforeStart is called after injection and before the agent starts.
	BeforeStart func(*RunResult)
}

// RunResult contains the outcome of a run.
type RunResult struct {
	// RunID is the value of AGENT_RUN_ID given to the agent.
	RunID string

	// Command is the program and arguments that were executed.
	Command []string

	// Injected lists the secrets the agent received, in declaration order.
	Injected []string

	// Warnings lists secrets that were skipped.
	Warnings []inject.Warning

	// ExitCode is the agent's exit status.
	ExitCode int
}

// Run injects the container's secrets and personality into a new process
// running Script, waits for it and reports its exit code.
//
// A script that exits non-zero is not an error; its status is in ExitCode.
// Returns ErrScriptNotFound if Script does not exist and ErrContainerNotFound
// if there is no container. The master key and vault password are never
// passed to the agent.
func Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if !utils.FileExists(opts.Script) {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrScriptNotFound, opts.Script)
	}
	if opts.Consent == nil {
		return nil, fmt.Errorf("no consent function provided")
	}

	cfg, lock, err := opts.load()
	if err != nil {
		return nil, err
	}

	v, err := opts.openVault(cfg)
	if err != nil {
		lock.Close()
		return nil, err
	}

	injection, err := inject.Inject(lock, v, opts.Consent)
	lock.Close()
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		RunID:    uuid.New().String(),
		Command:  agentCommand(cfg, opts.Script, opts.Args),
		Injected: injection.Injected,
		Warnings: injection.Warnings,
	}

	env := make(map[string]string, len(injection.Env)+1)
	for name, value := range injection.Env {
		env[name] = value
	}
	env[EnvRunID] = result.RunID

	base := opts.BaseEnv
	if base == nil {
		base = os.Environ()
	}
	base = withoutVars(base, configs.MasterKeyEnv, configs.EnvVaultPassword)

	if opts.BeforeStart != nil {
		opts.BeforeStart(result)
	}

	cmd := exec.CommandContext(ctx, result.Command[0], result.Command[1:]...)
	cmd.Env = inject.ComposeEnv(base, env)
	cmd.Stdin = opts.Stdin
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("starting agent: %w", err)
	}

	return result, nil
}

// agentCommand picks the interpreter for script by extension. Scripts with
// no configured interpreter are executed directly.
func agentCommand(cfg *configs.Config, script string, args []string) []string {
	ext := strings.ToLower(filepath.Ext(script))
	if interpreter, ok := cfg.Run.Interpreters[ext]; ok && interpreter != "" {
		return append([]string{interpreter, script}, args...)
	}

	// exec.Command treats a bare name as a PATH lookup.
	if !strings.ContainsRune(script, filepath.Separator) {
		script = "." + string(filepath.Separator) + script
	}
	return append([]string{script}, args...)
}

func withoutVars(env []string, names ...string) []string {
	out := make([]string, 0, len(env))
	for _, kv := range env {
		name, _, _ := strings.Cut(kv, "=")
		drop := false
		for _, n := range names {
			if name == n {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, kv)
		}
	}
	return out
}
