// Package workflows provides high-level orchestration for Backpack commands.
//
// Workflows coordinate the config, container, vault and inject packages to
// implement complete user-facing features. Each workflow handles a single
// command's business logic, independent of CLI concerns like flag parsing,
// spinners, and output formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Calls the appropriate workflow function
//   - Formats the result for display
//
// Workflows handle everything else:
//   - Loading configuration and the master key
//   - Opening the container and the vault
//   - Performing the core operation
//
// Every options struct embeds Common, whose fields let callers (and tests)
// supply a config, a vault or a container path instead of loading them.
//
// # Available Workflows
//
//   - Init: Creates an agent container
//   - Run: Injects secrets under consent and runs an agent script
//   - KeyAdd, KeyList, KeyRemove: Manage secrets in the vault
//   - MemoryShow, MemorySet, MemoryClear: Manage the memory layer
//   - Status: Reports declared credentials and their vault state
//   - Doctor: Runs health checks
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching. Use errors.Is() to check for specific error conditions:
//
//	result, err := workflows.Run(ctx, opts)
//	if errors.Is(err, kerrors.ErrContainerNotFound) {
//	    // Suggest 'backpack init'
//	}
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first parameter.
// Run uses it to stop the agent process.
package workflows
