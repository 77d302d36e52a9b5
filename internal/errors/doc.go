// Package errors provides typed error values for the Backpack application.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. This makes
// error handling more robust and refactoring-safe.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Crypto errors: Key derivation or authenticated decryption failures (ErrDecryptFailed)
//   - Container errors: agent.lock state issues (ErrContainerNotFound, ErrContainerCorrupted)
//   - Vault errors: OS keyring issues (ErrVaultAccess, ErrKeyNotFound, ErrKeyDeletionFailed)
//   - Configuration errors: Missing or invalid settings (ErrMasterKeyNotSet)
//
// # Usage
//
// Return errors from internal packages:
//
//	if _, err := os.Stat(path); os.IsNotExist(err) {
//	    return nil, errors.ErrContainerNotFound
//	}
//
// Handle errors in the CLI layer:
//
//	result, err := workflows.Run(ctx, opts)
//	if errors.Is(err, kerrors.ErrContainerNotFound) {
//	    // Show user-friendly message
//	}
//
// Wrap errors with additional context:
//
//	return fmt.Errorf("removing %s: %w", name, errors.ErrKeyDeletionFailed)
package errors
