// Package configs manages user configuration and the master key for Backpack.
//
// # User Configuration
//
// Configuration is stored in TOML format at <user config dir>/backpack/config.toml
// (overridable with BACKPACK_CONFIG_DIR). Every field has a default, so a
// missing file is not an error:
//
//	[container]
//	path = "agent.lock"
//	require_integrity = false
//
//	[vault]
//	service = "backpack-agent"
//	backends = []          # empty means every backend available on this OS
//	file_dir = "~/.local/share/backpack/vault"
//
//	[run.interpreters]
//	".py" = "python3"
//
// Environment variables take precedence over the file:
//   - BACKPACK_CONTAINER: container path
//   - BACKPACK_VAULT_BACKEND: comma-separated keyring backends
//   - BACKPACK_VAULT_DIR: directory for the encrypted file backend
//   - BACKPACK_VAULT_PASSWORD: password for the encrypted file backend
//
// The file backend password is never written to disk.
//
// # Master Key
//
// The container master password is read from AGENT_MASTER_KEY. It is sealed
// into a memguard enclave as soon as it is read. An unset or empty variable
// fails with ErrMasterKeyNotSet; there is no fallback key.
package configs
