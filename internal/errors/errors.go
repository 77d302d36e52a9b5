package errors

import "errors"

// Cryptographic errors indicate failures during key derivation, encryption or decryption.
var (
	// ErrDecryptFailed indicates authenticated decryption failed: wrong password,
	// corrupted ciphertext or corrupted salt.
	ErrDecryptFailed = errors.New("failed to decrypt data")

	// ErrEncryptFailed indicates encryption failed.
	ErrEncryptFailed = errors.New("failed to encrypt data")

	// ErrKeyDerivationFailed indicates a key could not be derived from the password.
	ErrKeyDerivationFailed = errors.New("failed to derive encryption key")

	// ErrEmptyPassword indicates an empty password was supplied for key derivation.
	ErrEmptyPassword = errors.New("password must not be empty")
)

// Container errors indicate issues with the agent.lock file.
var (
	// ErrContainerNotFound indicates no agent.lock exists at the configured path.
	ErrContainerNotFound = errors.New("agent container not found")

	// ErrContainerCorrupted indicates the container is malformed or a layer failed to decrypt.
	ErrContainerCorrupted = errors.New("agent container is corrupted or unreadable")

	// ErrIntegrityMismatch indicates the container-wide integrity tag does not match its layers.
	ErrIntegrityMismatch = errors.New("agent container integrity check failed")

	// ErrIntegrityMissing indicates the container has no integrity tag and one is required.
	ErrIntegrityMissing = errors.New("agent container has no integrity tag")

	// ErrContainerWriteFailed indicates the container could not be written to disk.
	ErrContainerWriteFailed = errors.New("failed to write agent container")
)

// Vault errors indicate issues with the OS-backed secret store.
var (
	// ErrVaultAccess indicates the backing secret store could not be reached.
	ErrVaultAccess = errors.New("secret vault is not accessible")

	// ErrKeyNotFound indicates a secret could not be located in the vault.
	ErrKeyNotFound = errors.New("key not found in vault")

	// ErrKeyDeletionFailed indicates a secret could not be removed from the vault.
	ErrKeyDeletionFailed = errors.New("failed to delete key from vault")

	// ErrInvalidKeyName indicates the key name is reserved or not a valid environment variable name.
	ErrInvalidKeyName = errors.New("invalid key name")
)

// Configuration errors indicate missing or invalid settings.
var (
	// ErrMasterKeyNotSet indicates AGENT_MASTER_KEY is not set. There is no fallback key.
	ErrMasterKeyNotSet = errors.New("AGENT_MASTER_KEY is not set")

	// ErrConfigExists indicates a config file is already present and would be overwritten.
	ErrConfigExists = errors.New("configuration file already exists")

	// ErrInvalidConfig indicates the configuration file is malformed.
	ErrInvalidConfig = errors.New("configuration is invalid")

	// ErrUnknownBackend indicates a configured keyring backend is not supported on this system.
	ErrUnknownBackend = errors.New("unknown or unavailable keyring backend")
)

// Run errors indicate issues launching an agent.
var (
	// ErrScriptNotFound indicates the agent script does not exist.
	ErrScriptNotFound = errors.New("agent script not found")
)
