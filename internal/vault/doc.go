// Package vault stores raw secret values in the operating system's secret store.
//
// # Backends
//
// Secrets are written through the capability-restricted Backend interface,
// which only supports point operations (Get, Set, Remove) by exact name.
// KeyringBackend implements it on top of github.com/99designs/keyring, so the
// same code runs against the macOS Keychain, the Secret Service (GNOME
// Keyring, KWallet), Windows Credential Manager, the Linux kernel keyring,
// pass, or an encrypted file store.
//
// # Registry
//
// OS secret stores generally cannot enumerate their entries, so the vault
// keeps its own index of known names in a reserved entry called "_registry"
// (a JSON object of name to true). ListNames reads only this index.
//
// The registry can drift from the real contents of the store:
//
//   - Store writes the secret and then the registry. A crash between the two
//     leaves a secret that Retrieve finds but ListNames does not show.
//   - Removing an entry with another tool leaves a registry name whose
//     Retrieve reports not found. Reconcile lists such names.
//
// This drift is an accepted limitation; no locking or transactions are used
// because Backpack assumes a single local user.
package vault
