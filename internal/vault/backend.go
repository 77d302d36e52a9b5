package vault

import (
	"errors"
	"fmt"

	kerrors "github.com/PolarWolf314/backpack/internal/errors"

	"github.com/99designs/keyring"
)

// Backend is the minimal surface Backpack needs from a secret store.
// Get returns an error wrapping errors.ErrKeyNotFound when name is absent.
type Backend interface {
	Get(name string) (string, error)
	Set(name, value string) error
	Remove(name string) error
}

// KeyringBackend adapts a keyring.Keyring to Backend.
type KeyringBackend struct {
	ring    keyring.Keyring
	service string
}

// BackendConfig selects and configures the keyring implementation.
type BackendConfig struct {
	// Service scopes every entry; all Backpack secrets share one service name.
	Service string

	// Backends restricts which keyring implementations may be used, in order
	// of preference. Empty means the keyring library's platform default order.
	Backends []string

	// FileDir is the directory used by the "file" backend.
	FileDir string

	// FilePassword unlocks the "file" backend. If empty the user is prompted.
	FilePassword string
}

// NewKeyringBackend wraps an already opened keyring.
func NewKeyringBackend(ring keyring.Keyring, service string) *KeyringBackend {
	return &KeyringBackend{ring: ring, service: service}
}

// OpenKeyring opens the OS secret store described by cfg.
func OpenKeyring(cfg BackendConfig) (*KeyringBackend, error) {
	allowed, err := parseBackends(cfg.Backends)
	if err != nil {
		return nil, err
	}

	passwordFunc := keyring.TerminalPrompt
	if cfg.FilePassword != "" {
		passwordFunc = keyring.FixedStringPrompt(cfg.FilePassword)
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:              cfg.Service,
		AllowedBackends:          allowed,
		KeychainName:             "login",
		KeychainTrustApplication: true,
		LibSecretCollectionName:  "login",
		KWalletAppID:             cfg.Service,
		KWalletFolder:            cfg.Service,
		WinCredPrefix:            cfg.Service,
		KeyCtlScope:              "user",
		FileDir:                  cfg.FileDir,
		FilePasswordFunc:         passwordFunc,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrVaultAccess, err)
	}

	return NewKeyringBackend(ring, cfg.Service), nil
}

func parseBackends(names []string) ([]keyring.BackendType, error) {
	if len(names) == 0 {
		return nil, nil
	}

	available := make(map[keyring.BackendType]bool)
	for _, b := range keyring.AvailableBackends() {
		available[b] = true
	}

	allowed := make([]keyring.BackendType, 0, len(names))
	for _, name := range names {
		b := keyring.BackendType(name)
		if !available[b] {
			return nil, fmt.Errorf("%w: %q", kerrors.ErrUnknownBackend, name)
		}
		allowed = append(allowed, b)
	}
	return allowed, nil
}

func (k *KeyringBackend) Get(name string) (string, error) {
	item, err := k.ring.Get(name)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: %s", kerrors.ErrKeyNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", kerrors.ErrVaultAccess, name, err)
	}
	return string(item.Data), nil
}

func (k *KeyringBackend) Set(name, value string) error {
	err := k.ring.Set(keyring.Item{
		Key:         name,
		Data:        []byte(value),
		Label:       k.service + ": " + name,
		Description: "Backpack agent credential",
	})
	if err != nil {
		return fmt.Errorf("%w: writing %s: %v", kerrors.ErrVaultAccess, name, err)
	}
	return nil
}

func (k *KeyringBackend) Remove(name string) error {
	err := k.ring.Remove(name)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", kerrors.ErrKeyNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("%w: removing %s: %v", kerrors.ErrVaultAccess, name, err)
	}
	return nil
}
