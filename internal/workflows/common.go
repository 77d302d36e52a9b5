package workflows

import (
	"fmt"

	"github.com/PolarWolf314/backpack/internal/configs"
	"github.com/PolarWolf314/backpack/internal/container"
	"github.com/PolarWolf314/backpack/internal/vault"

	"github.com/awnumar/memguard"
)

// Common carries the overrides shared by every workflow. Zero values mean
// the value is loaded from the user configuration.
type Common struct {
	// ContainerPath overrides the configured container path.
	ContainerPath string

	// Config is used instead of loading the user config file.
	Config *configs.Config

	// Vault is used instead of opening the configured keyring.
	Vault *vault.Vault
}

func (c Common) config() (*configs.Config, error) {
	if c.Config != nil {
		return c.Config, nil
	}
	return configs.LoadConfig()
}

func (c Common) containerPath(cfg *configs.Config) string {
	if c.ContainerPath != "" {
		return c.ContainerPath
	}
	return cfg.Container.Path
}

func (c Common) openVault(cfg *configs.Config) (*vault.Vault, error) {
	if c.Vault != nil {
		return c.Vault, nil
	}

	backend, err := vault.OpenKeyring(vault.BackendConfig{
		Service:      cfg.Vault.Service,
		Backends:     cfg.Vault.Backends,
		FileDir:      cfg.Vault.FileDir,
		FilePassword: cfg.Vault.FilePassword,
	})
	if err != nil {
		return nil, err
	}
	return vault.New(backend), nil
}

// masterLock is a container handle backed by a master key held in locked
// memory. Close must be called to wipe the key.
type masterLock struct {
	*container.Lock
	key *memguard.LockedBuffer
}

func (m *masterLock) Close() {
	if m.key != nil {
		m.key.Destroy()
	}
}

// openLock loads the master key and returns a handle on the configured container.
func (c Common) openLock(cfg *configs.Config) (*masterLock, error) {
	key, err := configs.OpenMasterKey()
	if err != nil {
		return nil, err
	}

	var opts []container.Option
	if cfg.Container.RequireIntegrity {
		opts = append(opts, container.WithRequireIntegrity())
	}

	return &masterLock{
		Lock: container.New(c.containerPath(cfg), key.Bytes(), opts...),
		key:  key,
	}, nil
}

// load returns the config and an open container handle.
func (c Common) load() (*configs.Config, *masterLock, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, nil, err
	}
	lock, err := c.openLock(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening container: %w", err)
	}
	return cfg, lock, nil
}
