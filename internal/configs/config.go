package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kerrors "github.com/PolarWolf314/backpack/internal/errors"
)

// Environment variables that override the config file.
const (
	EnvContainerPath = "BACKPACK_CONTAINER"
	EnvVaultBackend  = "BACKPACK_VAULT_BACKEND"
	EnvVaultDir      = "BACKPACK_VAULT_DIR"
	EnvVaultPassword = "BACKPACK_VAULT_PASSWORD"
)

type Config struct {
	Container ContainerConfig `toml:"container"`
	Vault     VaultConfig     `toml:"vault"`
	Run       RunConfig       `toml:"run"`
}

type ContainerConfig struct {
	Path             string `toml:"path"`
	RequireIntegrity bool   `toml:"require_integrity"`
}

type VaultConfig struct {
	Service  string   `toml:"service"`
	Backends []string `toml:"backends"`
	FileDir  string   `toml:"file_dir"`

	// FilePassword comes from the environment only and is never saved.
	FilePassword string `toml:"-"`
}

type RunConfig struct {
	// Interpreters maps a script extension (".py") to the program that runs it.
	Interpreters map[string]string `toml:"interpreters"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Container: ContainerConfig{
			Path: "agent.lock",
		},
		Vault: VaultConfig{
			Service: "backpack-agent",
			FileDir: filepath.Join(UserBackpackSettings.UserDataPath, "vault"),
		},
		Run: RunConfig{
			Interpreters: map[string]string{
				".py": "python3",
			},
		},
	}
}

// ConfigPath returns the location of the user config file.
func ConfigPath() string {
	return filepath.Join(UserBackpackSettings.UserConfigsPath, "config.toml")
}

// LoadConfig loads the config file over the defaults, then applies
// environment overrides. A missing file is not an error.
func LoadConfig() (*Config, error) {
	config := DefaultConfig()

	configPath := ConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := LoadTOML(configPath, config); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", kerrors.ErrInvalidConfig, configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveConfig writes config to the user config file.
func SaveConfig(config *Config) error {
	if err := SaveTOML(ConfigPath(), config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// Validate checks the fields that have no safe default.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Container.Path) == "" {
		return fmt.Errorf("%w: container.path must not be empty", kerrors.ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Vault.Service) == "" {
		return fmt.Errorf("%w: vault.service must not be empty", kerrors.ErrInvalidConfig)
	}
	for ext := range c.Run.Interpreters {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("%w: interpreter extension %q must start with '.'", kerrors.ErrInvalidConfig, ext)
		}
	}
	return nil
}

func applyEnvOverrides(config *Config) {
	if path := os.Getenv(EnvContainerPath); path != "" {
		config.Container.Path = path
	}
	if backend := os.Getenv(EnvVaultBackend); backend != "" {
		config.Vault.Backends = splitList(backend)
	}
	if dir := os.Getenv(EnvVaultDir); dir != "" {
		config.Vault.FileDir = dir
	}
	if password := os.Getenv(EnvVaultPassword); password != "" {
		config.Vault.FilePassword = password
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
