package workflows

import (
	"context"
	"fmt"
	"os"

	"github.com/PolarWolf314/backpack/internal/container"
	kerrors "github.com/PolarWolf314/backpack/internal/errors"
	"github.com/PolarWolf314/backpack/internal/inject"
	"github.com/PolarWolf314/backpack/internal/vault"

	"gopkg.in/yaml.v3"
)

// InitOptions configures the init workflow.
type InitOptions struct {
	Common

	// Credentials lists the secret names the agent requires, in order.
	Credentials []string

	// PersonalityFile is an optional YAML file of personality keys.
	PersonalityFile string

	// SystemPrompt overrides the system_prompt personality key.
	SystemPrompt string

	// Tone overrides the tone personality key.
	Tone string
}

// InitResult contains the outcome of an init operation.
type InitResult struct {
	// Path is the container file that was written.
	Path string

	// Credentials lists the declared secret names.
	Credentials []string

	// Personality is the personality layer that was stored.
	Personality container.Personality

	// Replaced is true when an existing container was overwritten.
	Replaced bool
}

// Init creates a new agent container.
//
// The personality starts from the defaults, then the personality file is
// applied, then the explicit prompt and tone. Memory starts empty. Any
// existing container at the path is replaced.
//
// Returns ErrInvalidKeyName if a credential name cannot be used as an
// environment variable or is already set by a personality key, and ErrMasterKeyNotSet if AGENT_MASTER_KEY is unset.
func Init(ctx context.Context, opts InitOptions) (*InitResult, error) {
	for _, name := range opts.Credentials {
		if err := vault.ValidateName(name); err != nil {
			return nil, err
		}
	}

	personality := container.DefaultPersonality()
	if opts.PersonalityFile != "" {
		fromFile, err := loadPersonalityFile(opts.PersonalityFile)
		if err != nil {
			return nil, err
		}
		for key, value := range fromFile {
			personality[key] = value
		}
	}
	if opts.SystemPrompt != "" {
		personality[container.PersonalitySystemPrompt] = opts.SystemPrompt
	}
	if opts.Tone != "" {
		personality[container.PersonalityTone] = opts.Tone
	}
	if err := checkPersonalityCollisions(opts.Credentials, personality); err != nil {
		return nil, err
	}

	_, lock, err := opts.load()
	if err != nil {
		return nil, err
	}
	defer lock.Close()

	replaced := lock.Exists()

	credentials := container.CredentialsFromNames(opts.Credentials...)
	if err := lock.Create(credentials, personality, nil); err != nil {
		return nil, fmt.Errorf("creating container: %w", err)
	}

	return &InitResult{
		Path:        lock.Path(),
		Credentials: credentials.Names(),
		Personality: personality,
		Replaced:    replaced,
	}, nil
}

// checkPersonalityCollisions rejects credential names that a personality key
// would overwrite in the agent's environment.
func checkPersonalityCollisions(names []string, personality container.Personality) error {
	vars := inject.PersonalityEnv(personality)
	for _, name := range names {
		if _, taken := vars[name]; taken {
			return fmt.Errorf("%w: %q is set by the personality", kerrors.ErrInvalidKeyName, name)
		}
	}
	return nil
}

// loadPersonalityFile reads a flat YAML mapping of personality keys.
func loadPersonalityFile(path string) (container.Personality, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading personality file: %w", err)
	}

	var personality container.Personality
	if err := yaml.Unmarshal(data, &personality); err != nil {
		return nil, fmt.Errorf("%w: personality file %s: %v", kerrors.ErrInvalidConfig, path, err)
	}
	return personality, nil
}
