package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/backpack/internal/configs"
	kerrors "github.com/PolarWolf314/backpack/internal/errors"
	"github.com/PolarWolf314/backpack/internal/utils"
)

// ConfigInitOptions configures the config init workflow.
type ConfigInitOptions struct {
	// Force overwrites an existing config file.
	Force bool
}

// ConfigInitResult contains the outcome of a config init operation.
type ConfigInitResult struct {
	Path        string
	Overwritten bool
	Config      *configs.Config
}

// ConfigInit writes the default configuration to the user config file.
// Returns ErrConfigExists if the file is already present and Force is false.
func ConfigInit(ctx context.Context, opts ConfigInitOptions) (*ConfigInitResult, error) {
	path := configs.ConfigPath()
	exists := utils.FileExists(path)
	if exists && !opts.Force {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrConfigExists, path)
	}

	config := configs.DefaultConfig()
	if err := configs.SaveConfig(config); err != nil {
		return nil, err
	}

	return &ConfigInitResult{Path: path, Overwritten: exists, Config: config}, nil
}

// ConfigShowOptions configures the config show workflow.
type ConfigShowOptions struct {
	Common
}

// ConfigShowResult contains the effective configuration.
type ConfigShowResult struct {
	// Path is the config file location, whether or not it exists.
	Path string

	// FromFile is true when the config file exists.
	FromFile bool

	// Config is the configuration after environment overrides.
	Config *configs.Config
}

// ConfigShow returns the configuration every other command would use.
func ConfigShow(ctx context.Context, opts ConfigShowOptions) (*ConfigShowResult, error) {
	config, err := opts.config()
	if err != nil {
		return nil, err
	}

	path := configs.ConfigPath()
	return &ConfigShowResult{
		Path:     path,
		FromFile: utils.FileExists(path),
		Config:   config,
	}, nil
}
