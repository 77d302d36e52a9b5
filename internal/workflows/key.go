package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/backpack/internal/vault"
)

// KeyAddOptions configures the key add workflow.
type KeyAddOptions struct {
	Common

	// Name is the secret name, as it will appear in the agent's environment.
	Name string

	// Value is the secret value.
	Value string
}

// KeyAddResult contains the outcome of a key add operation.
type KeyAddResult struct {
	Name string

	// Replaced is true when a value already existed under Name.
	Replaced bool
}

// KeyAdd stores a secret in the vault and registers its name.
func KeyAdd(ctx context.Context, opts KeyAddOptions) (*KeyAddResult, error) {
	if err := vault.ValidateName(opts.Name); err != nil {
		return nil, err
	}
	if opts.Value == "" {
		return nil, fmt.Errorf("secret value for %s must not be empty", opts.Name)
	}

	v, err := opts.vault()
	if err != nil {
		return nil, err
	}

	_, existed, err := v.Retrieve(opts.Name)
	if err != nil {
		return nil, err
	}

	if err := v.Store(opts.Name, opts.Value); err != nil {
		return nil, err
	}

	return &KeyAddResult{Name: opts.Name, Replaced: existed}, nil
}

// KeyListOptions configures the key list workflow.
type KeyListOptions struct {
	Common
}

// KeyListResult contains the registered secret names.
type KeyListResult struct {
	Names []string
}

// KeyList returns the registered secret names in sorted order. The list
// comes from the registry and can drift from the backing store; see
// Vault.Reconcile.
func KeyList(ctx context.Context, opts KeyListOptions) (*KeyListResult, error) {
	v, err := opts.vault()
	if err != nil {
		return nil, err
	}

	names, err := v.ListNames()
	if err != nil {
		return nil, err
	}
	return &KeyListResult{Names: names}, nil
}

// KeyRemoveOptions configures the key remove workflow.
type KeyRemoveOptions struct {
	Common

	Name string
}

// KeyRemoveResult contains the outcome of a key remove operation.
type KeyRemoveResult struct {
	Name string
}

// KeyRemove deletes a secret and unregisters it. Removing a name that is not
// in the vault returns an error wrapping ErrKeyDeletionFailed.
func KeyRemove(ctx context.Context, opts KeyRemoveOptions) (*KeyRemoveResult, error) {
	v, err := opts.vault()
	if err != nil {
		return nil, err
	}

	if err := v.Remove(opts.Name); err != nil {
		return nil, err
	}
	return &KeyRemoveResult{Name: opts.Name}, nil
}

func (c Common) vault() (*vault.Vault, error) {
	if c.Vault != nil {
		return c.Vault, nil
	}
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	return c.openVault(cfg)
}
