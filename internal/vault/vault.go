package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"

	kerrors "github.com/PolarWolf314/backpack/internal/errors"
)

const (
	// DefaultService is the service namespace every Backpack entry is stored under.
	DefaultService = "backpack-agent"

	// RegistryName is the reserved entry that indexes known secret names.
	RegistryName = "_registry"
)

var keyNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Vault stores named secrets and keeps the registry of names in sync with
// operations performed through it.
type Vault struct {
	backend Backend
}

// New returns a vault over backend.
func New(backend Backend) *Vault {
	return &Vault{backend: backend}
}

// ValidateName reports whether name can be stored. Names must be usable as
// environment variable names and must not collide with the registry entry.
func ValidateName(name string) error {
	if name == RegistryName {
		return reservedName(name)
	}
	if !keyNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q must contain only letters, digits and underscores and not start with a digit", kerrors.ErrInvalidKeyName, name)
	}
	return nil
}

func reservedName(name string) error {
	return fmt.Errorf("%w: %q is reserved", kerrors.ErrInvalidKeyName, name)
}

// Store upserts a secret and registers its name.
//
// The two writes are not atomic. If the process dies after the secret is
// written, the secret stays retrievable by name but is missing from ListNames.
func (v *Vault) Store(name, value string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	if err := v.backend.Set(name, value); err != nil {
		return fmt.Errorf("storing %s: %w", name, err)
	}

	registry, err := v.registry()
	if err != nil {
		return fmt.Errorf("registering %s: %w", name, err)
	}
	registry[name] = true
	if err := v.saveRegistry(registry); err != nil {
		return fmt.Errorf("registering %s: %w", name, err)
	}

	return nil
}

// Retrieve looks up a secret. A missing secret is reported as found=false with a nil error.
// The registry entry is not a secret and cannot be retrieved.
func (v *Vault) Retrieve(name string) (string, bool, error) {
	if name == RegistryName {
		return "", false, reservedName(name)
	}
	value, err := v.backend.Get(name)
	if errors.Is(err, kerrors.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// ListNames returns the registered names in sorted order. It reflects only
// operations performed through this package, not the store's true contents.
func (v *Vault) ListNames() ([]string, error) {
	registry, err := v.registry()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(registry))
	for name, present := range registry {
		if present {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Remove deletes a secret and unregisters it. Removing a name with no stored
// secret fails with an error wrapping both ErrKeyDeletionFailed and ErrKeyNotFound.
func (v *Vault) Remove(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	if _, err := v.backend.Get(name); err != nil {
		return fmt.Errorf("%w: %w", kerrors.ErrKeyDeletionFailed, err)
	}

	if err := v.backend.Remove(name); err != nil {
		return fmt.Errorf("%w: %w", kerrors.ErrKeyDeletionFailed, err)
	}

	registry, err := v.registry()
	if err != nil {
		return fmt.Errorf("unregistering %s: %w", name, err)
	}
	delete(registry, name)
	if err := v.saveRegistry(registry); err != nil {
		return fmt.Errorf("unregistering %s: %w", name, err)
	}

	return nil
}

// Reconcile returns registered names whose secret can no longer be found,
// typically because the entry was deleted with another tool.
func (v *Vault) Reconcile() ([]string, error) {
	names, err := v.ListNames()
	if err != nil {
		return nil, err
	}

	var dangling []string
	for _, name := range names {
		_, found, err := v.Retrieve(name)
		if err != nil {
			return nil, err
		}
		if !found {
			dangling = append(dangling, name)
		}
	}
	return dangling, nil
}

func (v *Vault) registry() (map[string]bool, error) {
	raw, err := v.backend.Get(RegistryName)
	if errors.Is(err, kerrors.ErrKeyNotFound) {
		return make(map[string]bool), nil
	}
	if err != nil {
		return nil, err
	}

	registry := make(map[string]bool)
	if raw == "" {
		return registry, nil
	}
	if err := json.Unmarshal([]byte(raw), &registry); err != nil {
		return nil, fmt.Errorf("%w: registry entry is not valid JSON: %v", kerrors.ErrVaultAccess, err)
	}
	return registry, nil
}

func (v *Vault) saveRegistry(registry map[string]bool) error {
	data, err := json.Marshal(registry)
	if err != nil {
		return err
	}
	return v.backend.Set(RegistryName, string(data))
}
