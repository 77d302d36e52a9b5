package workflows

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/PolarWolf314/backpack/internal/container"
	kerrors "github.com/PolarWolf314/backpack/internal/errors"
)

// CredentialState describes whether a declared credential can be injected.
type CredentialState string

const (
	// CredentialStored means the vault holds a value for the name.
	CredentialStored CredentialState = "stored"
	// CredentialMissing means the name is declared but not in the vault.
	CredentialMissing CredentialState = "missing"
	// CredentialUnknown means the vault could not be queried.
	CredentialUnknown CredentialState = "unknown"
)

// CredentialStatus holds the state of one declared credential.
type CredentialStatus struct {
	Name        string          `json:"name"`
	Placeholder string          `json:"placeholder"`
	State       CredentialState `json:"state"`
}

// StatusSummary holds counts of credentials by state.
type StatusSummary struct {
	Stored  int `json:"stored"`
	Missing int `json:"missing"`
	Unknown int `json:"unknown"`
}

// StatusOptions configures the status workflow.
type StatusOptions struct {
	Common
}

// StatusResult contains the outcome of a status operation.
type StatusResult struct {
	// Path is the container file that was inspected.
	Path string `json:"path"`

	// Exists is false when there is no container at Path.
	Exists bool `json:"exists"`

	Version   string                   `json:"version,omitempty"`
	Integrity container.IntegrityState `json:"integrity,omitempty"`

	// Credentials lists declared credentials in order.
	Credentials []CredentialStatus `json:"credentials"`

	// Personality holds the personality layer. It never contains secrets.
	Personality container.Personality `json:"personality,omitempty"`

	// MemorySize is the size of the encoded memory layer in bytes.
	MemorySize int `json:"memory_size"`

	// VaultError is set when the vault could not be reached.
	VaultError string `json:"vault_error,omitempty"`

	Summary StatusSummary `json:"summary"`
}

// Status decrypts the container and checks each declared credential
// against the vault. Secret values are never read into the result.
//
// A missing container is not an error; Exists is false. A vault that cannot
// be reached is reported in VaultError and every credential is unknown.
func Status(ctx context.Context, opts StatusOptions) (*StatusResult, error) {
	cfg, lock, err := opts.load()
	if err != nil {
		return nil, err
	}
	defer lock.Close()

	result := &StatusResult{
		Path:        lock.Path(),
		Credentials: []CredentialStatus{},
	}

	view, err := lock.Read()
	if errors.Is(err, kerrors.ErrContainerNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	result.Exists = true
	result.Version = view.Version
	result.Integrity = view.Integrity
	result.Personality = view.Personality
	if memory, err := json.Marshal(view.Memory); err == nil {
		result.MemorySize = len(memory)
	}

	v, vaultErr := opts.openVault(cfg)
	if vaultErr != nil {
		result.VaultError = vaultErr.Error()
	}

	for _, name := range view.Credentials.Names() {
		placeholder, _ := view.Credentials.Get(name)
		status := CredentialStatus{Name: name, Placeholder: placeholder, State: CredentialUnknown}

		if vaultErr == nil {
			_, found, err := v.Retrieve(name)
			switch {
			case err != nil:
				vaultErr = err
				result.VaultError = err.Error()
			case found:
				status.State = CredentialStored
			default:
				status.State = CredentialMissing
			}
		}

		result.Credentials = append(result.Credentials, status)
	}

	result.Summary = summarizeCredentials(result.Credentials)
	return result, nil
}

func summarizeCredentials(credentials []CredentialStatus) StatusSummary {
	var summary StatusSummary
	for _, c := range credentials {
		switch c.State {
		case CredentialStored:
			summary.Stored++
		case CredentialMissing:
			summary.Missing++
		default:
			summary.Unknown++
		}
	}
	return summary
}
