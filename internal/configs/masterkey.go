package configs

import (
	"os"

	kerrors "github.com/PolarWolf314/backpack/internal/errors"

	"github.com/awnumar/memguard"
)

// MasterKeyEnv names the variable holding the container master password.
const MasterKeyEnv = "AGENT_MASTER_KEY"

// LoadMasterKey reads the master password from the environment and seals it
// into a memguard enclave. There is no default: an unset or
// empty variable returns ErrMasterKeyNotSet.
func LoadMasterKey() (*memguard.Enclave, error) {
	value, ok := os.LookupEnv(MasterKeyEnv)
	if !ok || value == "" {
		return nil, kerrors.ErrMasterKeyNotSet
	}

	// NewEnclave wipes the byte copy once sealed.
	return memguard.NewEnclave([]byte(value)), nil
}

// OpenMasterKey loads the master key into a locked buffer. The caller must
// Destroy the buffer when done.
func OpenMasterKey() (*memguard.LockedBuffer, error) {
	enclave, err := LoadMasterKey()
	if err != nil {
		return nil, err
	}
	return enclave.Open()
}
