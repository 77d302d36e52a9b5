package container

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	kerrors "github.com/PolarWolf314/backpack/internal/errors"
	"github.com/PolarWolf314/backpack/internal/secrets"

	"github.com/zeebo/blake3"
)

// IntegrityAlgorithm identifies the MAC construction stored in Integrity.Algorithm.
const IntegrityAlgorithm = "blake3-keyed"

// Integrity binds the version and all three layers together so that layers
// from different containers or versions cannot be mixed undetected.
type Integrity struct {
	Algorithm string `json:"alg"`
	Salt      string `json:"salt"`
	MAC       string `json:"mac"`
}

// seal computes a fresh integrity tag for f under the master key.
func seal(f *File, masterKey []byte) (*Integrity, error) {
	key, salt, err := secrets.DeriveKey(masterKey, nil)
	if err != nil {
		return nil, err
	}

	mac, err := computeMAC(f, key[:])
	if err != nil {
		return nil, err
	}

	return &Integrity{
		Algorithm: IntegrityAlgorithm,
		Salt:      base64.StdEncoding.EncodeToString(salt),
		MAC:       base64.StdEncoding.EncodeToString(mac),
	}, nil
}

// verify checks f.Integrity against the layers. f.Integrity must be non-nil.
func verify(f *File, masterKey []byte) error {
	if f.Integrity.Algorithm != IntegrityAlgorithm {
		return fmt.Errorf("%w: unsupported algorithm %q", kerrors.ErrIntegrityMismatch, f.Integrity.Algorithm)
	}

	salt, err := base64.StdEncoding.DecodeString(f.Integrity.Salt)
	if err != nil || len(salt) == 0 {
		return fmt.Errorf("%w: malformed salt", kerrors.ErrIntegrityMismatch)
	}
	want, err := base64.StdEncoding.DecodeString(f.Integrity.MAC)
	if err != nil {
		return fmt.Errorf("%w: malformed tag", kerrors.ErrIntegrityMismatch)
	}

	key, _, err := secrets.DeriveKey(masterKey, salt)
	if err != nil {
		return err
	}

	got, err := computeMAC(f, key[:])
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare(got, want) != 1 {
		return kerrors.ErrIntegrityMismatch
	}
	return nil
}

func computeMAC(f *File, key []byte) ([]byte, error) {
	h, err := blake3.NewKeyed(key)
	if err != nil {
		return nil, err
	}

	fields := []string{
		f.Version,
		f.Layers.Credentials.Ciphertext, f.Layers.Credentials.Salt,
		f.Layers.Personality.Ciphertext, f.Layers.Personality.Salt,
		f.Layers.Memory.Ciphertext, f.Layers.Memory.Salt,
	}

	// Length-prefix every field so boundaries cannot be shifted between fields.
	var length [8]byte
	for _, field := range fields {
		binary.BigEndian.PutUint64(length[:], uint64(len(field)))
		_, _ = h.Write(length[:])
		_, _ = h.Write([]byte(field))
	}

	return h.Sum(nil), nil
}
