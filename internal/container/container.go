package container

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	kerrors "github.com/PolarWolf314/backpack/internal/errors"
	"github.com/PolarWolf314/backpack/internal/secrets"
)

// LayerError reports which layer of a container could not be opened.
type LayerError struct {
	Layer string
	Err   error
}

func (e *LayerError) Error() string {
	return fmt.Sprintf("%s layer: %v", e.Layer, e.Err)
}

func (e *LayerError) Unwrap() error {
	return e.Err
}

// Lock reads and writes one agent.lock file under a master key.
type Lock struct {
	path             string
	masterKey        []byte
	requireIntegrity bool
}

// Option configures a Lock.
type Option func(*Lock)

// WithRequireIntegrity rejects containers that carry no integrity tag.
func WithRequireIntegrity() Option {
	return func(l *Lock) {
		l.requireIntegrity = true
	}
}

// New returns a Lock for the container at path. An empty path means DefaultFileName.
// The master key slice is referenced, not copied; the caller owns its lifetime.
func New(path string, masterKey []byte, opts ...Option) *Lock {
	if path == "" {
		path = DefaultFileName
	}
	l := &Lock{path: path, masterKey: masterKey}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the container file path.
func (l *Lock) Path() string {
	return l.path
}

// Exists reports whether the container file is present.
func (l *Lock) Exists() bool {
	_, err := os.Stat(l.path)
	return err == nil
}

// Create encrypts the three layers independently and replaces any existing
// container at the path. A nil memory is stored as an empty object.
func (l *Lock) Create(credentials *Credentials, personality Personality, memory any) error {
	if len(l.masterKey) == 0 {
		return kerrors.ErrMasterKeyNotSet
	}
	if credentials == nil {
		credentials = NewCredentials()
	}
	if personality == nil {
		personality = Personality{}
	}
	if memory == nil {
		memory = map[string]any{}
	}

	f := &File{Version: FormatVersion}

	layers := []struct {
		name  string
		value any
		dst   *secrets.EncryptedBlob
	}{
		{LayerCredentials, credentials, &f.Layers.Credentials},
		{LayerPersonality, personality, &f.Layers.Personality},
		{LayerMemory, memory, &f.Layers.Memory},
	}

	for _, layer := range layers {
		plaintext, err := json.Marshal(layer.value)
		if err != nil {
			return fmt.Errorf("encoding %s layer: %w", layer.name, err)
		}
		blob, err := secrets.Encrypt(plaintext, l.masterKey)
		if err != nil {
			return fmt.Errorf("%w: %s layer: %v", kerrors.ErrEncryptFailed, layer.name, err)
		}
		*layer.dst = blob
	}

	integrity, err := seal(f, l.masterKey)
	if err != nil {
		return fmt.Errorf("sealing container: %w", err)
	}
	f.Integrity = integrity

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding container: %w", err)
	}

	if err := writeFileAtomic(l.path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrContainerWriteFailed, err)
	}
	return nil
}

// Read loads and decrypts the container.
//
// A missing file returns ErrContainerNotFound. Malformed JSON, a failing
// integrity check or any layer that cannot be decrypted returns an error
// wrapping ErrContainerCorrupted; layer failures also wrap a *LayerError.
// A container is only usable as a whole, so no partial view is returned.
func (l *Lock) Read() (*View, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, kerrors.ErrContainerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", l.path, err)
	}

	if len(l.masterKey) == 0 {
		return nil, kerrors.ErrMasterKeyNotSet
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s is not valid JSON: %v", kerrors.ErrContainerCorrupted, l.path, err)
	}
	if f.Version == "" {
		return nil, fmt.Errorf("%w: %s has no version", kerrors.ErrContainerCorrupted, l.path)
	}

	view := &View{Version: f.Version, Integrity: IntegrityLegacy}

	switch {
	case f.Integrity != nil:
		if err := verify(&f, l.masterKey); err != nil {
			return nil, fmt.Errorf("%w: %w", kerrors.ErrContainerCorrupted, err)
		}
		view.Integrity = IntegrityVerified
	case l.requireIntegrity:
		return nil, fmt.Errorf("%w: %w", kerrors.ErrContainerCorrupted, kerrors.ErrIntegrityMissing)
	}

	credentials := NewCredentials()
	var personality Personality
	var memory any

	layers := []struct {
		name string
		blob secrets.EncryptedBlob
		dst  any
	}{
		{LayerCredentials, f.Layers.Credentials, credentials},
		{LayerPersonality, f.Layers.Personality, &personality},
		{LayerMemory, f.Layers.Memory, &memory},
	}

	for _, layer := range layers {
		if err := openLayer(layer.blob, l.masterKey, layer.dst); err != nil {
			return nil, fmt.Errorf("%w: %w", kerrors.ErrContainerCorrupted, &LayerError{Layer: layer.name, Err: err})
		}
	}

	if personality == nil {
		personality = Personality{}
	}

	view.Credentials = credentials
	view.Personality = personality
	view.Memory = memory
	return view, nil
}

// UpdateMemory replaces the memory layer by reading the whole container and
// writing it back with the original credentials and personality. If there is
// no container, nothing is written and ErrContainerNotFound is returned.
func (l *Lock) UpdateMemory(memory any) error {
	view, err := l.Read()
	if err != nil {
		return err
	}
	return l.Create(view.Credentials, view.Personality, memory)
}

// RequiredCredentialNames returns the declared credential names in order.
// A missing container yields an empty list and no error.
func (l *Lock) RequiredCredentialNames() ([]string, error) {
	view, err := l.Read()
	if errors.Is(err, kerrors.ErrContainerNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return view.Credentials.Names(), nil
}

func openLayer(blob secrets.EncryptedBlob, masterKey []byte, dst any) error {
	plaintext, err := secrets.Decrypt(blob, masterKey)
	if err != nil {
		return err
	}
	if err := decodeExact(plaintext, dst); err != nil {
		return fmt.Errorf("decrypted payload is not valid JSON: %w", err)
	}
	return nil
}

// DecodeMemory parses a memory document. Numbers are kept as json.Number so
// integers of any size survive a read-modify-write unchanged.
func DecodeMemory(data []byte) (any, error) {
	var memory any
	if err := decodeExact(data, &memory); err != nil {
		return nil, err
	}
	return memory, nil
}

func decodeExact(data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

// writeFileAtomic writes data to a temporary file in the target directory and
// renames it over path, so readers never observe a partially written container.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
