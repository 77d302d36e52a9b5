package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	kerrors "github.com/PolarWolf314/backpack/internal/errors"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the length of the random PBKDF2 salt generated per encryption.
	SaltSize = 16

	// KeySize is the length of the derived symmetric key (secretbox uses 256-bit keys).
	KeySize = 32

	// Iterations is the PBKDF2 iteration count.
	Iterations = 100_000

	nonceSize = 24
)

// EncryptedBlob is a single encrypted payload together with the salt its key was derived from.
// Both fields are standard base64 so the blob can be embedded in JSON.
type EncryptedBlob struct {
	Ciphertext string `json:"data"`
	Salt       string `json:"salt"`
}

// DeriveKey derives a 256-bit key from password using PBKDF2-HMAC-SHA256.
// If salt is nil a fresh random salt of SaltSize bytes is generated.
// The salt actually used is returned so it can be stored next to the ciphertext.
func DeriveKey(password, salt []byte) ([KeySize]byte, []byte, error) {
	var key [KeySize]byte

	if len(password) == 0 {
		return key, nil, kerrors.ErrEmptyPassword
	}

	if salt == nil {
		salt = make([]byte, SaltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return key, nil, fmt.Errorf("%w: generating salt: %v", kerrors.ErrKeyDerivationFailed, err)
		}
	}

	derived := pbkdf2.Key(password, salt, Iterations, KeySize, sha256.New)
	copy(key[:], derived)
	wipe(derived)

	return key, salt, nil
}

// Encrypt seals plaintext under a key derived from password with a fresh salt and nonce.
// Two calls with identical inputs never produce the same salt or ciphertext.
func Encrypt(plaintext, password []byte) (EncryptedBlob, error) {
	key, salt, err := DeriveKey(password, nil)
	if err != nil {
		return EncryptedBlob{}, err
	}
	defer wipe(key[:])

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return EncryptedBlob{}, fmt.Errorf("%w: generating nonce: %v", kerrors.ErrEncryptFailed, err)
	}

	// The nonce is prepended to the sealed box.
	sealed := secretbox.Seal(nonce[:], plaintext, &nonce, &key)

	return EncryptedBlob{
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
		Salt:       base64.StdEncoding.EncodeToString(salt),
	}, nil
}

// Decrypt opens a blob produced by Encrypt. Any failure, including a wrong
// password or tampered data, returns an error wrapping ErrDecryptFailed.
func Decrypt(blob EncryptedBlob, password []byte) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(blob.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed salt: %v", kerrors.ErrDecryptFailed, err)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: missing salt", kerrors.ErrDecryptFailed)
	}

	sealed, err := base64.StdEncoding.DecodeString(blob.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed ciphertext: %v", kerrors.ErrDecryptFailed, err)
	}
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("%w: ciphertext too short", kerrors.ErrDecryptFailed)
	}

	key, _, err := DeriveKey(password, salt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrDecryptFailed, err)
	}
	defer wipe(key[:])

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	plaintext, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &key)
	if !ok {
		return nil, fmt.Errorf("%w: authentication failed (wrong master key or tampered data)", kerrors.ErrDecryptFailed)
	}

	return plaintext, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
