// Package secrets provides the password-based encryption used by Backpack containers.
//
// # Key Derivation
//
// Every call to Encrypt derives a fresh 256-bit key from the master password
// with PBKDF2-HMAC-SHA256 (100,000 iterations) and a new random 16-byte salt.
// Salts are never reused, so two layers encrypted under the same master
// password never share a key.
//
// # Encryption
//
// Payloads are sealed with NaCl secretbox (XSalsa20-Poly1305). A random
// 24-byte nonce is prepended to the ciphertext, which means encrypting the
// same plaintext twice produces different output.
//
// The resulting EncryptedBlob stores base64 ciphertext and salt:
//
//	{"data": "<base64 nonce||box>", "salt": "<base64 salt>"}
//
// # Failure Semantics
//
// Decrypt authenticates before returning anything. A wrong password, a
// modified ciphertext and a modified salt all fail with an error wrapping
// errors.ErrDecryptFailed; Decrypt never returns unauthenticated plaintext.
package secrets
