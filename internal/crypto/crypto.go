// Package crypto encrypts sensitive settings (API keys) at rest using
// AES-GCM with a key derived from the DUPEARR_ENCRYPTION_KEY environment
// variable. Without a key configured, values pass through unencrypted.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
)

// EncryptedPrefix marks stored values as encrypted.
const EncryptedPrefix = "enc:v1:"

var (
	ErrNoEncryptionKey = errors.New("no encryption key configured")
	ErrDecryptFailed   = errors.New("decryption failed: invalid ciphertext")
)

var (
	keyOnce sync.Once
	key     []byte // nil when encryption is disabled
)

func derivedKey() []byte {
	keyOnce.Do(func() {
		if passphrase := os.Getenv("DUPEARR_ENCRYPTION_KEY"); passphrase != "" {
			key = derive(passphrase)
		}
	})
	return key
}

// derive turns a passphrase of any length into a 32-byte AES key.
func derive(passphrase string) []byte {
	sum := sha256.Sum256([]byte(passphrase))
	return sum[:]
}

// SetKeyForTesting overrides the derived key. Pass empty to disable
// encryption.
func SetKeyForTesting(passphrase string) {
	derivedKey() // force the Once so the env var cannot override later
	if passphrase == "" {
		key = nil
		return
	}
	key = derive(passphrase)
}

// EncryptionEnabled reports whether a key is configured.
func EncryptionEnabled() bool {
	return derivedKey() != nil
}

// IsEncrypted reports whether a value carries the encrypted prefix.
func IsEncrypted(value string) bool {
	return len(value) > len(EncryptedPrefix) && strings.HasPrefix(value, EncryptedPrefix)
}

// Encrypt seals plaintext with AES-GCM and prepends EncryptedPrefix. With no
// key configured the plaintext is returned unchanged.
func Encrypt(plaintext string) (string, error) {
	k := derivedKey()
	if k == nil {
		return plaintext, nil
	}

	gcm, err := newGCM(k)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Values without the prefix are returned as-is so
// plaintext settings from older installs keep working.
func Decrypt(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}

	k := derivedKey()
	if k == nil {
		return "", ErrNoEncryptionKey
	}

	data, err := base64.StdEncoding.DecodeString(value[len(EncryptedPrefix):])
	if err != nil {
		return "", err
	}

	gcm, err := newGCM(k)
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", ErrDecryptFailed
	}

	nonce, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}

func newGCM(k []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
