package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
)

// ErrWrongPassphrase is returned when a key file does not decrypt.
var ErrWrongPassphrase = errors.New("crypto: decryption failed (wrong passphrase?)")

const (
	saltSize    = 16
	keyFileMode = 0600
)

// serializedIdentity is the JSON structure for storage. Everything else
// is derived from the seed on load.
type serializedIdentity struct {
	Seed []byte `json:"seed"`
	DID  string `json:"did"`
}

// deriveKey uses Argon2id to derive an AES-256 key from passphrase.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// SaveIdentity encrypts and saves identity to path.
// File format: salt(16) + nonce(12) + ciphertext.
func SaveIdentity(id *Identity, path, passphrase string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.Marshal(serializedIdentity{
		Seed: id.SigningKey.Seed(),
		DID:  id.DID,
	})
	if err != nil {
		return fmt.Errorf("failed to serialize identity: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := newGCM(deriveKey(passphrase, salt))
	if err != nil {
		return err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, saltSize+len(nonce)+len(data)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, data, nil)

	return writeFileAtomic(path, out)
}

// LoadIdentity decrypts and loads an identity from path.
func LoadIdentity(path, passphrase string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) < saltSize+12 {
		return nil, fmt.Errorf("file too short")
	}

	gcm, err := newGCM(deriveKey(passphrase, data[:saltSize]))
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	nonce := data[saltSize : saltSize+nonceSize]
	ciphertext := data[saltSize+nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassphrase
	}

	var stored serializedIdentity
	if err := json.Unmarshal(plaintext, &stored); err != nil {
		return nil, fmt.Errorf("failed to deserialize identity: %w", err)
	}

	return identityFromSeed(stored.Seed)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// writeFileAtomic writes to a temp file in the same directory, syncs it
// and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".identity-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := tmp.Chmod(keyFileMode); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
