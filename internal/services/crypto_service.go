package services

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"os"
)

// CredentialCipher encrypts terminal credentials before they reach the
// database and decrypts them on every read. AES-256-GCM; the key is derived
// from TERMINAL_CREDENTIAL_KEY.
type CredentialCipher struct {
	key []byte
}

func NewCredentialCipher() (*CredentialCipher, error) {
	secret := os.Getenv("TERMINAL_CREDENTIAL_KEY")
	if secret == "" {
		return nil, errors.New("TERMINAL_CREDENTIAL_KEY not set")
	}
	key := sha256.Sum256([]byte(secret))
	return &CredentialCipher{key: key[:]}, nil
}

// NewCredentialCipherWithKey builds a cipher from an explicit secret.
func NewCredentialCipherWithKey(secret string) *CredentialCipher {
	key := sha256.Sum256([]byte(secret))
	return &CredentialCipher{key: key[:]}
}

func (c *CredentialCipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *CredentialCipher) Decrypt(ciphertext string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(sealed) < gcm.NonceSize() {
		return "", errors.New("credential ciphertext too short")
	}
	nonce, data := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, data, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
