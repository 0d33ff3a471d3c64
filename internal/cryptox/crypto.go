// Package cryptox holds the symmetric primitives used to seal backup
// archives: an argon2id key derivation and AES-GCM over JSON documents.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	// KeyLength selects AES-256.
	KeyLength  = 32
	SaltLength = 16
	NonceSize  = 12
)

var ErrShortPassphrase = errors.New("passphrase is empty")

var randRead = rand.Read

// NewSalt returns SaltLength random bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := randRead(salt); err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}
	return salt, nil
}

// DeriveMasterKey stretches passphrase into a KeyLength AES key.
func DeriveMasterKey(passphrase, salt []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, ErrShortPassphrase
	}
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeyLength), nil
}

// EncryptEntry serializes entry to JSON and seals it with AES-GCM under key.
// A fresh nonce is generated per call and returned next to the ciphertext.
//
//	key, _ := DeriveMasterKey([]byte("passphrase"), salt)
//	ciphertext, nonce, err := EncryptEntry(backups, key)
func EncryptEntry(entry any, key []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(entry)
	if err != nil {
		return nil, nil, err
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, NonceSize)
	if _, err := randRead(nonce); err != nil {
		return nil, nil, fmt.Errorf("nonce: %w", err)
	}

	return aesgcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// DecryptEntry opens ciphertext produced by EncryptEntry and unmarshals the
// JSON into v. A wrong key or a tampered ciphertext fails authentication.
func DecryptEntry(ciphertext, nonce, key []byte, v any) error {
	aesgcm, err := newGCM(key)
	if err != nil {
		return err
	}
	if len(nonce) != aesgcm.NonceSize() {
		return fmt.Errorf("nonce must be %d bytes, got %d", aesgcm.NonceSize(), len(nonce))
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return err
	}

	return json.Unmarshal(plaintext, v)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
