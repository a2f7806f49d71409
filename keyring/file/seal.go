package filekeyring

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	keyBytes  = 32
	saltBytes = 16

	argonTime    = 1
	argonMemory  = 1 << 16
	argonThreads = 8
)

// sealedSnapshot is the on-disk envelope for passphrase-protected
// snapshots.
type sealedSnapshot struct {
	Version    int    `json:"Version"`
	Salt       []byte `json:"Salt"`
	Nonce      []byte `json:"Nonce"`
	Ciphertext []byte `json:"Ciphertext"`
}

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, keyBytes)
}

func sealSnapshot(passphrase string, plaintext []byte) (sealedSnapshot, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return sealedSnapshot{}, fmt.Errorf("filekeyring: generate salt: %w", err)
	}

	aead, err := chacha20poly1305.New(deriveKey(passphrase, salt))
	if err != nil {
		return sealedSnapshot{}, fmt.Errorf("filekeyring: init cipher: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return sealedSnapshot{}, fmt.Errorf("filekeyring: generate nonce: %w", err)
	}

	return sealedSnapshot{
		Version:    1,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, nil),
	}, nil
}

func openSnapshot(passphrase string, sealed sealedSnapshot) ([]byte, error) {
	if len(sealed.Salt) != saltBytes || len(sealed.Nonce) != chacha20poly1305.NonceSize {
		return nil, fmt.Errorf("filekeyring: malformed envelope")
	}
	aead, err := chacha20poly1305.New(deriveKey(passphrase, sealed.Salt))
	if err != nil {
		return nil, fmt.Errorf("filekeyring: init cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, sealed.Nonce, sealed.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("filekeyring: open envelope: %w", err)
	}
	return plaintext, nil
}
