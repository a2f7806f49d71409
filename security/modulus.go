package security

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"

	"github.com/goliatone/go-session/core"
)

// ModulusVerifier checks clear-signed moduli against a trusted keyring and
// a pinned signer fingerprint.
type ModulusVerifier struct {
	keyring     openpgp.EntityList
	fingerprint string
}

// NewModulusVerifier builds a verifier from an armored public key and the
// lowercase hex fingerprint its signatures must carry.
func NewModulusVerifier(armoredKey, fingerprint string) (*ModulusVerifier, error) {
	keyring, err := openpgp.ReadArmoredKeyRing(strings.NewReader(armoredKey))
	if err != nil {
		return nil, fmt.Errorf("security: read trusted modulus key: %w", err)
	}
	fingerprint = strings.ToLower(strings.TrimSpace(fingerprint))
	if fingerprint == "" {
		return nil, fmt.Errorf("security: modulus key fingerprint is required")
	}
	return &ModulusVerifier{keyring: keyring, fingerprint: fingerprint}, nil
}

// DefaultModulusVerifier uses the embedded production key and fingerprint.
func DefaultModulusVerifier() (*ModulusVerifier, error) {
	return NewModulusVerifier(srpModulusKey, srpModulusKeyFingerprint)
}

// Verify checks the clear-signed armored modulus and returns the decoded
// modulus bytes. Any failure, signature, fingerprint, or encoding, is a
// fatal crypto error; nothing in the login flow retries it.
func (v *ModulusVerifier) Verify(armored string) ([]byte, error) {
	if v == nil {
		return nil, core.NewCryptoError("security: modulus verifier is not configured")
	}

	block, rest := clearsign.Decode([]byte(armored))
	if block == nil {
		return nil, core.NewCryptoError("security: modulus is not a clear-signed message")
	}
	if len(bytes.TrimSpace(rest)) > 0 {
		return nil, core.NewCryptoError("security: modulus carries trailing data")
	}

	signer, err := openpgp.CheckDetachedSignature(
		v.keyring,
		bytes.NewReader(block.Bytes),
		block.ArmoredSignature.Body,
		nil,
	)
	if err != nil || signer == nil {
		return nil, core.NewCryptoError("security: invalid modulus signature")
	}
	if hex.EncodeToString(signer.PrimaryKey.Fingerprint) != v.fingerprint {
		return nil, core.NewCryptoError("security: modulus signed by unexpected key")
	}

	modulus, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(block.Plaintext)))
	if err != nil {
		return nil, core.NewCryptoError("security: modulus payload is not valid base64")
	}
	return modulus, nil
}

var _ core.ModulusVerifier = (*ModulusVerifier)(nil)
