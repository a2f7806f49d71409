package transport

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/goliatone/go-session/core"
)

// pinnedRoundTripper builds an HTTP transport that rejects TLS chains whose
// SPKI fingerprints match none of the environment's pins. Environments
// without pins get the default transport.
func pinnedRoundTripper(environment core.Environment) http.RoundTripper {
	if environment == nil {
		return http.DefaultTransport
	}
	pins := environment.TLSPinningHashes()
	if len(pins) == 0 {
		return http.DefaultTransport
	}

	allowed := make(map[string]bool, len(pins))
	for _, pin := range pins {
		allowed[pin] = true
	}

	return &http.Transport{
		ForceAttemptHTTP2: true,
		TLSClientConfig: &tls.Config{
			VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
				for _, raw := range rawCerts {
					cert, err := x509.ParseCertificate(raw)
					if err != nil {
						continue
					}
					if allowed[spkiFingerprint(cert)] {
						return nil
					}
				}
				return fmt.Errorf("transport: no pinned public key in presented chain")
			},
		},
	}
}

// spkiFingerprint is the base64 sha256 of the certificate's SubjectPublicKeyInfo.
func spkiFingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.RawSubjectPublicKeyInfo)
	return base64.StdEncoding.EncodeToString(sum[:])
}
