// Package security verifies the clear-signed SRP modulus the API hands out
// during login. The modulus travels as an armored clear-signed message; its
// signature has to check out against the embedded trusted key, and the
// signer's fingerprint has to match the pinned one, before the decoded
// modulus bytes are released to the SRP handshake.
package security
