package security

// srpModulusKeyFingerprint pins the signer of every modulus the API serves.
// Full v4 fingerprint; Verify compares it against the complete fingerprint
// of the signing key, never a truncated form.
const srpModulusKeyFingerprint = "8d928f6b59e03a3f3e9ec601adadf08f7c8e79a0"

// srpModulusKey is the trusted public key the API signs SRP moduli with.
const srpModulusKey = `-----BEGIN PGP PUBLIC KEY BLOCK-----

xjMEXAHLgxYJKwYBBAHaRw8BAQdAW7GyyqlVtBpQwZz+sTAoqSSfzs+bp8I3
/mz1fqbf6hbNEnByb3RvbkBzcnAubW9kdWx1c8J3BBAWCgApBQJcAcuDBgsJ
BwgDAgkQra3wj3yOeaAEFQgKAgMWAgECGQECGwMCHgEAALamAP4qEA7HNQ02
7NE9aTANcB8pl3f/6KdjduKLu7uWe6SwwAEA2m8Qu5U7eDg8T4GxxBKff+P9
ta2h1EfEV2/7WsU5AQXOOARcAcuDEgorBgEEAZdVAQUBAQdAOiqzcWeVf4kY
x7klpYF0YnwZ1G+OdFz3Pby0uQF1HCsDAQgHwmEEGBYIABMFAlwBy4MJEK2t
8I98jnmgAhsMAACqkAD/W/pGUpw9bOIm99SXtgN6UaSndYZdXdGUJIKmwXle
WIIA/15qcvgdEBmeF9TMmvzRDoasIVrFm2mq1icc7KjVNGsB
=Wkyu
-----END PGP PUBLIC KEY BLOCK-----`
