package envseal

import "errors"

// Sentinel errors for sealing operations. All errors returned by this
// package can be checked with errors.Is().

// ErrInvalidSalt is returned when a salt does not have the required length
// for key derivation.
var ErrInvalidSalt = errors.New("invalid salt")

// ErrInvalidKey is returned when a key is not a valid AES-256 key.
var ErrInvalidKey = errors.New("invalid key")

// ErrEncrypt is returned when sealing fails, including failures to draw
// random material for salts and nonces.
var ErrEncrypt = errors.New("encryption failed")

// ErrDecrypt is returned when unsealing fails. This covers malformed
// envelopes as well as authentication failures from a wrong key or
// tampered data.
var ErrDecrypt = errors.New("decryption failed")

// ErrMalformedEnv is returned when an environment file cannot be parsed.
var ErrMalformedEnv = errors.New("malformed env file")
