// Package attest signs and verifies a worker's computed mean with an
// ephemeral secp256k1 key.
package attest

import "errors"

var (
	// ErrSigning indicates that key generation or signing failed.
	ErrSigning = errors.New("signing failure")
	// ErrKeyDecode indicates that a public key encoding is malformed.
	ErrKeyDecode = errors.New("public key decode failed")
	// ErrSignatureInvalid indicates that a signature does not match the value and key.
	ErrSignatureInvalid = errors.New("signature invalid")
)
