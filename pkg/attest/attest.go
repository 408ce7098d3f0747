package attest

import (
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// PublicKeyLen is the size of an uncompressed secp256k1 point (0x04 || X || Y).
	PublicKeyLen = 65
	// SignatureLen is the size of an R || S signature, without recovery id.
	SignatureLen = 64
)

// PublicKey is the fixed-width encoding of a verifying key.
type PublicKey [PublicKeyLen]byte

// Signature is the fixed-width R || S encoding of a signature.
type Signature [SignatureLen]byte

// Signer holds one ephemeral keypair. It is created, used and dropped within
// a single worker invocation; the private half never leaves the struct.
type Signer struct {
	key *ecdsa.PrivateKey
}

// NewSigner generates a fresh, uniformly random keypair.
func NewSigner() (*Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: generate key: %w", ErrSigning, err)
	}
	return &Signer{key: key}, nil
}

// PublicKey returns the uncompressed encoding of the verifying key.
func (s *Signer) PublicKey() PublicKey {
	var pk PublicKey
	copy(pk[:], crypto.FromECDSAPub(&s.key.PublicKey))
	return pk
}

// Address returns the Ethereum-style address of the key, used to tell
// workers apart in logs.
func (s *Signer) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// SignValue signs the little-endian encoding of v.
func (s *Signer) SignValue(v float64) (Signature, error) {
	var sig Signature
	if s.key == nil {
		return sig, fmt.Errorf("%w: signer destroyed", ErrSigning)
	}

	raw, err := crypto.Sign(Digest(v), s.key)
	if err != nil {
		return sig, fmt.Errorf("%w: %w", ErrSigning, err)
	}
	// Drop the recovery id, the verifier gets the key out of band
	copy(sig[:], raw[:SignatureLen])
	return sig, nil
}

// Destroy wipes the private scalar. The signer is unusable afterwards.
func (s *Signer) Destroy() {
	if s.key == nil {
		return
	}
	s.key.D.SetInt64(0)
	s.key = nil
}

// Encode returns the little-endian IEEE 754 encoding of v, the exact bytes
// a worker attests to.
func Encode(v float64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	return buf
}

// Digest is the 32-byte Keccak-256 hash of Encode(v) that gets signed.
func Digest(v float64) []byte {
	return crypto.Keccak256(Encode(v))
}

// DecodePublicKey rebuilds a verifying key from its fixed-width encoding.
func DecodePublicKey(b []byte) (*ecdsa.PublicKey, error) {
	if len(b) != PublicKeyLen {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrKeyDecode, PublicKeyLen, len(b))
	}
	pub, err := crypto.UnmarshalPubkey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyDecode, err)
	}
	return pub, nil
}

// EncodePublicKey is the inverse of DecodePublicKey.
func EncodePublicKey(pub *ecdsa.PublicKey) PublicKey {
	var pk PublicKey
	copy(pk[:], crypto.FromECDSAPub(pub))
	return pk
}

// AddressOf returns the address of a decoded verifying key.
func AddressOf(pub *ecdsa.PublicKey) common.Address {
	return crypto.PubkeyToAddress(*pub)
}

// Verify checks sig over Encode(v) under pub.
func Verify(pub *ecdsa.PublicKey, v float64, sig Signature) error {
	if !crypto.VerifySignature(crypto.FromECDSAPub(pub), Digest(v), sig[:]) {
		return ErrSignatureInvalid
	}
	return nil
}
