package signer

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const SignatureLength = crypto.SignatureLength

// ISigner signs 32-byte digests with a single key held for the process
// lifetime. Implementations must be safe for concurrent use.
type ISigner interface {
	// SignHash returns a 65 byte r||s||v signature with v in {27, 28}
	SignHash(hash [32]byte) ([]byte, error)

	// Address returns the address derived from the signing key
	Address() common.Address
}

// RecoverAddress returns the address that produced signature over hash.
// Both v encodings (0/1 and 27/28) are accepted.
func RecoverAddress(hash [32]byte, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(signature))
	}
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pubKey, err := crypto.SigToPub(hash[:], sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}

func VerifyHash(hash [32]byte, signature []byte, address common.Address) (bool, error) {
	recovered, err := RecoverAddress(hash, signature)
	if err != nil {
		return false, err
	}
	return recovered == address, nil
}
