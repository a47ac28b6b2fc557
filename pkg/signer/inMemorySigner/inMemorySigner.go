package inMemorySigner

import (
	"fmt"
	"strings"

	"github.com/Layr-Labs/crypto-libs/pkg/ecdsa"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jinmel/avs-examples/pkg/config"
	"github.com/jinmel/avs-examples/pkg/signer"
)

const privateKeySetting = "private_key"

// InMemorySigner holds a parsed secp256k1 key. It is immutable after
// construction.
type InMemorySigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

func NewInMemorySigner(privateKeyHex string) (*InMemorySigner, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if trimmed == "" {
		return nil, config.NewConfigurationError(privateKeySetting, fmt.Errorf("private key is empty"))
	}

	keyBytes, err := hexutil.Decode("0x" + trimmed)
	if err != nil {
		return nil, config.NewConfigurationError(privateKeySetting, fmt.Errorf("private key is not valid hex: %w", err))
	}
	// ToECDSA rejects zero and out-of-range scalars
	if _, err := crypto.ToECDSA(keyBytes); err != nil {
		return nil, config.NewConfigurationError(privateKeySetting, fmt.Errorf("private key is not a valid secp256k1 scalar: %w", err))
	}

	pk, err := ecdsa.NewPrivateKeyFromHexString(trimmed)
	if err != nil {
		return nil, config.NewConfigurationError(privateKeySetting, fmt.Errorf("failed to create ECDSA private key: %w", err))
	}
	address, err := pk.DeriveAddress()
	if err != nil {
		return nil, config.NewConfigurationError(privateKeySetting, fmt.Errorf("failed to derive address: %w", err))
	}

	return &InMemorySigner{
		privateKey: pk,
		address:    address,
	}, nil
}

func (ims *InMemorySigner) Address() common.Address {
	return ims.address
}

func (ims *InMemorySigner) SignHash(hash [32]byte) ([]byte, error) {
	sig, err := ims.privateKey.Sign(hash[:])
	if err != nil {
		return nil, fmt.Errorf("failed to sign hash: %w", err)
	}
	sigBytes := sig.Bytes()
	if len(sigBytes) != signer.SignatureLength {
		return nil, fmt.Errorf("unexpected signature length %d", len(sigBytes))
	}
	if sigBytes[crypto.RecoveryIDOffset] < 27 {
		sigBytes[crypto.RecoveryIDOffset] += 27
	}
	return sigBytes, nil
}

var _ signer.ISigner = (*InMemorySigner)(nil)
