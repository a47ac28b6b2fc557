package inMemorySigner

import (
	"errors"
	"sync"
	"testing"

	cryptoEcdsa "github.com/Layr-Labs/crypto-libs/pkg/ecdsa"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jinmel/avs-examples/pkg/config"
	"github.com/jinmel/avs-examples/pkg/signer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPrivateKey = "0x3dd7c381f27775d9945f0fcf5bb914484c4d01681824603c71dd762259f43214"
	testAddress    = "0x6B58f6762689DF33fe8fa3FC40Fb5a3089D3a8cc"
)

func Test_NewInMemorySigner(t *testing.T) {
	t.Run("Should derive the expected address", func(t *testing.T) {
		s, err := NewInMemorySigner(testPrivateKey)
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress(testAddress), s.Address())
	})

	t.Run("Should accept a key without the 0x prefix", func(t *testing.T) {
		s, err := NewInMemorySigner(testPrivateKey[2:])
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress(testAddress), s.Address())
	})

	t.Run("Should match the go-ethereum derived address for a generated key", func(t *testing.T) {
		pk, err := crypto.GenerateKey()
		require.NoError(t, err)

		s, err := NewInMemorySigner(common.Bytes2Hex(crypto.FromECDSA(pk)))
		require.NoError(t, err)
		assert.Equal(t, crypto.PubkeyToAddress(pk.PublicKey), s.Address())
	})

	invalidKeys := []struct {
		name string
		key  string
	}{
		{name: "empty", key: ""},
		{name: "not hex", key: "0xnothex"},
		{name: "odd length", key: "0xabc"},
		{name: "zero scalar", key: "0x0000000000000000000000000000000000000000000000000000000000000000"},
		{name: "scalar above curve order", key: "0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
	}
	for _, tt := range invalidKeys {
		t.Run("Should fail with a configuration error for "+tt.name+" key", func(t *testing.T) {
			s, err := NewInMemorySigner(tt.key)
			require.Error(t, err)
			assert.Nil(t, s)

			var cfgErr *config.ConfigurationError
			assert.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, "private_key", cfgErr.Setting)
		})
	}
}

func Test_SignHash(t *testing.T) {
	s, err := NewInMemorySigner(testPrivateKey)
	require.NoError(t, err)

	hash := crypto.Keccak256Hash([]byte("2000.00"))

	t.Run("Should produce a 65 byte signature with v of 27 or 28", func(t *testing.T) {
		sig, err := s.SignHash(hash)
		require.NoError(t, err)
		require.Len(t, sig, 65)
		assert.Contains(t, []byte{27, 28}, sig[64])
	})

	t.Run("Should recover the signer address", func(t *testing.T) {
		sig, err := s.SignHash(hash)
		require.NoError(t, err)

		ok, err := signer.VerifyHash(hash, sig, s.Address())
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = signer.VerifyHash(crypto.Keccak256Hash([]byte("2100.00")), sig, s.Address())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Should verify with crypto-libs", func(t *testing.T) {
		sig, err := s.SignHash(hash)
		require.NoError(t, err)

		parsed, err := cryptoEcdsa.NewSignatureFromBytes(sig)
		require.NoError(t, err)
		ok, err := parsed.VerifyWithAddress(hash[:], s.Address())
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Should be safe for concurrent use", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				sig, err := s.SignHash(hash)
				assert.NoError(t, err)
				recovered, err := signer.RecoverAddress(hash, sig)
				assert.NoError(t, err)
				assert.Equal(t, s.Address(), recovered)
			}()
		}
		wg.Wait()
	})
}
