package taskProof

import (
	"bytes"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/iden3/go-iden3-crypto/keccak256"
	"github.com/jinmel/avs-examples/pkg/signer/inMemorySigner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrivateKey = "3dd7c381f27775d9945f0fcf5bb914484c4d01681824603c71dd762259f43214"

var testPerformer = common.HexToAddress("0x6B58f6762689DF33fe8fa3FC40Fb5a3089D3a8cc")

func Test_EncodeTaskMessage(t *testing.T) {
	t.Run("Should lay out the parameters as string, bytes, address, int32", func(t *testing.T) {
		encoded, err := EncodeTaskMessage("2000.00", []byte("hello"), testPerformer, 7)
		require.NoError(t, err)

		// 4 head slots, string tail (length + 1 word), bytes tail (length + 1 word)
		require.Len(t, encoded, 256)

		assert.Equal(t, uint64(0x80), new(big.Int).SetBytes(encoded[0:32]).Uint64(), "string offset")
		assert.Equal(t, uint64(0xc0), new(big.Int).SetBytes(encoded[32:64]).Uint64(), "bytes offset")
		assert.Equal(t, common.LeftPadBytes(testPerformer.Bytes(), 32), encoded[64:96], "address")
		assert.Equal(t, uint64(7), new(big.Int).SetBytes(encoded[96:128]).Uint64(), "taskDefinitionId")

		assert.Equal(t, uint64(7), new(big.Int).SetBytes(encoded[128:160]).Uint64(), "string length")
		assert.Equal(t, common.RightPadBytes([]byte("2000.00"), 32), encoded[160:192])
		assert.Equal(t, uint64(5), new(big.Int).SetBytes(encoded[192:224]).Uint64(), "bytes length")
		assert.Equal(t, common.RightPadBytes([]byte("hello"), 32), encoded[224:256])
	})

	t.Run("Should sign extend a negative task definition id", func(t *testing.T) {
		encoded, err := EncodeTaskMessage("1", []byte{}, testPerformer, -1)
		require.NoError(t, err)
		assert.Equal(t, bytes.Repeat([]byte{0xff}, 32), encoded[96:128])
	})

	t.Run("Should treat a nil result as empty bytes", func(t *testing.T) {
		withNil, err := EncodeTaskMessage("1", nil, testPerformer, 0)
		require.NoError(t, err)
		withEmpty, err := EncodeTaskMessage("1", []byte{}, testPerformer, 0)
		require.NoError(t, err)
		assert.Equal(t, withEmpty, withNil)
	})

	t.Run("Should be deterministic", func(t *testing.T) {
		a, err := EncodeTaskMessage("2000.00", []byte("hello"), testPerformer, 0)
		require.NoError(t, err)
		b, err := EncodeTaskMessage("2000.00", []byte("hello"), testPerformer, 0)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("Should change when any field changes", func(t *testing.T) {
		base, err := HashTaskMessage("2000.00", []byte("hello"), testPerformer, 0)
		require.NoError(t, err)

		variants := []func() (common.Hash, error){
			func() (common.Hash, error) { return HashTaskMessage("2000.01", []byte("hello"), testPerformer, 0) },
			func() (common.Hash, error) { return HashTaskMessage("2000.00", []byte("hellp"), testPerformer, 0) },
			func() (common.Hash, error) {
				return HashTaskMessage("2000.00", []byte("hello"), common.HexToAddress("0x01"), 0)
			},
			func() (common.Hash, error) { return HashTaskMessage("2000.00", []byte("hello"), testPerformer, 1) },
		}
		for _, v := range variants {
			h, err := v()
			require.NoError(t, err)
			assert.NotEqual(t, base, h)
		}
	})
}

func Test_HashTaskMessage(t *testing.T) {
	encoded, err := EncodeTaskMessage("2000.00", OracleResultMarker, testPerformer, 0)
	require.NoError(t, err)

	hash, err := HashTaskMessage("2000.00", OracleResultMarker, testPerformer, 0)
	require.NoError(t, err)

	assert.Equal(t, crypto.Keccak256Hash(encoded), hash)
	// independent keccak implementation
	assert.Equal(t, keccak256.Hash(encoded), hash.Bytes())
}

func Test_AgentProofOfTask(t *testing.T) {
	strategyCtx := AgentStrategyContext{
		Prices:    `{"ETH":"2000"}`,
		Portfolio: "10 ETH <on base>",
		ModelName: "gpt-4",
	}

	t.Run("Should serialize the four fields in lexical order without html escaping", func(t *testing.T) {
		proof, err := EncodeAgentProofOfTask(strategyCtx, "buy & hold")
		require.NoError(t, err)
		assert.Equal(t,
			`{"agent_response":"buy & hold","model_name":"gpt-4","portfolio":"10 ETH <on base>","prices":"{\"ETH\":\"2000\"}"}`,
			proof,
		)
	})

	t.Run("Should write line and paragraph separators unescaped", func(t *testing.T) {
		separated := AgentStrategyContext{Prices: "a\u2028b", Portfolio: "c\u2029d", ModelName: "m"}
		proof, err := EncodeAgentProofOfTask(separated, `keep \\u2028 literal`)
		require.NoError(t, err)
		assert.Equal(t,
			`{"agent_response":"keep \\\\u2028 literal","model_name":"m","portfolio":"c`+"\u2029"+`d","prices":"a`+"\u2028"+`b"}`,
			proof,
		)

		parsed, response, ok := ParseAgentProofOfTask(proof)
		require.True(t, ok)
		assert.Equal(t, separated, *parsed)
		assert.Equal(t, `keep \\u2028 literal`, response)
	})

	t.Run("Should round trip through ParseAgentProofOfTask", func(t *testing.T) {
		proof, err := EncodeAgentProofOfTask(strategyCtx, "short ETH on Binance")
		require.NoError(t, err)

		parsed, response, ok := ParseAgentProofOfTask(proof)
		require.True(t, ok)
		assert.Equal(t, strategyCtx, *parsed)
		assert.Equal(t, "short ETH on Binance", response)
	})

	t.Run("Should not treat a price or a partial object as an agent proof", func(t *testing.T) {
		for _, proof := range []string{"2000.00", "", `{"prices":"x"}`, `{not json`, `["a"]`} {
			_, _, ok := ParseAgentProofOfTask(proof)
			assert.False(t, ok, proof)
		}
	})

	t.Run("Should carry the raw response as the result bytes", func(t *testing.T) {
		payload, err := NewAgentPayload(strategyCtx, "strategy text", 3)
		require.NoError(t, err)
		assert.Equal(t, TaskKindAgent, payload.Kind)
		assert.Equal(t, []byte("strategy text"), payload.Result)
		assert.Equal(t, int32(3), payload.TaskDefinitionId)
		assert.True(t, json.Valid([]byte(payload.ProofOfTask)))
	})
}

func Test_SignRoundTrip(t *testing.T) {
	s, err := inMemorySigner.NewInMemorySigner(testPrivateKey)
	require.NoError(t, err)

	payloads := []*TaskPayload{
		NewOraclePayload("2000.00", 0),
		NewOraclePayload("1899.99", 42),
		NewOraclePayload("", -7),
	}
	agentPayload, err := NewAgentPayload(AgentStrategyContext{Prices: "p", Portfolio: "q", ModelName: "m"}, "r", 9)
	require.NoError(t, err)
	payloads = append(payloads, agentPayload)

	for _, payload := range payloads {
		proof, err := payload.Sign(s)
		require.NoError(t, err)

		assert.Equal(t, s.Address(), proof.PerformerAddress)
		assert.Len(t, proof.Signature, 65)
		assert.Equal(t, "0x", proof.SignatureHex()[:2])

		ok, err := proof.Verify()
		require.NoError(t, err)
		assert.True(t, ok, "proof %q should verify", payload.ProofOfTask)
	}

	t.Run("Should fail verification after tampering", func(t *testing.T) {
		proof, err := NewOraclePayload("2000.00", 0).Sign(s)
		require.NoError(t, err)

		tampered := *proof
		tampered.ProofOfTask = "2100.00"
		ok, err := tampered.Verify()
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Should copy the oracle marker", func(t *testing.T) {
		payload := NewOraclePayload("2000.00", 0)
		payload.Result[0] = 'j'
		assert.Equal(t, []byte("hello"), OracleResultMarker)
		assert.Equal(t, "0x68656c6c6f", (&TaskProof{Result: OracleResultMarker}).ResultHex())
	})
}
