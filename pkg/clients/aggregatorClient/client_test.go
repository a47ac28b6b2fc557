package aggregatorClient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jinmel/avs-examples/pkg/signer/inMemorySigner"
	"github.com/jinmel/avs-examples/pkg/taskProof"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testPrivateKey = "3dd7c381f27775d9945f0fcf5bb914484c4d01681824603c71dd762259f43214"

func newTestProof(t *testing.T) *taskProof.TaskProof {
	s, err := inMemorySigner.NewInMemorySigner(testPrivateKey)
	require.NoError(t, err)
	proof, err := taskProof.NewOraclePayload("2000.00", 0).Sign(s)
	require.NoError(t, err)
	return proof
}

func newTestClient(t *testing.T, url string) *Client {
	client, err := NewClient(&Config{Url: url, Timeout: 5 * time.Second}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	l := zaptest.NewLogger(t)

	t.Run("with default config", func(t *testing.T) {
		client, err := NewClient(DefaultConfig(), l)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8545", client.config.Url)
		assert.Equal(t, 30*time.Second, client.config.Timeout)
	})

	t.Run("with nil config", func(t *testing.T) {
		client, err := NewClient(nil, l)
		assert.Nil(t, client)
		assert.ErrorContains(t, err, "cfg cannot be nil")
	})

	t.Run("with nil logger", func(t *testing.T) {
		client, err := NewClient(DefaultConfig(), nil)
		assert.Nil(t, client)
		assert.ErrorContains(t, err, "logger cannot be nil")
	})

	t.Run("with empty url", func(t *testing.T) {
		client, err := NewClient(&Config{}, l)
		assert.Nil(t, client)
		assert.Error(t, err)
	})
}

func TestClient_SendTask(t *testing.T) {
	t.Run("sends the five positional params", func(t *testing.T) {
		proof := newTestProof(t)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var req struct {
				Jsonrpc string            `json:"jsonrpc"`
				Method  string            `json:"method"`
				Params  []json.RawMessage `json:"params"`
				ID      int64             `json:"id"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "2.0", req.Jsonrpc)
			assert.Equal(t, "sendTask", req.Method)
			require.Len(t, req.Params, 5)

			assert.JSONEq(t, `"2000.00"`, string(req.Params[0]))
			assert.JSONEq(t, `"0x68656c6c6f"`, string(req.Params[1]))
			assert.JSONEq(t, `0`, string(req.Params[2]))
			assert.JSONEq(t, `"0x6B58f6762689DF33fe8fa3FC40Fb5a3089D3a8cc"`, string(req.Params[3]))
			assert.JSONEq(t, `"`+proof.SignatureHex()+`"`, string(req.Params[4]))

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"jsonrpc": "2.0",
				"result":  true,
				"id":      req.ID,
			})
		}))
		defer server.Close()

		result, err := newTestClient(t, server.URL).SendTask(context.Background(), proof)
		require.NoError(t, err)
		assert.JSONEq(t, "true", string(result))
	})

	t.Run("returns the aggregator error object", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":1,"message":"m"},"id":1}`))
		}))
		defer server.Close()

		result, err := newTestClient(t, server.URL).SendTask(context.Background(), newTestProof(t))
		assert.Nil(t, result)
		var rpcErr *RpcError
		require.True(t, errors.As(err, &rpcErr))
		assert.Equal(t, int64(1), rpcErr.Code)
		assert.Equal(t, "m", rpcErr.Message)
		assert.Contains(t, err.Error(), "RPC Error 1: m")
	})

	t.Run("rejects a response with neither result nor error", func(t *testing.T) {
		for _, body := range []string{`{}`, `{"jsonrpc":"2.0","result":null,"id":1}`, `not json`} {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))

			_, err := newTestClient(t, server.URL).SendTask(context.Background(), newTestProof(t))
			assert.True(t, errors.Is(err, ErrUnknownResponse), body)
			server.Close()
		}
	})

	t.Run("maps an http error status without an envelope", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL).SendTask(context.Background(), newTestProof(t))
		var rpcErr *RpcError
		require.True(t, errors.As(err, &rpcErr))
		assert.Equal(t, int64(http.StatusInternalServerError), rpcErr.Code)
		assert.Contains(t, rpcErr.Message, "boom")
	})

	t.Run("fails when the aggregator is unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		_, err := newTestClient(t, url).SendTask(context.Background(), newTestProof(t))
		assert.Error(t, err)
		var rpcErr *RpcError
		assert.False(t, errors.As(err, &rpcErr))
	})

	t.Run("rejects a nil proof", func(t *testing.T) {
		_, err := newTestClient(t, "http://localhost:1").SendTask(context.Background(), nil)
		assert.Error(t, err)
	})
}

func TestClient_RequestIDIncrements(t *testing.T) {
	var ids []int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req JSONRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		ids = append(ids, req.ID)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","result":"ok","id":1}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	proof := newTestProof(t)
	for i := 0; i < 3; i++ {
		_, err := client.SendTask(context.Background(), proof)
		require.NoError(t, err)
	}
	assert.Equal(t, []int64{1, 2, 3}, ids)
}
