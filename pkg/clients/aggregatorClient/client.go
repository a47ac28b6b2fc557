// Package aggregatorClient submits signed task proofs to an aggregator over
// JSON-RPC 2.0.
//
// Every call is a single attempt. Failures are returned to the caller as-is;
// the aggregator's behavior under duplicate submissions is not defined, so the
// client never retries.
package aggregatorClient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jinmel/avs-examples/pkg/taskProof"
	"go.uber.org/zap"
)

// IAggregatorClient is implemented by Client and by test doubles.
type IAggregatorClient interface {
	SendTask(ctx context.Context, proof *taskProof.TaskProof) (json.RawMessage, error)
}

type Config struct {
	// Url is the aggregator JSON-RPC endpoint
	Url string
	// Timeout of zero leaves the transport default in place
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Url:     "http://localhost:8545",
		Timeout: 30 * time.Second,
	}
}

type Client struct {
	logger     *zap.Logger
	httpClient *http.Client
	config     *Config
	requestID  int64
}

func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.Url == "" {
		return nil, fmt.Errorf("aggregator url is required")
	}

	logger.Sugar().Debugw("Creating new aggregator client",
		zap.String("url", cfg.Url),
		zap.Duration("timeout", cfg.Timeout),
	)

	return &Client{
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
	}, nil
}

// SetHttpClient replaces the underlying HTTP client.
func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

// SendTask calls sendTask with
// [proofOfTask, result, taskDefinitionId, performerAddress, signature].
func (c *Client) SendTask(ctx context.Context, proof *taskProof.TaskProof) (json.RawMessage, error) {
	if proof == nil {
		return nil, fmt.Errorf("proof cannot be nil")
	}
	params := []interface{}{
		proof.ProofOfTask,
		proof.ResultHex(),
		proof.TaskDefinitionId,
		proof.PerformerAddress.Hex(),
		proof.SignatureHex(),
	}

	c.logger.Sugar().Infow("Sending task to aggregator",
		zap.String("kind", string(proof.Kind)),
		zap.Int32("taskDefinitionId", proof.TaskDefinitionId),
		zap.String("performer", proof.PerformerAddress.Hex()),
		zap.String("messageHash", proof.MessageHash.Hex()),
	)

	result, err := c.makeJSONRPCRequest(ctx, MethodSendTask, params)
	if err != nil {
		return nil, fmt.Errorf("failed to send task: %w", err)
	}
	c.logger.Sugar().Infow("Task accepted by aggregator",
		zap.Int32("taskDefinitionId", proof.TaskDefinitionId),
		zap.String("result", string(result)),
	)
	return result, nil
}

func (c *Client) makeJSONRPCRequest(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	id := atomic.AddInt64(&c.requestID, 1)

	request := JSONRPCRequest{
		Jsonrpc: jsonRpcVersion,
		Method:  method,
		Params:  params,
		ID:      id,
	}

	requestData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON-RPC request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Url, bytes.NewReader(requestData))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Sugar().Debugw("Making aggregator JSON-RPC request",
		zap.String("method", method),
		zap.Int64("id", id),
		zap.Any("params", params),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("JSON-RPC request failed: %w", err)
	}
	defer resp.Body.Close()

	responseData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Sugar().Debugw("Aggregator JSON-RPC response received",
		zap.Int("status_code", resp.StatusCode),
		zap.String("response", string(responseData)),
	)

	return interpretResponse(resp.StatusCode, responseData)
}

// interpretResponse maps a raw HTTP response onto a result or an error:
// result present wins, then an error object, then the HTTP status.
func interpretResponse(statusCode int, body []byte) (json.RawMessage, error) {
	var rpcResponse JSONRPCResponse
	decodeErr := json.Unmarshal(body, &rpcResponse)

	if decodeErr == nil {
		if rpcResponse.hasResult() {
			return rpcResponse.Result, nil
		}
		if rpcResponse.Error != nil {
			return nil, &RpcError{
				Code:    rpcResponse.Error.Code,
				Message: rpcResponse.Error.Message,
			}
		}
	}

	if statusCode >= http.StatusBadRequest {
		return nil, &RpcError{
			Code:    int64(statusCode),
			Message: fmt.Sprintf("HTTP error %d: %s", statusCode, string(body)),
		}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownResponse, decodeErr)
	}
	return nil, ErrUnknownResponse
}

var _ IAggregatorClient = (*Client)(nil)
