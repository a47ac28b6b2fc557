package taskProof

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/jinmel/avs-examples/pkg/signer"
)

// OracleResultMarker is the fixed result payload attached to price proofs.
var OracleResultMarker = []byte("hello")

type TaskKind string

const (
	TaskKindOracle TaskKind = "oracle"
	TaskKindAgent  TaskKind = "agent"
)

// TaskPayload is a task result that has not been attested yet.
type TaskPayload struct {
	Kind             TaskKind
	TaskDefinitionId int32
	ProofOfTask      string
	Result           []byte
}

// TaskProof is a signed TaskPayload. It is never mutated after Sign.
type TaskProof struct {
	Kind             TaskKind
	TaskDefinitionId int32
	ProofOfTask      string
	Result           []byte
	PerformerAddress common.Address
	MessageHash      common.Hash
	Signature        []byte
}

// AgentStrategyContext is the caller supplied basis for an agent strategy.
type AgentStrategyContext struct {
	Prices    string
	Portfolio string
	ModelName string
}

// agentProofOfTask keeps its fields in lexical key order, the order a
// map-backed JSON encoder emits them in.
type agentProofOfTask struct {
	AgentResponse string `json:"agent_response"`
	ModelName     string `json:"model_name"`
	Portfolio     string `json:"portfolio"`
	Prices        string `json:"prices"`
}

func NewOraclePayload(price string, taskDefinitionId int32) *TaskPayload {
	result := make([]byte, len(OracleResultMarker))
	copy(result, OracleResultMarker)
	return &TaskPayload{
		Kind:             TaskKindOracle,
		TaskDefinitionId: taskDefinitionId,
		ProofOfTask:      price,
		Result:           result,
	}
}

func NewAgentPayload(strategyCtx AgentStrategyContext, agentResponse string, taskDefinitionId int32) (*TaskPayload, error) {
	proofOfTask, err := EncodeAgentProofOfTask(strategyCtx, agentResponse)
	if err != nil {
		return nil, err
	}
	return &TaskPayload{
		Kind:             TaskKindAgent,
		TaskDefinitionId: taskDefinitionId,
		ProofOfTask:      proofOfTask,
		Result:           []byte(agentResponse),
	}, nil
}

func EncodeAgentProofOfTask(strategyCtx AgentStrategyContext, agentResponse string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&agentProofOfTask{
		AgentResponse: agentResponse,
		ModelName:     strategyCtx.ModelName,
		Portfolio:     strategyCtx.Portfolio,
		Prices:        strategyCtx.Prices,
	}); err != nil {
		return "", fmt.Errorf("failed to encode agent proof of task: %w", err)
	}
	return string(unescapeLineSeparators(bytes.TrimRight(buf.Bytes(), "\n"))), nil
}

// unescapeLineSeparators writes U+2028 and U+2029 as raw characters.
// encoding/json always escapes them, other JSON encoders usually do not.
func unescapeLineSeparators(encoded []byte) []byte {
	if !bytes.Contains(encoded, []byte(`\u202`)) {
		return encoded
	}
	out := make([]byte, 0, len(encoded))
	for i := 0; i < len(encoded); i++ {
		if encoded[i] != '\\' || i+1 >= len(encoded) {
			out = append(out, encoded[i])
			continue
		}
		if i+5 < len(encoded) && encoded[i+1] == 'u' {
			switch string(encoded[i+2 : i+6]) {
			case "2028":
				out = append(out, "\u2028"...)
				i += 5
				continue
			case "2029":
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		// keep the escape pair intact so an escaped backslash is never
		// mistaken for the start of a new escape
		out = append(out, encoded[i], encoded[i+1])
		i++
	}
	return out
}

// ParseAgentProofOfTask reports whether proofOfTask is an agent proof and, if
// so, returns its strategy context and response.
func ParseAgentProofOfTask(proofOfTask string) (*AgentStrategyContext, string, bool) {
	trimmed := bytes.TrimSpace([]byte(proofOfTask))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, "", false
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, "", false
	}
	for _, key := range []string{"agent_response", "model_name", "portfolio", "prices"} {
		if _, ok := raw[key]; !ok {
			return nil, "", false
		}
	}
	var p agentProofOfTask
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, "", false
	}
	return &AgentStrategyContext{
		Prices:    p.Prices,
		Portfolio: p.Portfolio,
		ModelName: p.ModelName,
	}, p.AgentResponse, true
}

// Hash returns the digest the performer signs for this payload.
func (tp *TaskPayload) Hash(performer common.Address) (common.Hash, error) {
	return HashTaskMessage(tp.ProofOfTask, tp.Result, performer, tp.TaskDefinitionId)
}

func (tp *TaskPayload) Sign(s signer.ISigner) (*TaskProof, error) {
	performer := s.Address()
	hash, err := tp.Hash(performer)
	if err != nil {
		return nil, err
	}
	sig, err := s.SignHash(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to sign task message: %w", err)
	}

	result := make([]byte, len(tp.Result))
	copy(result, tp.Result)
	return &TaskProof{
		Kind:             tp.Kind,
		TaskDefinitionId: tp.TaskDefinitionId,
		ProofOfTask:      tp.ProofOfTask,
		Result:           result,
		PerformerAddress: performer,
		MessageHash:      hash,
		Signature:        sig,
	}, nil
}

func (p *TaskProof) ResultHex() string {
	return hexutil.Encode(p.Result)
}

func (p *TaskProof) SignatureHex() string {
	return hexutil.Encode(p.Signature)
}

// Verify re-derives the digest from the proof fields and checks the signature
// against the performer address.
func (p *TaskProof) Verify() (bool, error) {
	hash, err := HashTaskMessage(p.ProofOfTask, p.Result, p.PerformerAddress, p.TaskDefinitionId)
	if err != nil {
		return false, err
	}
	return signer.VerifyHash(hash, p.Signature, p.PerformerAddress)
}
