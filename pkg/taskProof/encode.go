package taskProof

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// taskMessageArguments is the parameter list the aggregator decodes when it
// re-derives the signed digest. Order and types must not change:
//
//	abi.encode(string proofOfTask, bytes data, address performer, int32 taskDefinitionId)
var taskMessageArguments = mustTaskMessageArguments()

func mustTaskMessageArguments() abi.Arguments {
	args, err := newTaskMessageArguments()
	if err != nil {
		panic(err)
	}
	return args
}

func newTaskMessageArguments() (abi.Arguments, error) {
	stringType, err := abi.NewType("string", "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create string type: %w", err)
	}
	bytesType, err := abi.NewType("bytes", "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create bytes type: %w", err)
	}
	addressType, err := abi.NewType("address", "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create address type: %w", err)
	}
	int32Type, err := abi.NewType("int32", "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create int32 type: %w", err)
	}
	return abi.Arguments{
		{Name: "proofOfTask", Type: stringType},
		{Name: "data", Type: bytesType},
		{Name: "performer", Type: addressType},
		{Name: "taskDefinitionId", Type: int32Type},
	}, nil
}

// EncodeTaskMessage ABI encodes the four signed fields as a parameter list.
func EncodeTaskMessage(
	proofOfTask string,
	result []byte,
	performer common.Address,
	taskDefinitionId int32,
) ([]byte, error) {
	if result == nil {
		result = []byte{}
	}
	encoded, err := taskMessageArguments.Pack(proofOfTask, result, performer, taskDefinitionId)
	if err != nil {
		return nil, fmt.Errorf("failed to ABI encode task message: %w", err)
	}
	return encoded, nil
}

// HashTaskMessage returns keccak256 of EncodeTaskMessage.
func HashTaskMessage(
	proofOfTask string,
	result []byte,
	performer common.Address,
	taskDefinitionId int32,
) (common.Hash, error) {
	encoded, err := EncodeTaskMessage(proofOfTask, result, performer, taskDefinitionId)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}
