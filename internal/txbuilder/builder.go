// Package txbuilder constructs the unsigned protocol transactions. It only
// produces the output side plus the required cell dep; inputs, capacity
// balancing, and witnesses are completed by the signing wallet.
package txbuilder

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ckb-pop/popcli/internal/chain"
	"github.com/ckb-pop/popcli/internal/contracts"
	"github.com/ckb-pop/popcli/internal/popcrypto"
)

// shannonsPerByte is the minimum capacity cost of one occupied byte.
const shannonsPerByte = 100_000_000

// BuildEventAnchor builds the unsigned transaction creating an event-anchor
// cell keyed to (event_id, creator_address).
func BuildEventAnchor(contract contracts.Info, eventID, creatorAddress string, creatorLock chain.Script, metadataHash string) (*chain.Transaction, error) {
	args := popcrypto.TypeScriptArgs(eventID, creatorAddress)
	cellData := popcrypto.AnchorCellData(eventID, creatorAddress, metadataHash)
	return buildSingleOutput(contract, args, creatorLock, cellData)
}

// BuildBadgeMint builds the unsigned transaction creating a badge cell keyed
// to (event_id, recipient_address) and locked to the recipient.
func BuildBadgeMint(contract contracts.Info, eventID, recipientAddress string, recipientLock chain.Script, issuerAddress, proofHash string) (*chain.Transaction, error) {
	args := popcrypto.TypeScriptArgs(eventID, recipientAddress)
	cellData := popcrypto.BadgeCellData(eventID, issuerAddress, proofHash)
	return buildSingleOutput(contract, args, recipientLock, cellData)
}

func buildSingleOutput(contract contracts.Info, args []byte, lock chain.Script, cellData []byte) (*chain.Transaction, error) {
	typeScript := chain.Script{
		CodeHash: contract.CodeHash,
		HashType: "type",
		Args:     "0x" + hex.EncodeToString(args),
	}

	capacity, err := minCapacity(lock, typeScript, len(cellData))
	if err != nil {
		return nil, err
	}

	output := chain.CellOutput{
		Capacity: fmt.Sprintf("0x%x", capacity),
		Lock:     lock,
		Type:     &typeScript,
	}

	return &chain.Transaction{
		Version: "0x0",
		CellDeps: []chain.CellDep{{
			OutPoint: chain.OutPoint{
				TxHash: contract.DeployTxHash,
				Index:  fmt.Sprintf("0x%x", contract.DeployOutIndex),
			},
			DepType: "code",
		}},
		HeaderDeps:  []string{},
		Inputs:      []chain.CellInput{},
		Outputs:     []chain.CellOutput{output},
		OutputsData: []string{"0x" + hex.EncodeToString(cellData)},
		Witnesses:   []string{},
	}, nil
}

// minCapacity computes the minimum capacity in shannons for a cell: the
// 8-byte capacity field itself, the occupied bytes of both scripts, and the
// output data, each costing one CKB per byte.
func minCapacity(lock, typeScript chain.Script, dataLen int) (uint64, error) {
	lockBytes, err := scriptOccupied(lock)
	if err != nil {
		return 0, fmt.Errorf("lock script: %w", err)
	}
	typeBytes, err := scriptOccupied(typeScript)
	if err != nil {
		return 0, fmt.Errorf("type script: %w", err)
	}
	occupied := uint64(8) + lockBytes + typeBytes + uint64(dataLen)
	return occupied * shannonsPerByte, nil
}

// scriptOccupied is the serialized size of a script: 32-byte code hash,
// 1-byte hash type, and the raw args.
func scriptOccupied(s chain.Script) (uint64, error) {
	args, err := hex.DecodeString(strings.TrimPrefix(s.Args, "0x"))
	if err != nil {
		return 0, fmt.Errorf("invalid args %q: %w", s.Args, err)
	}
	return 32 + 1 + uint64(len(args)), nil
}
