package signer

import (
	"encoding/json"
	"fmt"

	"github.com/ckb-pop/popcli/internal/chain"
)

// The browser signing toolkit speaks camelCase transaction JSON; the chain
// RPC speaks snake_case. These mirrors translate between the two at the
// signer boundary so neither side leaks its convention to the other.

type toolkitOutPoint struct {
	TxHash string `json:"txHash"`
	Index  string `json:"index"`
}

type toolkitCellDep struct {
	OutPoint toolkitOutPoint `json:"outPoint"`
	DepType  string          `json:"depType"`
}

type toolkitInput struct {
	Since          string          `json:"since"`
	PreviousOutput toolkitOutPoint `json:"previousOutput"`
}

type toolkitScript struct {
	CodeHash string `json:"codeHash"`
	HashType string `json:"hashType"`
	Args     string `json:"args"`
}

type toolkitOutput struct {
	Capacity string         `json:"capacity"`
	Lock     toolkitScript  `json:"lock"`
	Type     *toolkitScript `json:"type,omitempty"`
}

type toolkitTransaction struct {
	Version     string           `json:"version"`
	CellDeps    []toolkitCellDep `json:"cellDeps"`
	HeaderDeps  []string         `json:"headerDeps"`
	Inputs      []toolkitInput   `json:"inputs"`
	Outputs     []toolkitOutput  `json:"outputs"`
	OutputsData []string         `json:"outputsData"`
	Witnesses   []string         `json:"witnesses"`
}

// ToToolkitTx renders a chain transaction in the toolkit's convention.
func ToToolkitTx(tx *chain.Transaction) (json.RawMessage, error) {
	out := toolkitTransaction{
		Version:     tx.Version,
		CellDeps:    make([]toolkitCellDep, 0, len(tx.CellDeps)),
		HeaderDeps:  emptyIfNil(tx.HeaderDeps),
		Inputs:      make([]toolkitInput, 0, len(tx.Inputs)),
		Outputs:     make([]toolkitOutput, 0, len(tx.Outputs)),
		OutputsData: emptyIfNil(tx.OutputsData),
		Witnesses:   emptyIfNil(tx.Witnesses),
	}
	for _, dep := range tx.CellDeps {
		out.CellDeps = append(out.CellDeps, toolkitCellDep{
			OutPoint: toolkitOutPoint(dep.OutPoint),
			DepType:  dep.DepType,
		})
	}
	for _, in := range tx.Inputs {
		out.Inputs = append(out.Inputs, toolkitInput{
			Since:          in.Since,
			PreviousOutput: toolkitOutPoint(in.PreviousOutput),
		})
	}
	for _, o := range tx.Outputs {
		converted := toolkitOutput{
			Capacity: o.Capacity,
			Lock:     toolkitScript(o.Lock),
		}
		if o.Type != nil {
			t := toolkitScript(*o.Type)
			converted.Type = &t
		}
		out.Outputs = append(out.Outputs, converted)
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode toolkit transaction: %w", err)
	}
	return raw, nil
}

// FromToolkitTx parses a toolkit-convention signed transaction back into the
// chain RPC convention.
func FromToolkitTx(raw json.RawMessage) (*chain.Transaction, error) {
	var in toolkitTransaction
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode toolkit transaction: %w", err)
	}

	tx := &chain.Transaction{
		Version:     in.Version,
		CellDeps:    make([]chain.CellDep, 0, len(in.CellDeps)),
		HeaderDeps:  emptyIfNil(in.HeaderDeps),
		Inputs:      make([]chain.CellInput, 0, len(in.Inputs)),
		Outputs:     make([]chain.CellOutput, 0, len(in.Outputs)),
		OutputsData: emptyIfNil(in.OutputsData),
		Witnesses:   emptyIfNil(in.Witnesses),
	}
	if tx.Version == "" {
		tx.Version = "0x0"
	}
	for _, dep := range in.CellDeps {
		tx.CellDeps = append(tx.CellDeps, chain.CellDep{
			OutPoint: chain.OutPoint(dep.OutPoint),
			DepType:  dep.DepType,
		})
	}
	for _, i := range in.Inputs {
		tx.Inputs = append(tx.Inputs, chain.CellInput{
			Since:          i.Since,
			PreviousOutput: chain.OutPoint(i.PreviousOutput),
		})
	}
	for _, o := range in.Outputs {
		converted := chain.CellOutput{
			Capacity: o.Capacity,
			Lock:     chain.Script(o.Lock),
		}
		if o.Type != nil {
			t := chain.Script(*o.Type)
			converted.Type = &t
		}
		tx.Outputs = append(tx.Outputs, converted)
	}
	return tx, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
