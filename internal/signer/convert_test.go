package signer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ckb-pop/popcli/internal/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTx() *chain.Transaction {
	typ := &chain.Script{
		CodeHash: "0x" + strings.Repeat("22", 32),
		HashType: "type",
		Args:     "0xabcd",
	}
	return &chain.Transaction{
		Version: "0x0",
		CellDeps: []chain.CellDep{{
			OutPoint: chain.OutPoint{TxHash: "0x" + strings.Repeat("11", 32), Index: "0x0"},
			DepType:  "code",
		}},
		HeaderDeps: []string{},
		Inputs: []chain.CellInput{{
			Since:          "0x0",
			PreviousOutput: chain.OutPoint{TxHash: "0x" + strings.Repeat("33", 32), Index: "0x1"},
		}},
		Outputs: []chain.CellOutput{{
			Capacity: "0x1234",
			Lock: chain.Script{
				CodeHash: "0x" + strings.Repeat("44", 32),
				HashType: "type",
				Args:     "0x00",
			},
			Type: typ,
		}},
		OutputsData: []string{"0x0101"},
		Witnesses:   []string{"0x"},
	}
}

func TestToToolkitTx_FieldConvention(t *testing.T) {
	raw, err := ToToolkitTx(sampleTx())
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	for _, key := range []string{"cellDeps", "headerDeps", "outputsData", "witnesses"} {
		assert.Contains(t, decoded, key)
	}
	for _, key := range []string{"cell_deps", "header_deps", "outputs_data"} {
		assert.NotContains(t, decoded, key)
	}

	s := string(raw)
	assert.Contains(t, s, `"codeHash"`)
	assert.Contains(t, s, `"hashType"`)
	assert.Contains(t, s, `"previousOutput"`)
	assert.Contains(t, s, `"txHash"`)
	assert.NotContains(t, s, `"code_hash"`)
}

func TestToolkitTx_RoundTrip(t *testing.T) {
	tx := sampleTx()

	raw, err := ToToolkitTx(tx)
	require.NoError(t, err)
	back, err := FromToolkitTx(raw)
	require.NoError(t, err)

	assert.Equal(t, tx, back)
}

func TestFromToolkitTx_DefaultsVersion(t *testing.T) {
	back, err := FromToolkitTx(json.RawMessage(`{"outputs":[],"witnesses":["0xff"]}`))
	require.NoError(t, err)
	assert.Equal(t, "0x0", back.Version)
	assert.Equal(t, []string{"0xff"}, back.Witnesses)
	assert.NotNil(t, back.OutputsData)
}

func TestFromToolkitTx_Malformed(t *testing.T) {
	_, err := FromToolkitTx(json.RawMessage(`{"outputs":`))
	assert.Error(t, err)
}
