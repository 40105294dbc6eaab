package chain

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// JSON-RPC envelope
// =============================================================================

// RPCRequest is a JSON-RPC 2.0 request.
type RPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

// RPCResponse is a JSON-RPC 2.0 response.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
	ID      int             `json:"id"`
}

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// =============================================================================
// Transaction structures (chain RPC field convention: snake_case, hex values)
// =============================================================================

// Script identifies an on-chain script: code hash, hash type, and args.
type Script struct {
	CodeHash string `json:"code_hash"`
	HashType string `json:"hash_type"`
	Args     string `json:"args"`
}

// OutPoint references an output of a prior transaction.
type OutPoint struct {
	TxHash string `json:"tx_hash"`
	Index  string `json:"index"`
}

// CellDep references a live cell the transaction depends on, typically the
// deployed script binary.
type CellDep struct {
	OutPoint OutPoint `json:"out_point"`
	DepType  string   `json:"dep_type"`
}

// CellInput consumes a live cell.
type CellInput struct {
	Since          string   `json:"since"`
	PreviousOutput OutPoint `json:"previous_output"`
}

// CellOutput creates a cell with a capacity, a lock script, and an optional
// type script.
type CellOutput struct {
	Capacity string  `json:"capacity"`
	Lock     Script  `json:"lock"`
	Type     *Script `json:"type,omitempty"`
}

// Transaction is the wire-level transaction structure. An unsigned
// transaction has empty witnesses; signing populates them.
type Transaction struct {
	Version     string       `json:"version"`
	CellDeps    []CellDep    `json:"cell_deps"`
	HeaderDeps  []string     `json:"header_deps"`
	Inputs      []CellInput  `json:"inputs"`
	Outputs     []CellOutput `json:"outputs"`
	OutputsData []string     `json:"outputs_data"`
	Witnesses   []string     `json:"witnesses"`
}

// =============================================================================
// Transaction status
// =============================================================================

// Status is the ledger's verdict on a broadcast transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProposed  Status = "proposed"
	StatusCommitted Status = "committed"
	StatusRejected  Status = "rejected"
	StatusUnknown   Status = "unknown"
)

// TxStatus is the status block of a get_transaction response. The RPC sends
// null for block_hash and reason until they apply; null decodes to "".
type TxStatus struct {
	Status    Status `json:"status"`
	BlockHash string `json:"block_hash"`
	Reason    string `json:"reason"`
}

// TxWithStatus is a get_transaction response.
type TxWithStatus struct {
	Transaction json.RawMessage `json:"transaction"`
	TxStatus    TxStatus        `json:"tx_status"`
}

// =============================================================================
// Indexer structures
// =============================================================================

// SearchKey is the indexer get_cells query.
type SearchKey struct {
	Script           Script `json:"script"`
	ScriptType       string `json:"script_type"`
	ScriptSearchMode string `json:"script_search_mode"`
	WithData         bool   `json:"with_data"`
}

// IndexerCell is one live cell returned by get_cells.
type IndexerCell struct {
	Output      CellOutput `json:"output"`
	OutPoint    OutPoint   `json:"out_point"`
	OutputData  string     `json:"output_data"`
	BlockNumber string     `json:"block_number"`
	TxIndex     string     `json:"tx_index"`
}

// CellPage is one page of a paginated get_cells response.
type CellPage struct {
	Objects    []IndexerCell `json:"objects"`
	LastCursor string        `json:"last_cursor"`
}
