package txbuilder

import (
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/ckb-pop/popcli/internal/chain"
	"github.com/ckb-pop/popcli/internal/contracts"
	"github.com/ckb-pop/popcli/internal/popcrypto"
)

func dummyLock() chain.Script {
	return chain.Script{
		CodeHash: "0x" + strings.Repeat("00", 32),
		HashType: "data",
		Args:     "0x" + strings.Repeat("00", 20),
	}
}

func testnetContracts(t *testing.T) contracts.Set {
	t.Helper()
	s, err := contracts.ForNetwork("testnet")
	if err != nil {
		t.Fatalf("testnet contracts: %v", err)
	}
	return s
}

func TestBuildEventAnchor_Shape(t *testing.T) {
	c := testnetContracts(t)
	tx, err := BuildEventAnchor(c.Anchor, "test_event", "ckt1qtest", dummyLock(), "")
	if err != nil {
		t.Fatalf("build anchor: %v", err)
	}

	if len(tx.Outputs) != 1 || len(tx.OutputsData) != 1 {
		t.Fatalf("expected exactly one output, got %d/%d", len(tx.Outputs), len(tx.OutputsData))
	}
	if len(tx.CellDeps) != 1 {
		t.Fatalf("expected one cell dep, got %d", len(tx.CellDeps))
	}
	if tx.CellDeps[0].OutPoint.TxHash != c.Anchor.DeployTxHash {
		t.Fatalf("cell dep should reference the anchor deployment")
	}
	if tx.Outputs[0].Type == nil {
		t.Fatalf("output should carry the anchor type script")
	}
	if len(tx.Inputs) != 0 || len(tx.Witnesses) != 0 {
		t.Fatalf("unsigned tx should have no inputs or witnesses yet")
	}
}

func TestBuildBadgeMint_CellData(t *testing.T) {
	c := testnetContracts(t)
	tx, err := BuildBadgeMint(c.Badge, "test_event", "ckt1qrecipient", dummyLock(), "ckt1qissuer", "")
	if err != nil {
		t.Fatalf("build badge mint: %v", err)
	}

	data, err := hex.DecodeString(strings.TrimPrefix(tx.OutputsData[0], "0x"))
	if err != nil {
		t.Fatalf("output data should be hex: %v", err)
	}
	if len(data) != 34 {
		t.Fatalf("badge cell data should be 34 bytes, got %d", len(data))
	}
	if data[0] != 0x01 {
		t.Fatalf("version byte should be 0x01")
	}
}

func TestTypeScriptArgsMatchCryptoModule(t *testing.T) {
	c := testnetContracts(t)
	tx, err := BuildEventAnchor(c.Anchor, "myevent", "myaddr", dummyLock(), "")
	if err != nil {
		t.Fatalf("build anchor: %v", err)
	}

	expected := "0x" + hex.EncodeToString(popcrypto.TypeScriptArgs("myevent", "myaddr"))
	if tx.Outputs[0].Type.Args != expected {
		t.Fatalf("type args mismatch:\n got %s\nwant %s", tx.Outputs[0].Type.Args, expected)
	}
}

func TestMinCapacityCoversOccupiedBytes(t *testing.T) {
	c := testnetContracts(t)
	tx, err := BuildBadgeMint(c.Badge, "ev", "to", dummyLock(), "issuer", "")
	if err != nil {
		t.Fatalf("build badge mint: %v", err)
	}

	// capacity field (8) + lock (33+20) + type (33+64) + data (34), one CKB
	// per byte.
	const wantBytes = 8 + 53 + 97 + 34
	want := fmt.Sprintf("0x%x", uint64(wantBytes)*100_000_000)

	if tx.Outputs[0].Capacity != want {
		t.Fatalf("capacity mismatch: got %s want %s", tx.Outputs[0].Capacity, want)
	}
}
