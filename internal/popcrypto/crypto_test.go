package popcrypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestComputeEventID_Deterministic(t *testing.T) {
	a := ComputeEventID("ckt1qtest", 1700000000, "nonce1")
	b := ComputeEventID("ckt1qtest", 1700000000, "nonce1")
	if a != b {
		t.Fatalf("event ID not deterministic: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("event ID should be 64 hex chars, got %d", len(a))
	}
	if _, err := hex.DecodeString(a); err != nil {
		t.Fatalf("event ID should be valid hex: %v", err)
	}
}

func TestComputeEventID_ChangesWithInputs(t *testing.T) {
	a := ComputeEventID("ckt1qtest", 1700000000, "nonce1")
	b := ComputeEventID("ckt1qtest", 1700000001, "nonce1")
	c := ComputeEventID("ckt1qtest", 1700000000, "nonce2")
	d := ComputeEventID("ckt1qother", 1700000000, "nonce1")
	if a == b || a == c || a == d {
		t.Fatalf("event ID should change when any input changes")
	}
}

func TestTypeScriptArgs_Layout(t *testing.T) {
	args := TypeScriptArgs("event123", "address456")
	if len(args) != 64 {
		t.Fatalf("expected 64-byte args, got %d", len(args))
	}
	// The two halves are independent hashes of the two inputs.
	again := TypeScriptArgs("event123", "other")
	if string(args[:32]) != string(again[:32]) {
		t.Fatalf("first half should depend only on the primary input")
	}
	if string(args[32:]) == string(again[32:]) {
		t.Fatalf("second half should change with the secondary input")
	}
}

func TestBadgeCellData_Layout(t *testing.T) {
	data := BadgeCellData("evt1", "ckt1qissuer", "")
	if len(data) != 34 {
		t.Fatalf("expected 34-byte cell data, got %d", len(data))
	}
	if data[0] != 0x01 {
		t.Fatalf("version byte should be 0x01, got %#x", data[0])
	}
	if data[1] != 0x01 {
		t.Fatalf("flags byte should be 0x01, got %#x", data[1])
	}

	withProof := BadgeCellData("evt1", "ckt1qissuer", "deadbeef")
	if string(withProof) == string(data) {
		t.Fatalf("content hash should change when a proof hash is present")
	}
}

func TestBadgeCellData_CanonicalContentHash(t *testing.T) {
	// Content is hashed as compact JSON with sorted keys, the encoding
	// existing on-chain badges were minted with.
	canonical := `{"event_id":"evt1","issuer":"ckt1qissuer","proof_hash":"deadbeef","protocol":"ckb-pop","version":1}`
	want := sha256.Sum256([]byte(canonical))

	data := BadgeCellData("evt1", "ckt1qissuer", "deadbeef")
	if !bytes.Equal(data[2:], want[:]) {
		t.Fatalf("content hash does not match canonical encoding:\n got %x\nwant %x", data[2:], want)
	}

	canonicalNoProof := `{"event_id":"evt1","issuer":"ckt1qissuer","protocol":"ckb-pop","version":1}`
	wantNoProof := sha256.Sum256([]byte(canonicalNoProof))
	dataNoProof := BadgeCellData("evt1", "ckt1qissuer", "")
	if !bytes.Equal(dataNoProof[2:], wantNoProof[:]) {
		t.Fatalf("empty proof hash must be omitted from the hashed content")
	}
}

func TestAnchorCellData_OmitsEmptyMetadata(t *testing.T) {
	data := AnchorCellData("evt1", "ckt1qcreator", "")
	if string(data) != `{"event_id":"evt1","creator_address":"ckt1qcreator"}` {
		t.Fatalf("unexpected anchor cell data: %s", data)
	}
}

func TestAttendanceMessageFormat(t *testing.T) {
	msg := AttendanceMessage("EVT001", 1700000000, "ckt1qaddr")
	if msg != "CKB-PoP|EVT001|1700000000|ckt1qaddr" {
		t.Fatalf("unexpected attendance message: %s", msg)
	}
}

func TestCreationMessageFormat(t *testing.T) {
	msg := CreationMessage("EVT001", 1700000000, "ckt1qaddr")
	if msg != "CKB-PoP-Create|EVT001|1700000000|ckt1qaddr" {
		t.Fatalf("unexpected creation message: %s", msg)
	}
}

func TestWindowMessage_OpenEnded(t *testing.T) {
	msg := WindowMessage("EVT001", 1700000000, 0)
	if msg != "CKB-PoP-Window|EVT001|1700000000|open" {
		t.Fatalf("unexpected window message: %s", msg)
	}
}

func TestWindowMessage_Bounded(t *testing.T) {
	msg := WindowMessage("EVT001", 1700000000, 1700003600)
	if msg != "CKB-PoP-Window|EVT001|1700000000|1700003600" {
		t.Fatalf("unexpected window message: %s", msg)
	}
}
