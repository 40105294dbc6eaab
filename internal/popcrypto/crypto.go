// Package popcrypto implements the deterministic value constructions of the
// PoP protocol: event identifiers, type-script arguments, cell data layouts,
// and the canonical messages that wallets sign.
package popcrypto

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// =============================================================================
// Event IDs
// =============================================================================

// ComputeEventID derives a deterministic 64-character hex event identifier
// from the creator's address, a unix timestamp, and a random nonce.
func ComputeEventID(creatorAddress string, timestamp int64, nonce string) string {
	h := sha256.New()
	h.Write([]byte(creatorAddress))
	h.Write(le64(timestamp))
	h.Write([]byte(nonce))
	return hex.EncodeToString(h.Sum(nil))
}

// =============================================================================
// Type-script arguments
// =============================================================================

// TypeScriptArgs builds the 64-byte args used by both the badge and the
// event-anchor type scripts: SHA256(primary) || SHA256(secondary).
//
// For anchors the pair is (event_id, creator_address); for badges it is
// (event_id, holder_address). The on-chain scripts key uniqueness off this
// block, so it must match the ledger's convention byte for byte.
func TypeScriptArgs(primary, secondary string) []byte {
	out := make([]byte, 0, 64)
	p := sha256.Sum256([]byte(primary))
	s := sha256.Sum256([]byte(secondary))
	out = append(out, p[:]...)
	out = append(out, s[:]...)
	return out
}

// =============================================================================
// Cell data
// =============================================================================

// BadgeCellData builds the 34-byte binary cell data for a badge output:
// [version: u8 | flags: u8 | content_hash: 32 bytes].
//
// The content hash covers the canonical JSON encoding with keys in sorted
// order, so badges minted by any client hash identically. A map gives
// sorted keys for free under encoding/json.
func BadgeCellData(eventID, issuer, proofHash string) []byte {
	content := map[string]interface{}{
		"protocol": "ckb-pop",
		"version":  1,
		"event_id": eventID,
		"issuer":   issuer,
	}
	if proofHash != "" {
		content["proof_hash"] = proofHash
	}
	raw, _ := json.Marshal(content)
	contentHash := sha256.Sum256(raw)

	data := make([]byte, 0, 34)
	data = append(data, 0x01) // version
	data = append(data, 0x01) // flags: has_metadata
	data = append(data, contentHash[:]...)
	return data
}

type anchorContent struct {
	EventID        string `json:"event_id"`
	CreatorAddress string `json:"creator_address"`
	MetadataHash   string `json:"metadata_hash,omitempty"`
}

// AnchorCellData builds the JSON cell data for an event-anchor output.
func AnchorCellData(eventID, creatorAddress, metadataHash string) []byte {
	raw, _ := json.Marshal(anchorContent{
		EventID:        eventID,
		CreatorAddress: creatorAddress,
		MetadataHash:   metadataHash,
	})
	return raw
}

// =============================================================================
// Signed message formats
// =============================================================================

// AttendanceMessage is the message an attendee signs to prove they captured
// a rotating code for the event at the given code timestamp.
func AttendanceMessage(eventID string, codeTimestamp int64, attendeeAddress string) string {
	return fmt.Sprintf("CKB-PoP|%s|%d|%s", eventID, codeTimestamp, attendeeAddress)
}

// CreationMessage is the message an event creator signs when registering a
// new event; the registry verifies it as the creation proof.
func CreationMessage(eventID string, createdAt int64, creatorAddress string) string {
	return fmt.Sprintf("CKB-PoP-Create|%s|%d|%s", eventID, createdAt, creatorAddress)
}

// WindowMessage is the message an event creator signs to open an attendance
// window. windowEnd of zero means an open-ended window.
func WindowMessage(eventID string, windowStart, windowEnd int64) string {
	end := "open"
	if windowEnd > 0 {
		end = fmt.Sprintf("%d", windowEnd)
	}
	return fmt.Sprintf("CKB-PoP-Window|%s|%d|%s", eventID, windowStart, end)
}

// SHA256Hex returns the lowercase hex SHA256 of the input.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func le64(v int64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(v))
	return buf
}
