// Package presence implements the attendance-window session protocol:
// window secret derivation, rotating proof codes, and code verification.
package presence

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// WindowSecret is the symmetric key underlying every code issued within one
// attendance window. It lives only in process memory for the window's
// lifetime and is never reused across windows.
type WindowSecret [32]byte

// DeriveWindowSecret derives the window secret from the event ID, the window
// opening timestamp, and the creator's signature over the window message.
//
// HKDF-SHA256 with the signature as input keying material makes the secret
// underivable by anyone who has not seen the organizer's approved signature.
// The event ID and window start are mixed in as salt and info, so the same
// organizer signature flow replayed for another event or window yields a
// different secret.
func DeriveWindowSecret(eventID string, windowStart int64, approvalSig string) (WindowSecret, error) {
	var secret WindowSecret
	if eventID == "" {
		return secret, fmt.Errorf("derive window secret: event ID is empty")
	}
	if approvalSig == "" {
		return secret, fmt.Errorf("derive window secret: window approval signature missing (signer round did not complete)")
	}

	info := make([]byte, 0, len("ckb-pop-window")+8)
	info = append(info, []byte("ckb-pop-window")...)
	info = binary.LittleEndian.AppendUint64(info, uint64(windowStart))

	r := hkdf.New(sha256.New, []byte(approvalSig), []byte(eventID), info)
	if _, err := io.ReadFull(r, secret[:]); err != nil {
		return secret, fmt.Errorf("derive window secret: %w", err)
	}
	return secret, nil
}
