package presence

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// TagLength is the length in hex characters of a proof code tag.
const TagLength = 16

// Code is one time-sliced proof code. Many are produced per window, one per
// rotation tick, each independently verifiable.
type Code struct {
	EventID  string
	IssuedAt int64
	Tag      string
}

// Encode serializes the code to the pipe-delimited wire format
// "event_id|issued_at|tag".
func (c Code) Encode() string {
	return fmt.Sprintf("%s|%d|%s", c.EventID, c.IssuedAt, c.Tag)
}

// ParseCode splits the delimited wire string into its three fields. A field
// count mismatch, an empty field, or a non-numeric timestamp is ErrMalformed.
func ParseCode(raw string) (Code, error) {
	parts := strings.Split(raw, "|")
	if len(parts) != 3 {
		return Code{}, fmt.Errorf("%w: expected 3 fields, got %d", ErrMalformed, len(parts))
	}
	if parts[0] == "" || parts[2] == "" {
		return Code{}, fmt.Errorf("%w: empty field", ErrMalformed)
	}
	ts, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Code{}, fmt.Errorf("%w: non-numeric timestamp %q", ErrMalformed, parts[1])
	}
	return Code{EventID: parts[0], IssuedAt: ts, Tag: parts[2]}, nil
}

// ComputeTag produces the authentication tag for (event_id, issued_at) under
// the window secret: the first 16 hex characters of
// HMAC-SHA256(secret, event_id || le64(issued_at)).
func ComputeTag(secret WindowSecret, eventID string, issuedAt int64) string {
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(eventID))
	mac.Write(binary.LittleEndian.AppendUint64(nil, uint64(issuedAt)))
	return hex.EncodeToString(mac.Sum(nil))[:TagLength]
}

// NewCode issues a code for the event at the given timestamp.
func NewCode(secret WindowSecret, eventID string, issuedAt int64) Code {
	return Code{
		EventID:  eventID,
		IssuedAt: issuedAt,
		Tag:      ComputeTag(secret, eventID, issuedAt),
	}
}
