package presence

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMalformed reports an unparsable code string.
	ErrMalformed = errors.New("malformed proof code")
	// ErrExpired reports a code outside the freshness window, including
	// codes from the future beyond clock-skew tolerance.
	ErrExpired = errors.New("proof code expired")
	// ErrBadTag reports an authentication tag mismatch.
	ErrBadTag = errors.New("proof code tag mismatch")
)

// MaxCodeAge is how long a code stays verifiable after issuance. It is
// double RotationInterval so a code captured at the end of its tick remains
// valid for one full rotation, tolerating transcription delay.
const MaxCodeAge = 60 * time.Second

// Verify checks a received wire-format code against the window secret at
// the given time. On success it returns the event ID the code was issued
// for. Verification has no side effects and is idempotent; replay handling
// belongs to the consuming operation, not this check.
func Verify(raw string, secret WindowSecret, now time.Time) (string, error) {
	code, err := ParseCode(raw)
	if err != nil {
		return "", err
	}

	age := now.Unix() - code.IssuedAt
	if age < 0 || age >= int64(MaxCodeAge/time.Second) {
		return "", fmt.Errorf("%w: issued %ds ago, acceptance window is [0, %ds)",
			ErrExpired, age, int64(MaxCodeAge/time.Second))
	}

	expected := ComputeTag(secret, code.EventID, code.IssuedAt)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(code.Tag)) != 1 {
		return "", ErrBadTag
	}
	return code.EventID, nil
}

// CheckFreshness validates only the parse and freshness of a code, for
// callers that do not hold the window secret (an attendee checking a
// captured code before signing). The tag is verified by whoever holds the
// secret.
func CheckFreshness(raw string, now time.Time) (Code, error) {
	code, err := ParseCode(raw)
	if err != nil {
		return Code{}, err
	}
	age := now.Unix() - code.IssuedAt
	if age < 0 || age >= int64(MaxCodeAge/time.Second) {
		return Code{}, fmt.Errorf("%w: issued %ds ago, acceptance window is [0, %ds)",
			ErrExpired, age, int64(MaxCodeAge/time.Second))
	}
	return code, nil
}
