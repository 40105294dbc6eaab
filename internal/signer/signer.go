// Package signer routes signing requests to external custody backends. No
// backend holds private key material locally; every signature round is an
// out-of-band approval by a wallet, device, or relay.
package signer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ckb-pop/popcli/internal/chain"
	"github.com/ckb-pop/popcli/pkg/logger"
)

// Error kinds. Every backend operation resolves with a result or fails with
// one of these, so callers can assert on cause.
var (
	// ErrUserRejected means the signer declined the request.
	ErrUserRejected = errors.New("signing request rejected by user")
	// ErrTimeout means no response arrived within the configured bound.
	ErrTimeout = errors.New("signing request timed out")
	// ErrCancelled means an external interrupt ended the wait.
	ErrCancelled = errors.New("signing request cancelled")
	// ErrTransport means the backend was unreachable or misbehaved.
	ErrTransport = errors.New("signer transport error")
	// ErrConfiguration means the signer selection or inputs are invalid;
	// raised before any network activity starts.
	ErrConfiguration = errors.New("signer configuration error")
	// ErrUnsupported marks a recognized method whose transport is not built
	// into this binary.
	ErrUnsupported = errors.New("signer method not supported in this build")
)

// Method selects a signing backend.
type Method string

const (
	// MethodBrowser approves requests through a local approval server and
	// the operator's browser wallet.
	MethodBrowser Method = "browser"
	// MethodLedger approves requests on a hardware device.
	MethodLedger Method = "ledger"
	// MethodPasskey approves requests with a platform authenticator.
	MethodPasskey Method = "passkey"
	// MethodWalletConnect approves requests through a remote wallet relay.
	MethodWalletConnect Method = "walletconnect"
)

// ParseMethod validates a configured or overridden method name.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodBrowser, MethodLedger, MethodPasskey, MethodWalletConnect:
		return Method(s), nil
	default:
		return "", fmt.Errorf("%w: unknown signer method %q", ErrConfiguration, s)
	}
}

// Signer is the uniform capability set over all backends. The router never
// interprets payloads; it is a pure dispatch boundary.
type Signer interface {
	// Address is the CKB address this signer controls.
	Address() string
	// SignMessage signs an arbitrary message, returning a hex-encoded
	// recoverable signature.
	SignMessage(ctx context.Context, message string) (string, error)
	// SignTransaction presents an unsigned transaction for approval and
	// returns the signed transaction ready to broadcast.
	SignTransaction(ctx context.Context, tx *chain.Transaction) (*chain.Transaction, error)
}

// Options carries backend construction inputs.
type Options struct {
	Address  string
	Network  string
	RelayURL string
	Approval ApprovalConfig
	Log      *logger.Logger
}

// FromMethod builds a signer for the chosen method. An unrecognized method
// or a missing address is a configuration error; recognized methods whose
// transport is not built in fail with ErrUnsupported.
func FromMethod(method Method, opts Options) (Signer, error) {
	if opts.Address == "" {
		return nil, fmt.Errorf("%w: no address configured", ErrConfiguration)
	}
	if opts.Log == nil {
		opts.Log = logger.NewDefault("signer")
	}

	switch method {
	case MethodBrowser:
		return NewBrowserSigner(opts.Address, opts.Network, opts.Approval, opts.Log), nil
	case MethodWalletConnect:
		if opts.RelayURL == "" {
			return nil, fmt.Errorf("%w: walletconnect signer requires a relay URL", ErrConfiguration)
		}
		return NewRelaySigner(opts.Address, opts.RelayURL, opts.Log), nil
	case MethodLedger, MethodPasskey:
		return nil, fmt.Errorf("%s: %w", method, ErrUnsupported)
	default:
		return nil, fmt.Errorf("%w: unknown signer method %q", ErrConfiguration, method)
	}
}
