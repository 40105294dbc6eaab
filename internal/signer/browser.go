package signer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ckb-pop/popcli/internal/chain"
	"github.com/ckb-pop/popcli/pkg/logger"
)

// BrowserSigner signs by opening the operator's browser to a page that
// connects to a CKB wallet and posts the result back to a temporary
// localhost callback.
type BrowserSigner struct {
	address   string
	network   string
	approvals *ApprovalServer
	log       *logger.Logger
}

// NewBrowserSigner creates a browser-backed signer for the address.
func NewBrowserSigner(address, network string, cfg ApprovalConfig, log *logger.Logger) *BrowserSigner {
	if log == nil {
		log = logger.NewDefault("browser-signer")
	}
	return &BrowserSigner{
		address:   address,
		network:   network,
		approvals: NewApprovalServer(cfg, log),
		log:       log,
	}
}

// Address returns the CKB address this signer controls.
func (s *BrowserSigner) Address() string {
	return s.address
}

// SignMessage serves the message to the approval page and waits for the
// wallet's hex signature.
func (s *BrowserSigner) SignMessage(ctx context.Context, message string) (string, error) {
	payload, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return "", fmt.Errorf("encode message payload: %w", err)
	}

	result, err := s.approvals.Await(ctx, Request{
		Kind:    "message",
		Payload: payload,
		Address: s.address,
		Network: s.network,
	})
	if err != nil {
		return "", err
	}
	if result.Signature == "" {
		return "", fmt.Errorf("%w: approval returned no signature", ErrTransport)
	}
	return result.Signature, nil
}

// SignTransaction serves the unsigned transaction (in the toolkit's field
// convention) to the approval page and translates the signed result back
// into the chain RPC convention.
func (s *BrowserSigner) SignTransaction(ctx context.Context, tx *chain.Transaction) (*chain.Transaction, error) {
	payload, err := ToToolkitTx(tx)
	if err != nil {
		return nil, err
	}

	result, err := s.approvals.Await(ctx, Request{
		Kind:    "transaction",
		Payload: payload,
		Address: s.address,
		Network: s.network,
	})
	if err != nil {
		return nil, err
	}
	if len(result.SignedTx) == 0 {
		return nil, fmt.Errorf("%w: approval returned no signed transaction", ErrTransport)
	}

	signed, err := FromToolkitTx(result.SignedTx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if len(signed.Witnesses) == 0 {
		return nil, fmt.Errorf("%w: signed transaction has no witnesses", ErrTransport)
	}
	return signed, nil
}

// ConnectWallet runs a connect round and returns the wallet's address. Used
// by `signer connect` to bind a wallet to the configuration.
func ConnectWallet(ctx context.Context, network string, cfg ApprovalConfig, log *logger.Logger) (string, error) {
	srv := NewApprovalServer(cfg, log)
	result, err := srv.Await(ctx, Request{Kind: "connect", Network: network})
	if err != nil {
		return "", err
	}
	if result.Address == "" {
		return "", fmt.Errorf("%w: wallet returned no address", ErrTransport)
	}
	return result.Address, nil
}
