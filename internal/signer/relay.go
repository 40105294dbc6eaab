package signer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ckb-pop/popcli/internal/chain"
	"github.com/ckb-pop/popcli/internal/httputil"
	"github.com/ckb-pop/popcli/pkg/logger"
	"github.com/google/uuid"
)

// relayPollInterval is the fixed interval between approval status polls.
const relayPollInterval = 2 * time.Second

// relayWaitBound bounds one remote approval round.
const relayWaitBound = 5 * time.Minute

// RelaySigner routes signing requests through a remote wallet relay: the
// request is posted to the relay, the paired wallet approves it out of
// band, and the relay is polled until the approval lands.
type RelaySigner struct {
	address string
	client  *httputil.Client
	log     *logger.Logger
	poll    time.Duration
	wait    time.Duration
}

// NewRelaySigner creates a relay-backed signer.
func NewRelaySigner(address, relayURL string, log *logger.Logger) *RelaySigner {
	if log == nil {
		log = logger.NewDefault("relay-signer")
	}
	return &RelaySigner{
		address: address,
		client:  httputil.NewClient(httputil.ClientConfig{BaseURL: relayURL}),
		log:     log,
		poll:    relayPollInterval,
		wait:    relayWaitBound,
	}
}

type relayRequest struct {
	RequestID string          `json:"request_id"`
	Kind      string          `json:"kind"`
	Address   string          `json:"address"`
	Payload   json.RawMessage `json:"payload"`
}

type relaySession struct {
	SessionID string `json:"session_id"`
}

type relayStatus struct {
	Status    string             `json:"status"` // pending | approved | rejected
	Signature string             `json:"signature,omitempty"`
	SignedTx  *chain.Transaction `json:"signed_tx,omitempty"`
	Reason    string             `json:"reason,omitempty"`
}

// Address returns the CKB address this signer controls.
func (s *RelaySigner) Address() string {
	return s.address
}

// SignMessage posts the message to the relay and polls for the approval.
func (s *RelaySigner) SignMessage(ctx context.Context, message string) (string, error) {
	payload, _ := json.Marshal(map[string]string{"message": message})
	status, err := s.round(ctx, "message", payload)
	if err != nil {
		return "", err
	}
	if status.Signature == "" {
		return "", fmt.Errorf("%w: relay approval carried no signature", ErrTransport)
	}
	return status.Signature, nil
}

// SignTransaction posts the unsigned transaction to the relay and polls for
// the signed transaction. The relay speaks the chain RPC convention, so no
// field translation is needed on this path.
func (s *RelaySigner) SignTransaction(ctx context.Context, tx *chain.Transaction) (*chain.Transaction, error) {
	payload, err := json.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}
	status, err := s.round(ctx, "transaction", payload)
	if err != nil {
		return nil, err
	}
	if status.SignedTx == nil || len(status.SignedTx.Witnesses) == 0 {
		return nil, fmt.Errorf("%w: relay approval carried no signed transaction", ErrTransport)
	}
	return status.SignedTx, nil
}

// round submits one signing request and polls until it resolves.
func (s *RelaySigner) round(ctx context.Context, kind string, payload json.RawMessage) (*relayStatus, error) {
	req := relayRequest{
		RequestID: uuid.NewString(),
		Kind:      kind,
		Address:   s.address,
		Payload:   payload,
	}

	resp, err := s.client.Post(ctx, "/v1/requests", req)
	if err != nil {
		return nil, fmt.Errorf("%w: submit to relay: %v", ErrTransport, err)
	}
	var session relaySession
	if err := httputil.DecodeResponse(resp, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if session.SessionID == "" {
		return nil, fmt.Errorf("%w: relay returned no session ID", ErrTransport)
	}
	s.log.WithField("session", session.SessionID).Debug("relay session opened")

	waitCtx, cancel := context.WithTimeout(ctx, s.wait)
	defer cancel()

	var final *relayStatus
	poll := func() error {
		resp, err := s.client.Get(waitCtx, "/v1/requests/"+session.SessionID)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: poll relay: %v", ErrTransport, err))
		}
		var status relayStatus
		if err := httputil.DecodeResponse(resp, &status); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrTransport, err))
		}
		switch status.Status {
		case "approved":
			final = &status
			return nil
		case "rejected":
			if status.Reason != "" {
				return backoff.Permanent(fmt.Errorf("%w: %s", ErrUserRejected, status.Reason))
			}
			return backoff.Permanent(ErrUserRejected)
		default:
			return fmt.Errorf("approval still pending")
		}
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(s.poll), waitCtx)
	if err := backoff.Retry(poll, policy); err != nil {
		if waitCtx.Err() != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: no relay approval within %s", ErrTimeout, s.wait)
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}
		return nil, err
	}
	return final, nil
}
