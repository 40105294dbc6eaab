// Package pipeline drives a protocol transaction from construction through
// signing, broadcast, and confirmation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ckb-pop/popcli/internal/chain"
	"github.com/ckb-pop/popcli/internal/ckbaddr"
	"github.com/ckb-pop/popcli/internal/contracts"
	"github.com/ckb-pop/popcli/internal/signer"
	"github.com/ckb-pop/popcli/internal/txbuilder"
	"github.com/ckb-pop/popcli/pkg/logger"
)

// ErrConfirmationTimeout means the transaction was accepted by the node but
// did not reach committed status within the confirmation wait. The
// transaction may still confirm later; the receipt carries its hash.
var ErrConfirmationTimeout = errors.New("transaction not confirmed in time")

// ErrRejected means the node's ledger rejected the transaction.
var ErrRejected = errors.New("transaction rejected")

// DefaultPollInterval is how often confirmation status is polled.
const DefaultPollInterval = 2 * time.Second

// DefaultConfirmWait bounds how long one transaction is tracked before the
// pipeline gives up and tells the operator to check later.
const DefaultConfirmWait = 2 * time.Minute

// Broadcaster is the node surface the pipeline needs. *chain.Client
// satisfies it.
type Broadcaster interface {
	SendTransaction(ctx context.Context, tx *chain.Transaction) (string, error)
	GetTransaction(ctx context.Context, txHash string) (*chain.TxWithStatus, error)
}

// Receipt reports where a transaction ended up.
type Receipt struct {
	TxHash    string
	Status    chain.Status
	Confirmed bool
}

// Pipeline runs sign-broadcast-confirm rounds against one network.
type Pipeline struct {
	node      Broadcaster
	signer    signer.Signer
	contracts contracts.Set
	log       *logger.Logger

	// PollInterval and ConfirmWait tune confirmation tracking.
	PollInterval time.Duration
	ConfirmWait  time.Duration
}

// New creates a pipeline bound to a node, a signer, and a deployed contract
// set.
func New(node Broadcaster, s signer.Signer, set contracts.Set, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewDefault("pipeline")
	}
	return &Pipeline{
		node:         node,
		signer:       s,
		contracts:    set,
		log:          log,
		PollInterval: DefaultPollInterval,
		ConfirmWait:  DefaultConfirmWait,
	}
}

// AnchorEvent creates the on-chain anchor cell for an event. The anchor is
// keyed to (event_id, creator) and locked to the creator, so only the
// creator's signer can produce it.
func (p *Pipeline) AnchorEvent(ctx context.Context, eventID, metadataHash string) (*Receipt, error) {
	creator := p.signer.Address()
	creatorLock, err := lockScript(creator)
	if err != nil {
		return nil, err
	}

	tx, err := txbuilder.BuildEventAnchor(p.contracts.Anchor, eventID, creator, creatorLock, metadataHash)
	if err != nil {
		return nil, fmt.Errorf("build anchor transaction: %w", err)
	}
	return p.run(ctx, tx)
}

// MintBadge creates a badge cell for an attendee. The badge is keyed to
// (event_id, recipient) and locked to the recipient, while the issuing
// signer funds and signs the mint.
func (p *Pipeline) MintBadge(ctx context.Context, eventID, recipientAddress, proofHash string) (*Receipt, error) {
	recipientLock, err := lockScript(recipientAddress)
	if err != nil {
		return nil, err
	}

	tx, err := txbuilder.BuildBadgeMint(p.contracts.Badge, eventID, recipientAddress, recipientLock, p.signer.Address(), proofHash)
	if err != nil {
		return nil, fmt.Errorf("build badge transaction: %w", err)
	}
	return p.run(ctx, tx)
}

// run executes one sign-broadcast-confirm round. Signing is attempted
// exactly once: a rejected or failed approval aborts the round with nothing
// broadcast, so there is never a half-sent transaction to clean up.
func (p *Pipeline) run(ctx context.Context, unsigned *chain.Transaction) (*Receipt, error) {
	signed, err := p.signer.SignTransaction(ctx, unsigned)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	txHash, err := p.node.SendTransaction(ctx, signed)
	if err != nil {
		return nil, fmt.Errorf("broadcast transaction: %w", err)
	}
	p.log.WithField("tx_hash", txHash).Info("transaction broadcast")

	return p.trackConfirmation(ctx, txHash)
}

// trackConfirmation polls the node until the transaction commits, the
// ledger rejects it, or the confirmation wait elapses.
func (p *Pipeline) trackConfirmation(ctx context.Context, txHash string) (*Receipt, error) {
	receipt := &Receipt{TxHash: txHash, Status: chain.StatusPending}

	deadline := time.NewTimer(p.ConfirmWait)
	defer deadline.Stop()
	ticker := time.NewTicker(p.PollInterval)
	defer ticker.Stop()

	for {
		tws, err := p.node.GetTransaction(ctx, txHash)
		if err != nil {
			p.log.WithError(err).Warn("confirmation poll failed")
		} else {
			receipt.Status = tws.TxStatus.Status
			switch tws.TxStatus.Status {
			case chain.StatusCommitted:
				receipt.Confirmed = true
				p.log.WithField("tx_hash", txHash).Info("transaction committed")
				return receipt, nil
			case chain.StatusRejected:
				// Surface the node's reason verbatim; a replayed
				// (event, recipient) pair fails here with the type
				// script's duplicate-key reason.
				return receipt, fmt.Errorf("%w: %s", ErrRejected, tws.TxStatus.Reason)
			}
		}

		select {
		case <-ctx.Done():
			return receipt, fmt.Errorf("%w: %v", ErrConfirmationTimeout, ctx.Err())
		case <-deadline.C:
			return receipt, fmt.Errorf("%w after %s: check %s later with `ckb-pop tx status`",
				ErrConfirmationTimeout, p.ConfirmWait, txHash)
		case <-ticker.C:
		}
	}
}

// lockScript resolves an address to its lock script.
func lockScript(address string) (chain.Script, error) {
	_, script, err := ckbaddr.Decode(address)
	if err != nil {
		return chain.Script{}, fmt.Errorf("decode address %q: %w", address, err)
	}
	return script, nil
}
