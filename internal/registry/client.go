// Package registry is the HTTP client for the event registry service. The
// registry stores event metadata, issues canonical event identifiers, and
// flips events to active once their on-chain anchor is confirmed.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ckb-pop/popcli/internal/httputil"
	"github.com/ckb-pop/popcli/pkg/logger"
	"github.com/google/uuid"
)

// ErrNotFound means the registry has no event with the given ID.
var ErrNotFound = errors.New("event not found in registry")

const (
	defaultTimeout   = 15 * time.Second
	retryMaxElapsed  = 30 * time.Second
	retryMaxInterval = 5 * time.Second
)

// CreateEventRequest is the metadata plus creation proof a new event needs.
type CreateEventRequest struct {
	RequestID string `json:"request_id"`
	Name      string `json:"name"`
	Venue     string `json:"venue,omitempty"`
	StartsAt  int64  `json:"starts_at,omitempty"`
	EndsAt    int64  `json:"ends_at,omitempty"`
	Creator   string `json:"creator"`
	CreatedAt int64  `json:"created_at"`
	Nonce     string `json:"nonce"`
	// Proof is the creator's signature over the creation message; the
	// registry checks it before admitting the event.
	Proof string `json:"proof"`
}

// Event is one registry record.
type Event struct {
	EventID      string `json:"event_id"`
	Name         string `json:"name"`
	Venue        string `json:"venue,omitempty"`
	StartsAt     int64  `json:"starts_at,omitempty"`
	EndsAt       int64  `json:"ends_at,omitempty"`
	Creator      string `json:"creator"`
	CreatedAt    int64  `json:"created_at"`
	MetadataHash string `json:"metadata_hash"`
	Active       bool   `json:"active"`
	AnchorTxHash string `json:"anchor_tx_hash,omitempty"`
}

type activateRequest struct {
	RequestID string `json:"request_id"`
	TxHash    string `json:"tx_hash"`
}

// Client talks to one registry deployment.
type Client struct {
	http *httputil.Client
	log  *logger.Logger
}

// NewClient creates a registry client for the given base URL.
func NewClient(baseURL string, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewDefault("registry")
	}
	return &Client{
		http: httputil.NewClient(httputil.ClientConfig{BaseURL: baseURL, Timeout: defaultTimeout}),
		log:  log,
	}
}

// CreateEvent registers event metadata and returns the canonical record. The
// request carries a client-chosen request ID, so a retried create is
// idempotent on the registry side.
func (c *Client) CreateEvent(ctx context.Context, req CreateEventRequest) (*Event, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	var event Event
	err := c.do(ctx, func() error {
		resp, err := c.http.Post(ctx, "/v1/events", req)
		if err != nil {
			return err
		}
		return httputil.DecodeResponse(resp, &event)
	})
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	if event.EventID == "" {
		return nil, fmt.Errorf("create event: registry returned no event ID")
	}
	return &event, nil
}

// Activate reports the confirmed anchor transaction, flipping the event to
// active.
func (c *Client) Activate(ctx context.Context, eventID, txHash string) error {
	body := activateRequest{RequestID: uuid.NewString(), TxHash: txHash}
	err := c.do(ctx, func() error {
		resp, err := c.http.Post(ctx, "/v1/events/"+url.PathEscape(eventID)+"/activate", body)
		if err != nil {
			return err
		}
		return httputil.DecodeResponse(resp, nil)
	})
	if err != nil {
		return fmt.Errorf("activate event %s: %w", eventID, err)
	}
	return nil
}

// Get fetches one event record.
func (c *Client) Get(ctx context.Context, eventID string) (*Event, error) {
	var event Event
	err := c.do(ctx, func() error {
		resp, err := c.http.Get(ctx, "/v1/events/"+url.PathEscape(eventID))
		if err != nil {
			return err
		}
		return httputil.DecodeResponse(resp, &event)
	})
	if err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == 404 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, eventID)
		}
		return nil, fmt.Errorf("get event %s: %w", eventID, err)
	}
	return &event, nil
}

// List fetches the caller's events.
func (c *Client) List(ctx context.Context, creator string) ([]Event, error) {
	path := "/v1/events"
	if creator != "" {
		path += "?creator=" + url.QueryEscape(creator)
	}
	var events []Event
	err := c.do(ctx, func() error {
		resp, err := c.http.Get(ctx, path)
		if err != nil {
			return err
		}
		return httputil.DecodeResponse(resp, &events)
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// do runs one registry call with retry on transient failures. 4xx answers
// are permanent; transport errors and 5xx answers are retried with
// exponential backoff until the elapsed bound.
func (c *Client) do(ctx context.Context, call func() error) error {
	operation := func() error {
		err := call()
		if err == nil {
			return nil
		}
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		c.log.WithError(err).Debug("registry call failed, retrying")
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxInterval = retryMaxInterval
	policy.MaxElapsedTime = retryMaxElapsed
	return backoff.Retry(operation, backoff.WithContext(policy, ctx))
}
