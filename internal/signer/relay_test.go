package signer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// fakeRelay approves or rejects after a set number of status polls.
type fakeRelay struct {
	approveAfter int32
	reject       bool
	reason       string
	polls        int32
	lastRequest  relayRequest
}

func (f *fakeRelay) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/requests", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&f.lastRequest); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(relaySession{SessionID: "sess-1"})
	})
	mux.HandleFunc("/v1/requests/sess-1", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&f.polls, 1)
		status := relayStatus{Status: "pending"}
		if n >= f.approveAfter {
			if f.reject {
				status = relayStatus{Status: "rejected", Reason: f.reason}
			} else {
				status = relayStatus{Status: "approved", Signature: "0xsig"}
			}
		}
		json.NewEncoder(w).Encode(status)
	})
	return mux
}

func newTestRelaySigner(t *testing.T, relay *fakeRelay) *RelaySigner {
	t.Helper()
	srv := httptest.NewServer(relay.handler())
	t.Cleanup(srv.Close)
	s := NewRelaySigner("ckt1qtest", srv.URL, nil)
	s.poll = 5 * time.Millisecond
	s.wait = time.Second
	return s
}

func TestRelaySigner_ApprovedAfterPolls(t *testing.T) {
	relay := &fakeRelay{approveAfter: 3}
	s := newTestRelaySigner(t, relay)

	sig, err := s.SignMessage(context.Background(), "hello")
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}
	if sig != "0xsig" {
		t.Fatalf("unexpected signature %q", sig)
	}
	if polls := atomic.LoadInt32(&relay.polls); polls < 3 {
		t.Fatalf("expected at least 3 polls, saw %d", polls)
	}
	if relay.lastRequest.Kind != "message" || relay.lastRequest.Address != "ckt1qtest" {
		t.Fatalf("unexpected relay request %+v", relay.lastRequest)
	}
	if relay.lastRequest.RequestID == "" {
		t.Fatalf("relay request carried no request ID")
	}
}

func TestRelaySigner_Rejected(t *testing.T) {
	relay := &fakeRelay{approveAfter: 1, reject: true, reason: "declined on phone"}
	s := newTestRelaySigner(t, relay)

	_, err := s.SignMessage(context.Background(), "hello")
	if !errors.Is(err, ErrUserRejected) {
		t.Fatalf("expected ErrUserRejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "declined on phone") {
		t.Fatalf("rejection reason lost: %v", err)
	}
}

func TestRelaySigner_Timeout(t *testing.T) {
	relay := &fakeRelay{approveAfter: 1 << 30} // never approves
	s := newTestRelaySigner(t, relay)
	s.wait = 30 * time.Millisecond

	_, err := s.SignMessage(context.Background(), "hello")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestRelaySigner_Cancelled(t *testing.T) {
	relay := &fakeRelay{approveAfter: 1 << 30}
	s := newTestRelaySigner(t, relay)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := s.SignMessage(ctx, "hello")
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}
