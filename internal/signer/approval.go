package signer

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ckb-pop/popcli/pkg/logger"
	"github.com/gorilla/mux"
)

// DefaultApprovalTimeout bounds how long one approval session may wait.
const DefaultApprovalTimeout = 5 * time.Minute

// DefaultBasePort is the first port tried for the approval listener.
const DefaultBasePort = 8799

// DefaultPortSpan is how many sequential ports are tried on bind failure.
const DefaultPortSpan = 10

// ApprovalConfig configures the local approval server.
type ApprovalConfig struct {
	BasePort int
	PortSpan int
	Timeout  time.Duration
	// OpenPage opens the approval page in the operator's default viewing
	// surface. Defaults to the platform browser opener.
	OpenPage func(url string) error
}

// Request is one pending signing request served to the approval page.
type Request struct {
	Kind    string          `json:"kind"` // connect | message | transaction
	Payload json.RawMessage `json:"payload,omitempty"`
	Address string          `json:"address,omitempty"`
	Network string          `json:"network,omitempty"`
}

// Result is the approval page's answer, still in the signing toolkit's
// field convention where it carries a transaction.
type Result struct {
	Address   string          `json:"address,omitempty"`
	Signature string          `json:"signature,omitempty"`
	SignedTx  json.RawMessage `json:"signedTx,omitempty"`
}

type callbackBody struct {
	Token     string          `json:"token"`
	Rejected  bool            `json:"rejected,omitempty"`
	Error     string          `json:"error,omitempty"`
	Address   string          `json:"address,omitempty"`
	Signature string          `json:"signature,omitempty"`
	SignedTx  json.RawMessage `json:"signedTx,omitempty"`
}

type outcome struct {
	result Result
	err    error
}

// ApprovalServer runs one approval session at a time: it binds an ephemeral
// local listener, serves the pending request to a page opened in the
// operator's browser, and waits for the single token-bearing callback.
type ApprovalServer struct {
	cfg ApprovalConfig
	log *logger.Logger
}

// NewApprovalServer creates an approval server with defaults applied.
func NewApprovalServer(cfg ApprovalConfig, log *logger.Logger) *ApprovalServer {
	if cfg.BasePort == 0 {
		cfg.BasePort = DefaultBasePort
	}
	if cfg.PortSpan <= 0 {
		cfg.PortSpan = DefaultPortSpan
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultApprovalTimeout
	}
	if cfg.OpenPage == nil {
		cfg.OpenPage = openBrowser
	}
	if log == nil {
		log = logger.NewDefault("approval")
	}
	return &ApprovalServer{cfg: cfg, log: log}
}

// Await serves the request and blocks until the callback arrives, ctx is
// cancelled, or the wait bound elapses, whichever first. The listener is
// closed and the port released before Await returns, on every path.
func (s *ApprovalServer) Await(ctx context.Context, req Request) (Result, error) {
	token, err := newSessionToken()
	if err != nil {
		return Result{}, fmt.Errorf("%w: generate session token: %v", ErrTransport, err)
	}

	listener, err := s.bind()
	if err != nil {
		return Result{}, err
	}
	// Shutdown only closes listeners Serve has already registered; closing
	// the raw listener here guarantees the port is free once Await returns,
	// even when cancellation wins the race with the Serve goroutine.
	defer func() { _ = listener.Close() }()

	session := &approvalSession{
		token:    token,
		request:  req,
		outcomes: make(chan outcome, 1),
		log:      s.log,
	}

	router := mux.NewRouter()
	router.HandleFunc("/", session.handlePage).Methods(http.MethodGet)
	router.HandleFunc("/callback", session.handleCallback).Methods(http.MethodPost)

	srv := &http.Server{Handler: router}
	go func() {
		serveErr := srv.Serve(listener)
		if serveErr != nil && serveErr != http.ErrServerClosed && !errors.Is(serveErr, net.ErrClosed) {
			s.log.WithError(serveErr).Warn("approval server exited")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
		}
	}()

	url := fmt.Sprintf("http://%s/", listener.Addr().String())
	s.log.WithField("url", url).Info("waiting for approval in browser")
	if err := s.cfg.OpenPage(url); err != nil {
		s.log.WithError(err).Warnf("could not open browser; open %s manually", url)
	}

	timer := time.NewTimer(s.cfg.Timeout)
	defer timer.Stop()

	select {
	case out := <-session.outcomes:
		return out.result, out.err
	case <-ctx.Done():
		return Result{}, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	case <-timer.C:
		return Result{}, fmt.Errorf("%w: no approval within %s", ErrTimeout, s.cfg.Timeout)
	}
}

// bind claims a local port, retrying sequential ports in the configured
// range. A base port of -1 requests an OS-assigned port (used by tests).
func (s *ApprovalServer) bind() (net.Listener, error) {
	if s.cfg.BasePort < 0 {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return nil, fmt.Errorf("%w: bind approval listener: %v", ErrTransport, err)
		}
		return l, nil
	}

	var lastErr error
	for i := 0; i < s.cfg.PortSpan; i++ {
		l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.cfg.BasePort+i))
		if err == nil {
			return l, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: no free port in %d-%d: %v",
		ErrTransport, s.cfg.BasePort, s.cfg.BasePort+s.cfg.PortSpan-1, lastErr)
}

// =============================================================================
// Session
// =============================================================================

type approvalSession struct {
	token   string
	request Request
	log     *logger.Logger

	mu       sync.Mutex
	consumed bool
	outcomes chan outcome
}

func (s *approvalSession) handlePage(w http.ResponseWriter, r *http.Request) {
	payload, err := json.Marshal(s.request)
	if err != nil {
		http.Error(w, "encode request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := approvalPage.Execute(w, map[string]interface{}{
		"Token":   s.token,
		"Request": template.JS(payload),
	}); err != nil {
		s.log.WithError(err).Warn("render approval page")
	}
}

// handleCallback accepts exactly one callback bearing the session token.
// A mismatched or already-consumed token is rejected without affecting the
// pending wait.
func (s *approvalSession) handleCallback(w http.ResponseWriter, r *http.Request) {
	var body callbackBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		http.Error(w, "invalid callback body", http.StatusBadRequest)
		return
	}

	if subtle.ConstantTimeCompare([]byte(body.Token), []byte(s.token)) != 1 {
		http.Error(w, "invalid session token", http.StatusForbidden)
		return
	}

	s.mu.Lock()
	if s.consumed {
		s.mu.Unlock()
		http.Error(w, "session token already used", http.StatusForbidden)
		return
	}
	s.consumed = true
	s.mu.Unlock()

	switch {
	case body.Rejected:
		s.outcomes <- outcome{err: ErrUserRejected}
	case body.Error != "":
		s.outcomes <- outcome{err: fmt.Errorf("%w: %s", ErrUserRejected, body.Error)}
	default:
		s.outcomes <- outcome{result: Result{
			Address:   body.Address,
			Signature: body.Signature,
			SignedTx:  body.SignedTx,
		}}
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
