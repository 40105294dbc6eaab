package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPostAndDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			http.Error(w, "want json", http.StatusBadRequest)
			return
		}
		var in map[string]string
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"echo": in["msg"]})
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL + "/"})

	resp, err := c.Post(context.Background(), "/echo", map[string]string{"msg": "hi"})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	var out map[string]string
	if err := DecodeResponse(resp, &out); err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if out["echo"] != "hi" {
		t.Fatalf("unexpected response %v", out)
	}
}

func TestDecodeResponse_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such thing", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	resp, err := c.Get(context.Background(), "/missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	var out struct{}
	err = DecodeResponse(resp, &out)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound || statusErr.Body != "no such thing" {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
}

func TestDecodeResponse_NilTargetDiscardsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	resp, err := c.Post(context.Background(), "/ack", nil)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if err := DecodeResponse(resp, nil); err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
}
