package signer

import (
	"errors"
	"testing"
)

func TestParseMethod(t *testing.T) {
	for _, valid := range []string{"browser", "ledger", "passkey", "walletconnect"} {
		if _, err := ParseMethod(valid); err != nil {
			t.Fatalf("ParseMethod(%q): %v", valid, err)
		}
	}
	if _, err := ParseMethod("carrier-pigeon"); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("unknown method should be a configuration error, got %v", err)
	}
}

func TestFromMethod(t *testing.T) {
	opts := Options{Address: "ckt1qtest", Network: "testnet", RelayURL: "http://relay.local"}

	s, err := FromMethod(MethodBrowser, opts)
	if err != nil {
		t.Fatalf("browser: %v", err)
	}
	if _, ok := s.(*BrowserSigner); !ok {
		t.Fatalf("browser method built %T", s)
	}

	s, err = FromMethod(MethodWalletConnect, opts)
	if err != nil {
		t.Fatalf("walletconnect: %v", err)
	}
	if _, ok := s.(*RelaySigner); !ok {
		t.Fatalf("walletconnect method built %T", s)
	}

	if _, err := FromMethod(MethodWalletConnect, Options{Address: "ckt1qtest"}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("walletconnect without relay URL should be a configuration error, got %v", err)
	}

	for _, m := range []Method{MethodLedger, MethodPasskey} {
		if _, err := FromMethod(m, opts); !errors.Is(err, ErrUnsupported) {
			t.Fatalf("%s should be unsupported, got %v", m, err)
		}
	}

	if _, err := FromMethod(MethodBrowser, Options{}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("missing address should be a configuration error, got %v", err)
	}
}
