package main

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerateSecretCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		code, err := generateSecretCode()
		if err != nil {
			t.Fatalf("generateSecretCode: %v", err)
		}
		if len(code) != 8 {
			t.Fatalf("code %q should be 8 hex chars", code)
		}
		for _, c := range code {
			if !strings.ContainsRune("0123456789abcdef", c) {
				t.Fatalf("code %q is not lowercase hex", code)
			}
		}
		if seen[code] {
			t.Fatalf("code %q repeated", code)
		}
		seen[code] = true
	}
}

func TestAuthenticateWS(t *testing.T) {
	setupTestDB(t)

	// First handshake auto-registers and greets with the secret code.
	r := httptest.NewRequest("GET", "/ws?name=alice", nil)
	userID, greeting, err := authenticateWS(r)
	if err != nil {
		t.Fatalf("first handshake: %v", err)
	}
	if userID != "alice" {
		t.Errorf("userID = %q, want alice", userID)
	}
	if !strings.Contains(greeting, "secret code") {
		t.Errorf("greeting %q should carry the secret code", greeting)
	}

	var code string
	if err := db.Get(&code, "SELECT secret_code FROM player WHERE name = ?", "alice"); err != nil {
		t.Fatalf("lookup stored code: %v", err)
	}
	if !strings.Contains(greeting, code) {
		t.Errorf("greeting %q does not mention stored code %q", greeting, code)
	}

	// Reconnect with the right code, no greeting this time.
	r = httptest.NewRequest("GET", "/ws?name=alice&code="+code, nil)
	userID, greeting, err = authenticateWS(r)
	if err != nil || userID != "alice" || greeting != "" {
		t.Errorf("reconnect: userID=%q greeting=%q err=%v", userID, greeting, err)
	}

	// Wrong or missing code is refused.
	r = httptest.NewRequest("GET", "/ws?name=alice&code=bogus", nil)
	if _, _, err := authenticateWS(r); err == nil {
		t.Error("wrong code should be refused")
	}
	r = httptest.NewRequest("GET", "/ws", nil)
	if _, _, err := authenticateWS(r); err == nil {
		t.Error("missing name should be refused")
	}
}
