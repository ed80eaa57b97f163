package token

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/hootsocial/hoot/server/auth"
	"github.com/hootsocial/hoot/server/store/types"
)

func testAuthenticator(t *testing.T, serial int) *authenticator {
	t.Helper()
	ta := &authenticator{}
	conf, _ := json.Marshal(map[string]any{
		"key":        bytes.Repeat([]byte{1, 2, 3, 4}, 8),
		"expire_in":  3600,
		"serial_num": serial,
	})
	if err := ta.Init(conf, "token"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return ta
}

func TestInitRejectsShortKey(t *testing.T) {
	ta := &authenticator{}
	conf, _ := json.Marshal(map[string]any{"key": []byte("too short"), "expire_in": 3600})
	if err := ta.Init(conf, "token"); err == nil {
		t.Error("Expected error for short key")
	}
}

func TestInitRejectsBadExpiration(t *testing.T) {
	ta := &authenticator{}
	conf, _ := json.Marshal(map[string]any{"key": bytes.Repeat([]byte{7}, 32), "expire_in": 0})
	if err := ta.Init(conf, "token"); err == nil {
		t.Error("Expected error for zero expiration")
	}
}

func TestTokenRoundtrip(t *testing.T) {
	ta := testAuthenticator(t, 1)

	uid := types.Uid(12345)
	secret, expires, err := ta.GenSecret(&auth.Rec{Uid: uid, AuthLevel: auth.LevelAuth})
	if err != nil {
		t.Fatalf("GenSecret failed: %v", err)
	}
	if expires.Before(time.Now()) {
		t.Error("Expiration should be in the future")
	}

	rec, err := ta.Authenticate(secret)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if rec.Uid != uid {
		t.Errorf("Uid mismatch: expected %v, got %v", uid, rec.Uid)
	}
	if rec.AuthLevel != auth.LevelAuth {
		t.Errorf("AuthLevel mismatch: expected %v, got %v", auth.LevelAuth, rec.AuthLevel)
	}
}

func TestTokenTooShort(t *testing.T) {
	ta := testAuthenticator(t, 1)
	if _, err := ta.Authenticate([]byte("abc")); err != types.ErrMalformed {
		t.Errorf("Expected ErrMalformed, got %v", err)
	}
}

func TestTokenTampered(t *testing.T) {
	ta := testAuthenticator(t, 1)

	secret, _, err := ta.GenSecret(&auth.Rec{Uid: types.Uid(1), AuthLevel: auth.LevelAuth})
	if err != nil {
		t.Fatalf("GenSecret failed: %v", err)
	}
	// Flip a bit in the payload: the signature no longer matches.
	secret[0] ^= 0xff
	if _, err := ta.Authenticate(secret); err != types.ErrFailed {
		t.Errorf("Expected ErrFailed, got %v", err)
	}
}

func TestTokenExpired(t *testing.T) {
	ta := testAuthenticator(t, 1)

	secret, _, err := ta.GenSecret(&auth.Rec{
		Uid: types.Uid(1), AuthLevel: auth.LevelAuth, Lifetime: 500 * time.Millisecond})
	if err != nil {
		t.Fatalf("GenSecret failed: %v", err)
	}
	if _, err := ta.Authenticate(secret); err != types.ErrExpired {
		t.Errorf("Expected ErrExpired, got %v", err)
	}
}

func TestTokenSerialMismatch(t *testing.T) {
	old := testAuthenticator(t, 1)
	secret, _, err := old.GenSecret(&auth.Rec{Uid: types.Uid(1), AuthLevel: auth.LevelAuth})
	if err != nil {
		t.Fatalf("GenSecret failed: %v", err)
	}

	current := testAuthenticator(t, 2)
	if _, err := current.Authenticate(secret); err != types.ErrFailed {
		t.Errorf("Expected ErrFailed for stale serial number, got %v", err)
	}
}
