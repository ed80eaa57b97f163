package main

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestGenerateKeySizes(t *testing.T) {
	for _, size := range []int{uidKeyLen, sha256.Size, 64} {
		key, err := generateKey(size)
		if err != nil {
			t.Fatalf("generateKey(%d) failed: %v", size, err)
		}
		raw, err := base64.StdEncoding.DecodeString(key)
		if err != nil {
			t.Fatalf("generated key is not valid base64: %v", err)
		}
		if len(raw) != size {
			t.Fatalf("expected %d bytes, got %d", size, len(raw))
		}
	}
}

func TestGenerateKeyUnique(t *testing.T) {
	one, err := generateKey(sha256.Size)
	if err != nil {
		t.Fatal(err)
	}
	two, err := generateKey(sha256.Size)
	if err != nil {
		t.Fatal(err)
	}
	if one == two {
		t.Fatal("two generated keys are identical")
	}
}

func TestValidateKey(t *testing.T) {
	key, err := generateKey(sha256.Size)
	if err != nil {
		t.Fatal(err)
	}
	size, err := validateKey(key, sha256.Size)
	if err != nil {
		t.Fatalf("freshly generated key failed validation: %v", err)
	}
	if size != sha256.Size {
		t.Fatalf("expected %d bytes, got %d", sha256.Size, size)
	}

	if _, err = validateKey("not base64!!!", sha256.Size); err == nil {
		t.Fatal("expected error for malformed base64")
	}

	short, _ := generateKey(16)
	if _, err = validateKey(short, sha256.Size); err == nil {
		t.Fatal("expected error for short key")
	}
}
