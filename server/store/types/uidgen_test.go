package types

import (
	"encoding/base64"
	"testing"
)

var testXteaKey = []byte("testkey1testkey2") // 16 bytes for XTEA

func TestUidGeneratorInit(t *testing.T) {
	ug := &UidGenerator{}
	if err := ug.Init(1, testXteaKey); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if ug.seq == nil {
		t.Error("Snowflake generator should be initialized")
	}
	if ug.cipher == nil {
		t.Error("Cipher should be initialized")
	}

	// Re-init must be a no-op.
	oldSeq, oldCipher := ug.seq, ug.cipher
	if err := ug.Init(3, testXteaKey); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if ug.seq != oldSeq || ug.cipher != oldCipher {
		t.Error("Generator should not be reinitialized")
	}
}

func TestUidGeneratorInitKeyValidation(t *testing.T) {
	for _, key := range [][]byte{nil, {}, []byte("short"), []byte("testkey1testkey")} {
		ug := &UidGenerator{}
		if err := ug.Init(1, key); err == nil {
			t.Errorf("Expected error for key %q, got none", key)
		}
	}
}

func TestUidGeneratorGet(t *testing.T) {
	ug := &UidGenerator{}
	if err := ug.Init(1, testXteaKey); err != nil {
		t.Fatalf("Failed to initialize generator: %v", err)
	}

	uids := make(map[Uid]bool)
	for i := 0; i < 1000; i++ {
		uid := ug.Get()
		if uid == ZeroUid {
			t.Errorf("UID %d should not be zero", i)
		}
		if uids[uid] {
			t.Errorf("Duplicate UID generated: %v", uid)
		}
		uids[uid] = true
	}
}

func TestUidGeneratorGetUninitialized(t *testing.T) {
	ug := &UidGenerator{}
	if uid := ug.Get(); uid != ZeroUid {
		t.Error("Expected ZeroUid from uninitialized generator")
	}
	if s := ug.GetStr(); s != "" {
		t.Error("Expected empty string from uninitialized generator")
	}
}

func TestUidGeneratorGetStr(t *testing.T) {
	ug := &UidGenerator{}
	if err := ug.Init(1, testXteaKey); err != nil {
		t.Fatalf("Failed to initialize generator: %v", err)
	}

	uidStr := ug.GetStr()
	if uidStr == "" {
		t.Fatal("Generated UID string should not be empty")
	}
	decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(uidStr)
	if err != nil {
		t.Fatalf("Generated UID string should be valid base64: %v", err)
	}
	if len(decoded) != 8 {
		t.Errorf("Decoded UID should be 8 bytes, got %d", len(decoded))
	}

	// String form must parse back into a valid Uid.
	if ParseUid(uidStr).IsZero() {
		t.Error("Generated UID string should parse into a non-zero Uid")
	}
}

func TestUidGeneratorEncodeDecodeRoundtrip(t *testing.T) {
	ug := &UidGenerator{}
	if err := ug.Init(1, testXteaKey); err != nil {
		t.Fatalf("Failed to initialize generator: %v", err)
	}

	for _, val := range []int64{0, 1, 42, 12345, 1000000, 9223372036854775807} {
		encoded := ug.EncodeInt64(val)
		if decoded := ug.DecodeUid(encoded); decoded != val {
			t.Errorf("Roundtrip failed for %d: got %d", val, decoded)
		}
	}

	uid := ug.Get()
	if reencoded := ug.EncodeInt64(ug.DecodeUid(uid)); reencoded != uid {
		t.Error("Generated UID roundtrip failed")
	}
}

func TestUidGeneratorConcurrency(t *testing.T) {
	ug := &UidGenerator{}
	if err := ug.Init(1, testXteaKey); err != nil {
		t.Fatalf("Failed to initialize generator: %v", err)
	}

	const numGoroutines = 10
	const uidsPerGoroutine = 100

	uidChan := make(chan Uid, numGoroutines*uidsPerGoroutine)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			for j := 0; j < uidsPerGoroutine; j++ {
				uidChan <- ug.Get()
			}
		}()
	}

	uids := make(map[Uid]bool)
	for i := 0; i < numGoroutines*uidsPerGoroutine; i++ {
		uid := <-uidChan
		if uid == ZeroUid {
			t.Error("Generated UID should not be zero")
		}
		if uids[uid] {
			t.Errorf("Duplicate UID generated in concurrent test: %v", uid)
		}
		uids[uid] = true
	}
}

func BenchmarkUidGeneratorGet(b *testing.B) {
	ug := &UidGenerator{}
	if err := ug.Init(1, testXteaKey); err != nil {
		b.Fatalf("Failed to initialize generator: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ug.Get()
	}
}
