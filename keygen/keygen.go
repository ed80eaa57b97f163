// Command keygen generates the random keys the server config needs: the HMAC
// key for signing login tokens (auth_config.token.key) and the XTEA key for
// obfuscating object ids (store_config.uid_key).
package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
)

// XTEA key length in bytes.
const uidKeyLen = 16

// generateKey returns size random bytes base64-encoded.
func generateKey(size int) (string, error) {
	key := make([]byte, size)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// validateKey decodes a base64-encoded key and checks it against the minimum
// size. Returns the decoded length.
func validateKey(key string, minSize int) (int, error) {
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return 0, err
	}
	if len(raw) < minSize {
		return len(raw), fmt.Errorf("key is %d bytes, must be at least %d", len(raw), minSize)
	}
	return len(raw), nil
}

func main() {
	var tokenKeySize = flag.Int("size", sha256.Size, "Size of the token signing key in bytes.")
	var validate = flag.String("validate", "", "Base64-encoded token signing key to check.")

	flag.Parse()

	if *validate != "" {
		size, err := validateKey(*validate, sha256.Size)
		if err != nil {
			fmt.Println("Invalid key:", err)
			os.Exit(1)
		}
		fmt.Printf("Valid %d-byte key\n", size)
		return
	}

	if *tokenKeySize < sha256.Size {
		fmt.Printf("Signing key must be at least %d bytes\n", sha256.Size)
		os.Exit(1)
	}

	tokenKey, err := generateKey(*tokenKeySize)
	if err != nil {
		fmt.Println("Failed to generate token key:", err)
		os.Exit(1)
	}
	uidKey, err := generateKey(uidKeyLen)
	if err != nil {
		fmt.Println("Failed to generate uid key:", err)
		os.Exit(1)
	}

	fmt.Println("Token signing key (auth_config.token.key):", tokenKey)
	fmt.Println("Uid obfuscation key (store_config.uid_key):", uidKey)
}
