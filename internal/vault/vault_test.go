package vault

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"asset-market-go/internal/models"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func newTestVault(t *testing.T, seed byte) *Vault {
	t.Helper()
	v, err := New(bytes.Repeat([]byte{seed}, KeySize))
	if err != nil {
		t.Fatalf("Failed to create vault: %v", err)
	}
	return v
}

func TestVault_RoundTripProperty(t *testing.T) {
	v := newTestVault(t, 7)
	properties := gopter.NewProperties(nil)

	properties.Property("decrypt(encrypt(p)) == p", prop.ForAll(
		func(p string) bool {
			ct, err := v.Encrypt(p)
			if err != nil {
				return false
			}
			got, err := v.Decrypt(ct)
			return err == nil && got == p
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestVault_TamperDetectionProperty(t *testing.T) {
	v := newTestVault(t, 9)
	properties := gopter.NewProperties(nil)

	properties.Property("flipping any ciphertext byte fails with ErrKeyCorruption", prop.ForAll(
		func(p string, pos int) bool {
			ct, err := v.Encrypt(p)
			if err != nil {
				return false
			}
			raw, _ := base64.StdEncoding.DecodeString(strings.TrimPrefix(ct, formatPrefix))
			raw[pos%len(raw)] ^= 0x01
			tampered := formatPrefix + base64.StdEncoding.EncodeToString(raw)

			_, err = v.Decrypt(tampered)
			return errors.Is(err, ErrKeyCorruption)
		},
		gen.AlphaString(),
		gen.IntRange(0, 1<<16),
	))

	properties.TestingRun(t)
}

func TestVault_RandomNonce(t *testing.T) {
	v := newTestVault(t, 1)

	a, err := v.Encrypt("wif-secret")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	b, err := v.Encrypt("wif-secret")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if a == b {
		t.Error("Expected distinct ciphertexts for the same plaintext")
	}
}

func TestVault_RotatedKey(t *testing.T) {
	ct, err := newTestVault(t, 1).Encrypt("wif-secret")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	_, err = newTestVault(t, 2).Decrypt(ct)
	if !errors.Is(err, ErrKeyCorruption) {
		t.Errorf("Expected ErrKeyCorruption after key rotation, got %v", err)
	}
}

func TestVault_MalformedInput(t *testing.T) {
	v := newTestVault(t, 1)

	for _, input := range []string{"", "plain", "v1:!!!", "v1:" + base64.StdEncoding.EncodeToString([]byte("short"))} {
		if _, err := v.Decrypt(input); !errors.Is(err, ErrKeyCorruption) {
			t.Errorf("Decrypt(%q): expected ErrKeyCorruption, got %v", input, err)
		}
	}
}

func TestNewFromConfig(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	if _, err := NewFromConfig(models.VaultConfig{Key: key}); err != nil {
		t.Errorf("Expected raw key config to work, got %v", err)
	}
	if _, err := NewFromConfig(models.VaultConfig{Passphrase: "pass", Salt: "salty-salt"}); err != nil {
		t.Errorf("Expected passphrase config to work, got %v", err)
	}
	if _, err := NewFromConfig(models.VaultConfig{}); err == nil {
		t.Error("Expected error for empty vault config")
	}
	if _, err := NewFromConfig(models.VaultConfig{Key: base64.StdEncoding.EncodeToString([]byte("short"))}); err == nil {
		t.Error("Expected error for short key")
	}
}
