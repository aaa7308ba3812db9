/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package vault encrypts wallet signing keys at rest with a single
// process-wide key that never touches the database.
package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"asset-market-go/internal/models"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	formatPrefix = "v1:"
	KeySize      = chacha20poly1305.KeySize
)

// ErrKeyCorruption is returned when a ciphertext is malformed or was sealed
// under a different key.
var ErrKeyCorruption = errors.New("key corruption: ciphertext cannot be decrypted")

type Vault struct {
	aead cipher.AEAD
}

// New builds a vault from a raw 32-byte key
func New(key []byte) (*Vault, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("vault key must be %d bytes, got %d", KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize cipher: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// NewFromPassphrase derives the key with argon2id
func NewFromPassphrase(passphrase, salt string) (*Vault, error) {
	if passphrase == "" || salt == "" {
		return nil, fmt.Errorf("passphrase and salt are required")
	}
	key := argon2.IDKey([]byte(passphrase), []byte(salt), 1, 64*1024, 4, KeySize)
	return New(key)
}

// NewFromConfig picks the key source configured in cfg
func NewFromConfig(cfg models.VaultConfig) (*Vault, error) {
	if cfg.Key != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("invalid VAULT_KEY encoding: %w", err)
		}
		return New(key)
	}
	if cfg.Passphrase != "" {
		return NewFromPassphrase(cfg.Passphrase, cfg.Salt)
	}
	return nil, fmt.Errorf("vault is not configured: set VAULT_KEY or VAULT_PASSPHRASE and VAULT_SALT")
}

// Encrypt seals plaintext under a fresh random nonce
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize(), v.aead.NonceSize()+len(plaintext)+v.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("unable to generate nonce: %w", err)
	}
	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return formatPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

func (v *Vault) Decrypt(ciphertext string) (string, error) {
	encoded, ok := strings.CutPrefix(ciphertext, formatPrefix)
	if !ok {
		return "", fmt.Errorf("%w: unknown format", ErrKeyCorruption)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: invalid encoding", ErrKeyCorruption)
	}
	if len(raw) < v.aead.NonceSize()+v.aead.Overhead() {
		return "", fmt.Errorf("%w: truncated ciphertext", ErrKeyCorruption)
	}
	nonce, sealed := raw[:v.aead.NonceSize()], raw[v.aead.NonceSize():]
	plain, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrKeyCorruption)
	}
	return string(plain), nil
}

// GenerateKey returns a random key encoded for VAULT_KEY
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
