package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("VAULT_KEY", "")
	t.Setenv("VAULT_PASSPHRASE", "")
	t.Setenv("VAULT_SALT", "")
	t.Setenv("CHAIN_CONFIRMATIONS", "")
	t.Setenv("OFFER_DEFAULT_TTL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Chain.Confirmations != 1 {
		t.Errorf("Expected 1 confirmation by default, got %d", cfg.Chain.Confirmations)
	}
	if cfg.Market.DefaultOfferTTL != 24*time.Hour {
		t.Errorf("Expected 24h default offer TTL, got %v", cfg.Market.DefaultOfferTTL)
	}
	if cfg.Database.Path != "market.db" {
		t.Errorf("Expected default database path market.db, got %s", cfg.Database.Path)
	}
	if cfg.Formance.Enabled() {
		t.Error("Expected formance mirror to be disabled without FORMANCE_STACK_URL")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("CHAIN_POLL_INTERVAL", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error for invalid CHAIN_POLL_INTERVAL")
	}
}

func TestLoad_RejectsZeroConfirmations(t *testing.T) {
	t.Setenv("CHAIN_CONFIRMATIONS", "0")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error for CHAIN_CONFIRMATIONS=0")
	}
}

func TestLoad_PassphraseRequiresSalt(t *testing.T) {
	t.Setenv("VAULT_KEY", "")
	t.Setenv("VAULT_PASSPHRASE", "correct horse")
	t.Setenv("VAULT_SALT", "")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error when VAULT_PASSPHRASE is set without VAULT_SALT")
	}
}
