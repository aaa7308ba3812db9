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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"asset-market-go/internal/models"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	busyTimeout, err := getEnvDuration("DB_BUSY_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	confirmationTimeout, err := getEnvDuration("CHAIN_CONFIRMATION_TIMEOUT", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	pollInterval, err := getEnvDuration("CHAIN_POLL_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}

	offerTTL, err := getEnvDuration("OFFER_DEFAULT_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	sweepInterval, err := getEnvDuration("OFFER_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}

	rps, err := getEnvFloat("RPC_REQUESTS_PER_SECOND", 20)
	if err != nil {
		return nil, err
	}

	paymentFee, err := getEnvInt64("CHAIN_PAYMENT_FEE", 10000)
	if err != nil {
		return nil, err
	}

	cfg := &models.Config{
		Database: models.DatabaseConfig{
			Path:             getEnvString("DATABASE_PATH", "market.db"),
			MaxOpenConns:     getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  connMaxLifetime,
			ConnMaxIdleTime:  connMaxIdleTime,
			PingTimeout:      pingTimeout,
			BusyTimeout:      busyTimeout,
			CreateDummyUsers: getEnvBool("CREATE_DUMMY_USERS", false),
		},
		Chain: models.ChainConfig{
			Host:                getEnvString("RPC_HOST", "127.0.0.1"),
			Port:                getEnvInt("RPC_PORT", 8766),
			User:                os.Getenv("RPC_USER"),
			Password:            os.Getenv("RPC_PASSWORD"),
			UseTLS:              getEnvBool("RPC_USE_TLS", false),
			RequestsPerSecond:   rps,
			Burst:               getEnvInt("RPC_BURST", 5),
			Confirmations:       getEnvInt("CHAIN_CONFIRMATIONS", 1),
			ConfirmationTimeout: confirmationTimeout,
			PollInterval:        pollInterval,
			PaymentFee:          paymentFee,
			ReadRetries:         getEnvInt("CHAIN_READ_RETRIES", 3),
		},
		Vault: models.VaultConfig{
			Key:        os.Getenv("VAULT_KEY"),
			Passphrase: os.Getenv("VAULT_PASSPHRASE"),
			Salt:       os.Getenv("VAULT_SALT"),
		},
		Market: models.MarketConfig{
			PlatformWalletAddress: os.Getenv("PLATFORM_WALLET_ADDRESS"),
			DefaultOfferTTL:       offerTTL,
			SweepInterval:         sweepInterval,
			AssetProfileFile:      getEnvString("ASSET_PROFILE_FILE", "asset_profile.yaml"),
			ReconcileConcurrency:  getEnvInt("RECONCILE_CONCURRENCY", 4),
		},
		Journal: models.JournalConfig{
			Dir:              getEnvString("JOURNAL_DIR", "journal"),
			SegmentThreshold: getEnvInt("JOURNAL_SEGMENT_THRESHOLD", 1000),
			MaxSegments:      getEnvInt("JOURNAL_MAX_SEGMENTS", 10),
		},
		Formance: models.FormanceConfig{
			StackURL:     os.Getenv("FORMANCE_STACK_URL"),
			ClientID:     os.Getenv("FORMANCE_CLIENT_ID"),
			ClientSecret: os.Getenv("FORMANCE_CLIENT_SECRET"),
			LedgerName:   getEnvString("FORMANCE_LEDGER", "asset-market"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *models.Config) error {
	if cfg.Chain.Confirmations < 1 {
		return fmt.Errorf("invalid CHAIN_CONFIRMATIONS: must be at least 1, got %d", cfg.Chain.Confirmations)
	}
	if cfg.Chain.PollInterval <= 0 {
		return fmt.Errorf("invalid CHAIN_POLL_INTERVAL: must be positive, got %v", cfg.Chain.PollInterval)
	}
	if cfg.Chain.ConfirmationTimeout < cfg.Chain.PollInterval {
		return fmt.Errorf("invalid CHAIN_CONFIRMATION_TIMEOUT: %v is shorter than CHAIN_POLL_INTERVAL %v",
			cfg.Chain.ConfirmationTimeout, cfg.Chain.PollInterval)
	}
	if cfg.Chain.RequestsPerSecond <= 0 {
		return fmt.Errorf("invalid RPC_REQUESTS_PER_SECOND: must be positive, got %v", cfg.Chain.RequestsPerSecond)
	}
	if cfg.Chain.PaymentFee < 0 {
		return fmt.Errorf("invalid CHAIN_PAYMENT_FEE: cannot be negative, got %d", cfg.Chain.PaymentFee)
	}
	if cfg.Market.DefaultOfferTTL <= 0 {
		return fmt.Errorf("invalid OFFER_DEFAULT_TTL: must be positive, got %v", cfg.Market.DefaultOfferTTL)
	}
	if cfg.Vault.Key == "" && (cfg.Vault.Passphrase == "") != (cfg.Vault.Salt == "") {
		return fmt.Errorf("VAULT_PASSPHRASE and VAULT_SALT must be set together")
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number for %s: %q (%w)", key, value, err)
		}
		return f, nil
	}
	return defaultValue, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	if value := os.Getenv(key); value != "" {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %q (%w)", key, value, err)
		}
		return n, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
