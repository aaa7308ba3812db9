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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strings"

	"asset-market-go/internal/common"
	"asset-market-go/internal/config"
	"asset-market-go/internal/database"
	"asset-market-go/internal/models"
	"asset-market-go/internal/store"
	"asset-market-go/internal/vault"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

// getOrCreateUser returns the user registered under email, creating it when absent
func getOrCreateUser(ctx context.Context, dbService *database.Service, name, email string) (*models.User, bool, error) {
	existing, err := dbService.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("error looking up user: %w", err)
	}
	if err := validateName(name); err != nil {
		return nil, false, err
	}
	user, err := dbService.CreateUser(ctx, uuid.New().String(), name, email)
	if err != nil {
		return nil, false, fmt.Errorf("error creating user: %w", err)
	}
	return user, true, nil
}

// registerWallet encrypts the signing key and stores the wallet
func registerWallet(ctx context.Context, dbService *database.Service, v *vault.Vault, userId, address, wif string, primary bool) (*models.Wallet, error) {
	encrypted, err := v.Encrypt(wif)
	if err != nil {
		return nil, fmt.Errorf("error encrypting signing key: %w", err)
	}
	return dbService.CreateWallet(ctx, store.CreateWalletParams{
		UserId:       userId,
		Address:      address,
		EncryptedKey: encrypted,
		MakePrimary:  primary,
	})
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	nameFlag := flag.String("name", "", "User's full name (required for new users)")
	emailFlag := flag.String("email", "", "User's email address (required)")
	addressFlag := flag.String("address", "", "Ledger address of the wallet to register (optional)")
	wifFlag := flag.String("wif", "", "WIF signing key of the wallet (defaults to WALLET_WIF env var)")
	primaryFlag := flag.Bool("primary", false, "Make the new wallet the user's primary wallet")
	flag.Parse()

	email := strings.TrimSpace(*emailFlag)
	if err := validateEmail(email); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	user, created, err := getOrCreateUser(ctx, dbService, strings.TrimSpace(*nameFlag), email)
	if err != nil {
		logger.Fatal("Failed to resolve user", zap.Error(err))
	}
	if created {
		fmt.Printf("✓ Created user %s (%s) id=%s\n", user.Name, user.Email, user.Id)
	} else {
		fmt.Printf("• Using existing user %s (%s) id=%s\n", user.Name, user.Email, user.Id)
	}

	if *addressFlag == "" {
		return
	}

	wif := *wifFlag
	if wif == "" {
		wif = os.Getenv("WALLET_WIF")
	}
	if wif == "" {
		logger.Fatal("A signing key is required to register a wallet (-wif or WALLET_WIF)")
	}

	v, err := vault.NewFromConfig(cfg.Vault)
	if err != nil {
		logger.Fatal("Failed to initialize vault", zap.Error(err))
	}

	wallet, err := registerWallet(ctx, dbService, v, user.Id, strings.TrimSpace(*addressFlag), wif, *primaryFlag)
	if err != nil {
		logger.Fatal("Failed to register wallet",
			zap.String("user_id", user.Id),
			zap.String("address", *addressFlag),
			zap.Error(err))
	}

	primary := ""
	if wallet.IsPrimary {
		primary = " (primary)"
	}
	fmt.Printf("✓ Registered wallet %s%s id=%s\n", wallet.Address, primary, wallet.Id)
	logger.Info("Wallet registered",
		zap.String("user_id", user.Id),
		zap.String("wallet_id", wallet.Id),
		zap.String("address", wallet.Address),
		zap.Bool("primary", wallet.IsPrimary))
}
