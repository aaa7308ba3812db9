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
	"flag"
	"fmt"
	"os"

	"asset-market-go/internal/common"
	"asset-market-go/internal/config"
	"asset-market-go/internal/journal"
	"asset-market-go/internal/vault"

	"go.uber.org/zap"
)

// runInit creates the Registry schema and the journal directory
func runInit(ctx context.Context) {
	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	zap.L().Info("Setting up SQLite database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	users, err := dbService.GetUsers(ctx)
	if err != nil {
		zap.L().Fatal("Failed to read users from database", zap.Error(err))
	}

	zap.L().Info("Opening pipeline journal", zap.String("dir", cfg.Journal.Dir))
	j, err := journal.Open(cfg.Journal)
	if err != nil {
		zap.L().Fatal("Failed to open journal", zap.Error(err))
	}
	unfinished := len(j.Unfinished())
	if err := j.Close(); err != nil {
		zap.L().Warn("Failed to close journal", zap.Error(err))
	}

	profile, err := common.LoadAssetProfile(cfg.Market.AssetProfileFile)
	if err != nil {
		zap.L().Fatal("Failed to load asset profile", zap.Error(err))
	}

	if cfg.Market.PlatformWalletAddress == "" {
		zap.L().Warn("PLATFORM_WALLET_ADDRESS is not set, asset creation will be refused")
	}

	zap.L().Info("Initialization complete",
		zap.Int("users", len(users)),
		zap.Int("unfinished_runs", unfinished),
		zap.Int("asset_type", profile.Type),
		zap.Int("max_mint_count", profile.MaxMintCount))
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	initFlag := flag.Bool("init", false, "Initialize the database and journal")
	genKeyFlag := flag.Bool("genkey", false, "Print a new random VAULT_KEY and exit")
	flag.Parse()

	if *genKeyFlag {
		key, err := vault.GenerateKey()
		if err != nil {
			zap.L().Fatal("Failed to generate vault key", zap.Error(err))
		}
		fmt.Printf("VAULT_KEY=%s\n", key)
		return
	}

	if !*initFlag {
		flag.Usage()
		os.Exit(2)
	}
	runInit(ctx)
}
