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

	"asset-market-go/internal/api"
	"asset-market-go/internal/common"
	"asset-market-go/internal/config"
	"asset-market-go/internal/models"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers        int
	totalWallets      int
	usersWithBalances int
}

func printBalance(balance models.WalletBalance, isLast bool) {
	primary := ""
	if balance.IsPrimary {
		primary = " (primary)"
	}
	fmt.Printf("%s %-36s: %20s%s\n",
		common.BoxPrefix(isLast),
		balance.Address,
		balance.Balance.StringFixed(8),
		primary)
}

func printUserHeader(user common.UserInfo, walletCount int) {
	fmt.Printf("\n┌─ User: %s (%s)\n", user.Name, user.Email)
	fmt.Printf("│  ID: %s\n", user.Id)
	fmt.Printf("│  Wallets: %d\n", walletCount)
	common.PrintBoxSeparator(78)
}

func processUser(ctx context.Context, user common.UserInfo, services *common.Services) (int, error) {
	balances, err := services.Market.GetWalletBalances(ctx, user.Id)
	if err != nil {
		return 0, fmt.Errorf("failed to get balances: %w", err)
	}
	if len(balances) == 0 {
		return 0, nil
	}

	printUserHeader(user, len(balances))
	for i, balance := range balances {
		printBalance(balance, i == len(balances)-1)
	}
	fmt.Printf("   total: %s\n", api.TotalBalance(balances).StringFixed(8))

	if services.Settlements != nil {
		position, err := services.Settlements.UserBalance(ctx, user.Id)
		if err != nil {
			zap.L().Warn("Failed to read settlement position", zap.String("user_id", user.Id), zap.Error(err))
		} else {
			fmt.Printf("   settlement position: %s\n", position.StringFixed(8))
		}
	}
	return len(balances), nil
}

func processUsersAndGenerateReport(ctx context.Context, users []common.UserInfo, services *common.Services, logger *zap.Logger) balanceStats {
	stats := balanceStats{}

	for _, user := range users {
		stats.totalUsers++

		walletCount, err := processUser(ctx, user, services)
		if err != nil {
			logger.Error("Failed to process user",
				zap.String("user_id", user.Id),
				zap.String("user_name", user.Name),
				zap.Error(err))
			continue
		}

		if walletCount > 0 {
			stats.usersWithBalances++
			stats.totalWallets += walletCount
		}
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "Filter by specific user email (optional)")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	users, err := common.InitializeUsers(ctx, services.DbService, *emailFlag, logger)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	common.PrintHeader("WALLET BALANCE REPORT", common.DefaultWidth)

	stats := processUsersAndGenerateReport(ctx, users, services, logger)

	summary := fmt.Sprintf("SUMMARY: %d users with wallets (%d wallets across %d users queried)",
		stats.usersWithBalances, stats.totalWallets, stats.totalUsers)
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_wallets", stats.usersWithBalances),
		zap.Int("total_wallets", stats.totalWallets))
}
