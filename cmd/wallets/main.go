package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"asset-market-go/internal/common"
	"asset-market-go/internal/config"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "User email (required)")
	primaryFlag := flag.String("set-primary", "", "Wallet id to make primary (optional)")
	flag.Parse()

	if *emailFlag == "" {
		flag.Usage()
		os.Exit(2)
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

	user, err := common.RequireUser(ctx, dbService, *emailFlag)
	if err != nil {
		logger.Fatal("Failed to resolve user", zap.Error(err))
	}

	if *primaryFlag != "" {
		if err := dbService.SetPrimaryWallet(ctx, user.Id, *primaryFlag); err != nil {
			logger.Fatal("Failed to set primary wallet",
				zap.String("user_id", user.Id),
				zap.String("wallet_id", *primaryFlag),
				zap.Error(err))
		}
		fmt.Printf("✓ Wallet %s is now primary\n", *primaryFlag)
	}

	wallets, err := dbService.GetUserWallets(ctx, user.Id)
	if err != nil {
		logger.Fatal("Failed to list wallets", zap.Error(err))
	}

	fmt.Printf("\n┌─ User: %s (%s)\n", user.Name, user.Email)
	fmt.Printf("│  Wallets: %d\n", len(wallets))
	common.PrintBoxSeparator(78)
	for i, w := range wallets {
		marker := " "
		if w.IsPrimary {
			marker = "*"
		}
		fmt.Printf("%s%s %-36s %s (added %s)\n",
			common.BoxPrefix(i == len(wallets)-1), marker, w.Address, w.Id, w.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}
