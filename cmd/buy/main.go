package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"asset-market-go/internal/common"
	"asset-market-go/internal/config"
	"asset-market-go/internal/models"

	"go.uber.org/zap"
)

func main() {
	emailFlag := flag.String("email", "", "Buyer email (required)")
	assetFlag := flag.String("asset", "", "Asset id to buy at its asking price (required)")
	flag.Parse()

	if *emailFlag == "" || *assetFlag == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	buyer, err := common.RequireUser(ctx, services.DbService, *emailFlag)
	if err != nil {
		zap.L().Fatal("Failed to resolve buyer", zap.Error(err))
	}

	asset, err := services.Market.GetAsset(ctx, *assetFlag)
	if err != nil {
		common.PrintFailure(err)
		os.Exit(1)
	}

	common.PrintHeader(fmt.Sprintf("BUYING %s FOR %s COINS", asset.Name, asset.Price.String()), common.DefaultWidth)
	result, err := services.Market.Buy(ctx, models.BuyRequest{AssetId: asset.Id, BuyerUserId: buyer.Id})
	if err != nil {
		common.PrintFailure(err)
		os.Exit(1)
	}

	fmt.Printf("✓ Payment tx:   %s\n", result.PaymentTxId)
	fmt.Printf("  Transfer tx:  %s\n", result.AssetTransferTxId)
	common.PrintFooter(fmt.Sprintf("%s now belongs to %s", asset.Name, buyer.Email), common.DefaultWidth)
}
