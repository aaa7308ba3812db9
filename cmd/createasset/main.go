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

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	emailFlag := flag.String("email", "", "Owner email (required)")
	nameFlag := flag.String("name", "", "Unique asset name (required)")
	descFlag := flag.String("description", "", "Asset description")
	priceFlag := flag.String("price", "", "Asking price in coins, e.g. 12.5 (required)")
	refFlag := flag.String("ref", "", "Content reference hash, e.g. an IPFS CID")
	listFlag := flag.Bool("list", false, "List the asset for sale once created")
	flag.Parse()

	if *emailFlag == "" || *nameFlag == "" || *priceFlag == "" {
		flag.Usage()
		os.Exit(2)
	}
	price, err := decimal.NewFromString(*priceFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid price %q: %v\n", *priceFlag, err)
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

	owner, err := common.RequireUser(ctx, services.DbService, *emailFlag)
	if err != nil {
		zap.L().Fatal("Failed to resolve owner", zap.Error(err))
	}

	common.PrintHeader(fmt.Sprintf("CREATING ASSET %s FOR %s", *nameFlag, owner.Email), common.DefaultWidth)
	result, err := services.Market.CreateAsset(ctx, models.CreateAssetRequest{
		Name:          *nameFlag,
		Description:   *descFlag,
		Price:         price,
		ReferenceHash: *refFlag,
		OwnerUserId:   owner.Id,
		List:          *listFlag,
	})
	if err != nil {
		common.PrintFailure(err)
		os.Exit(1)
	}

	fmt.Printf("✓ Asset id:         %s\n", result.AssetId)
	fmt.Printf("  Ledger asset id:  %s\n", result.NumericAssetId)
	fmt.Printf("  Creation tx:      %s\n", result.CreationTxId)
	fmt.Printf("  Mint tx:          %s\n", result.MintTxId)
	fmt.Printf("  Transfer tx:      %s\n", result.SendTxId)
	common.PrintFooter("Asset created", common.DefaultWidth)
}
