package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"asset-market-go/internal/common"
	"asset-market-go/internal/config"
	"asset-market-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func printAssets(assets []models.Asset) {
	for i, a := range assets {
		listed := "unlisted"
		if a.IsListed {
			listed = "listed"
		}
		fmt.Printf("%s%-24s %14s  %-8s  id %s\n",
			common.BoxPrefix(i == len(assets)-1), a.Name, a.Price.StringFixed(8), listed, a.Id)
	}
}

func printHistory(history []models.TransactionHistory) {
	for i, h := range history {
		fmt.Printf("%s%s  %-14s %14s  asset %s  tx %s\n",
			common.BoxPrefix(i == len(history)-1),
			h.CreatedAt.Format("2006-01-02 15:04:05"), h.TransactionType,
			h.PriceAtTransaction.StringFixed(8), common.ShortId(h.AssetId), common.ShortId(h.BlockchainAssetTxId))
	}
}

func main() {
	ctx := context.Background()

	actionFlag := flag.String("action", "listed", "One of listed, owned, history, list, unlist")
	emailFlag := flag.String("email", "", "User email (owned, history, list, unlist)")
	assetFlag := flag.String("asset", "", "Asset id (history of one asset, list, unlist)")
	priceFlag := flag.String("price", "", "New asking price when listing (optional)")
	limitFlag := flag.Int("limit", 20, "Maximum history rows")
	offsetFlag := flag.Int("offset", 0, "History rows to skip")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()
	svc := services.Market

	switch *actionFlag {
	case "listed":
		assets, err := svc.GetListedAssets(ctx)
		exitOnFailure(err)
		common.PrintHeader("ASSETS FOR SALE", common.WideWidth)
		printAssets(assets)

	case "owned":
		user, err := common.RequireUser(ctx, services.DbService, *emailFlag)
		exitOnFailure(err)
		assets, err := svc.GetOwnedAssets(ctx, user.Id)
		exitOnFailure(err)
		common.PrintHeader(fmt.Sprintf("ASSETS OWNED BY %s", user.Email), common.WideWidth)
		printAssets(assets)

	case "history":
		if *assetFlag != "" {
			history, err := svc.GetAssetHistory(ctx, *assetFlag)
			exitOnFailure(err)
			common.PrintHeader(fmt.Sprintf("HISTORY OF %s", *assetFlag), common.WideWidth)
			printHistory(history)
			return
		}
		user, err := common.RequireUser(ctx, services.DbService, *emailFlag)
		exitOnFailure(err)
		history, err := svc.GetUserHistory(ctx, user.Id, *limitFlag, *offsetFlag)
		exitOnFailure(err)
		common.PrintHeader(fmt.Sprintf("HISTORY OF %s", user.Email), common.WideWidth)
		printHistory(history)

	case "list", "unlist":
		user, err := common.RequireUser(ctx, services.DbService, *emailFlag)
		exitOnFailure(err)
		req := models.SetListingRequest{AssetId: *assetFlag, OwnerUserId: user.Id, Listed: *actionFlag == "list"}
		if *priceFlag != "" {
			price, err := decimal.NewFromString(*priceFlag)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: invalid price %q: %v\n", *priceFlag, err)
				os.Exit(2)
			}
			req.Price = &price
		}
		asset, err := svc.SetListing(ctx, req)
		exitOnFailure(err)
		printAssets([]models.Asset{*asset})

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown action %q\n", *actionFlag)
		flag.Usage()
		os.Exit(2)
	}
}

func exitOnFailure(err error) {
	if err != nil {
		common.PrintFailure(err)
		os.Exit(1)
	}
}
