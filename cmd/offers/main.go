package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"asset-market-go/internal/common"
	"asset-market-go/internal/config"
	"asset-market-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const usage = `actions:
  make      -email -asset -price [-ttl]   offer on a listed asset
  cancel    -email -offer                 withdraw your pending offer
  reject    -email -offer                 decline an offer on an asset you own
  accept    -email -offer                 transfer your asset to the offerer
  made      -email                        offers you have made
  received  -email                        pending offers on assets you own
  asset     -asset                        every offer on an asset`

func printOffers(offers []models.Offer) {
	for i, o := range offers {
		fmt.Printf("%s%s  %-9s %14s  asset %s  expires %s\n",
			common.BoxPrefix(i == len(offers)-1),
			o.Id, o.Status, o.OfferPrice.StringFixed(8), common.ShortId(o.AssetId),
			o.ExpiresAt.Format(time.RFC3339))
	}
}

func main() {
	actionFlag := flag.String("action", "", "One of make, cancel, reject, accept, made, received, asset")
	emailFlag := flag.String("email", "", "Acting user email")
	assetFlag := flag.String("asset", "", "Asset id")
	offerFlag := flag.String("offer", "", "Offer id")
	priceFlag := flag.String("price", "", "Offer price in coins")
	ttlFlag := flag.Duration("ttl", 0, "Offer lifetime (default OFFER_DEFAULT_TTL)")
	flag.Usage = func() {
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr, usage)
	}
	flag.Parse()

	if *actionFlag == "" {
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

	user := func() common.UserInfo {
		u, err := common.RequireUser(ctx, services.DbService, *emailFlag)
		if err != nil {
			zap.L().Fatal("Failed to resolve user", zap.Error(err))
		}
		return u
	}

	svc := services.Market
	switch *actionFlag {
	case "make":
		price, err := decimal.NewFromString(*priceFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid price %q: %v\n", *priceFlag, err)
			os.Exit(2)
		}
		req := models.MakeOfferRequest{AssetId: *assetFlag, OffererUserId: user().Id, OfferPrice: price}
		if *ttlFlag > 0 {
			req.ExpiresAt = time.Now().Add(*ttlFlag)
		}
		offer, err := svc.MakeOffer(ctx, req)
		exitOnFailure(err)
		fmt.Printf("✓ Offer %s pending until %s\n", offer.Id, offer.ExpiresAt.Format(time.RFC3339))

	case "cancel":
		exitOnFailure(svc.CancelOffer(ctx, *offerFlag, user().Id))
		fmt.Printf("✓ Offer %s cancelled\n", *offerFlag)

	case "reject":
		exitOnFailure(svc.RejectOffer(ctx, *offerFlag, user().Id))
		fmt.Printf("✓ Offer %s rejected\n", *offerFlag)

	case "accept":
		result, err := svc.AcceptOffer(ctx, *offerFlag, user().Id)
		exitOnFailure(err)
		fmt.Printf("✓ Offer %s accepted, transfer tx %s\n", result.OfferId, result.TxId)

	case "made":
		u := user()
		offers, err := svc.GetOffersMade(ctx, u.Id)
		exitOnFailure(err)
		common.PrintHeader(fmt.Sprintf("OFFERS MADE BY %s", u.Email), common.WideWidth)
		printOffers(offers)

	case "received":
		u := user()
		received, err := svc.GetOffersReceived(ctx, u.Id)
		exitOnFailure(err)
		common.PrintHeader(fmt.Sprintf("PENDING OFFERS RECEIVED BY %s", u.Email), common.WideWidth)
		for i, r := range received {
			fmt.Printf("%s%s  %14s  on %s (asking %s)\n",
				common.BoxPrefix(i == len(received)-1),
				r.Offer.Id, r.Offer.OfferPrice.StringFixed(8), r.Asset.Name, r.Asset.Price.String())
		}

	case "asset":
		offers, err := svc.GetOffersForAsset(ctx, *assetFlag)
		exitOnFailure(err)
		common.PrintHeader(fmt.Sprintf("OFFERS ON %s", *assetFlag), common.WideWidth)
		printOffers(offers)

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
