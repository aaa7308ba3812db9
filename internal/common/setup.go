package common

import (
	"context"
	"log"
	"strings"

	"asset-market-go/internal/api"
	"asset-market-go/internal/chain"
	"asset-market-go/internal/database"
	"asset-market-go/internal/formance"
	"asset-market-go/internal/journal"
	"asset-market-go/internal/market"
	"asset-market-go/internal/models"
	"asset-market-go/internal/vault"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

// Services holds everything a command needs to drive the marketplace
type Services struct {
	DbService   *database.Service
	Chain       *chain.RPCClient
	Vault       *vault.Vault
	Journal     *journal.Journal
	Settlements *formance.Service
	Market      *api.MarketService
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the Registry, vault, ledger client and journal,
// and the optional settlement mirror, then wires the marketplace pipelines.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	services := &Services{DbService: dbService}

	zap.L().Info("Loading vault key")
	services.Vault, err = vault.NewFromConfig(cfg.Vault)
	if err != nil {
		services.Close()
		return nil, err
	}

	zap.L().Info("Connecting to ledger node", zap.String("host", cfg.Chain.Host), zap.Int("port", cfg.Chain.Port))
	services.Chain, err = chain.NewRPCClient(ctx, cfg.Chain)
	if err != nil {
		services.Close()
		return nil, err
	}

	services.Journal, err = journal.Open(cfg.Journal)
	if err != nil {
		services.Close()
		return nil, err
	}
	if unfinished := services.Journal.Unfinished(); len(unfinished) > 0 {
		zap.L().Warn("Journal contains unfinished pipeline runs, run reconcile to review them",
			zap.Int("count", len(unfinished)))
	}

	profile, err := LoadAssetProfile(cfg.Market.AssetProfileFile)
	if err != nil {
		services.Close()
		return nil, err
	}

	marketCfg := market.Config{
		Registry:              dbService,
		Chain:                 services.Chain,
		Vault:                 services.Vault,
		Journal:               services.Journal,
		Confirmations:         cfg.Chain.Confirmations,
		ConfirmationTimeout:   cfg.Chain.ConfirmationTimeout,
		PaymentFee:            cfg.Chain.PaymentFee,
		PlatformWalletAddress: cfg.Market.PlatformWalletAddress,
		DefaultOfferTTL:       cfg.Market.DefaultOfferTTL,
		AssetProfile:          profile,
	}

	if cfg.Formance.Enabled() {
		services.Settlements, err = formance.NewService(ctx, cfg.Formance)
		if err != nil {
			services.Close()
			return nil, err
		}
		marketCfg.Settlements = services.Settlements
	} else {
		zap.L().Info("Settlement mirror disabled (FORMANCE_STACK_URL not set)")
	}

	services.Market = api.NewMarketService(marketCfg)
	return services, nil
}

// InitializeDatabaseOnly initializes just the Registry without the ledger node.
// Useful for user and wallet administration.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	return database.NewService(ctx, cfg.Database)
}

func (cs *Services) Close() {
	if cs.Journal != nil {
		if err := cs.Journal.Close(); err != nil {
			zap.L().Warn("Failed to close journal", zap.Error(err))
		}
	}
	if cs.Chain != nil {
		cs.Chain.Close()
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
