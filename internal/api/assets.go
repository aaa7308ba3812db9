package api

import (
	"context"

	"asset-market-go/internal/chain"
	"asset-market-go/internal/models"

	"github.com/shopspring/decimal"
)

func (s *MarketService) CreateAsset(ctx context.Context, req models.CreateAssetRequest) (*models.CreateAssetResult, error) {
	return s.creator.CreateAsset(ctx, req)
}

func (s *MarketService) Buy(ctx context.Context, req models.BuyRequest) (*models.PurchaseResult, error) {
	if err := required("asset_id", req.AssetId); err != nil {
		return nil, err
	}
	if err := required("buyer_user_id", req.BuyerUserId); err != nil {
		return nil, err
	}
	return s.purchaser.Buy(ctx, req)
}

func (s *MarketService) SetListing(ctx context.Context, req models.SetListingRequest) (*models.Asset, error) {
	if err := required("asset_id", req.AssetId); err != nil {
		return nil, err
	}
	return s.catalog.SetListing(ctx, req)
}

func (s *MarketService) GetAsset(ctx context.Context, assetId string) (*models.Asset, error) {
	if err := required("asset_id", assetId); err != nil {
		return nil, err
	}
	asset, err := s.registry.GetAsset(ctx, assetId)
	if err != nil {
		return nil, readError(err, "asset", assetId)
	}
	return asset, nil
}

// GetListedAssets returns every asset currently for sale
func (s *MarketService) GetListedAssets(ctx context.Context) ([]models.Asset, error) {
	assets, err := s.registry.ListListedAssets(ctx)
	if err != nil {
		return nil, readError(err, "listed assets", "")
	}
	return assets, nil
}

// GetOwnedAssets returns assets held by any wallet of the user
func (s *MarketService) GetOwnedAssets(ctx context.Context, userId string) ([]models.Asset, error) {
	if err := required("user_id", userId); err != nil {
		return nil, err
	}
	assets, err := s.registry.ListAssetsByOwner(ctx, userId)
	if err != nil {
		return nil, readError(err, "owned assets", userId)
	}
	return assets, nil
}

func (s *MarketService) GetAssetHistory(ctx context.Context, assetId string) ([]models.TransactionHistory, error) {
	if err := required("asset_id", assetId); err != nil {
		return nil, err
	}
	history, err := s.registry.GetAssetHistory(ctx, assetId)
	if err != nil {
		return nil, readError(err, "asset history", assetId)
	}
	return history, nil
}

// GetUserHistory returns paginated ownership events where the user bought or sold
func (s *MarketService) GetUserHistory(ctx context.Context, userId string, limit, offset int) ([]models.TransactionHistory, error) {
	if err := required("user_id", userId); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	history, err := s.registry.GetUserHistory(ctx, userId, limit, offset)
	if err != nil {
		return nil, readError(err, "user history", userId)
	}
	return history, nil
}

// GetWalletBalances returns the ledger coin balance of each wallet of a user
func (s *MarketService) GetWalletBalances(ctx context.Context, userId string) ([]models.WalletBalance, error) {
	if err := required("user_id", userId); err != nil {
		return nil, err
	}
	wallets, err := s.registry.GetUserWallets(ctx, userId)
	if err != nil {
		return nil, readError(err, "wallets", userId)
	}

	result := make([]models.WalletBalance, 0, len(wallets))
	for _, w := range wallets {
		units, err := s.chain.GetAddressBalance(ctx, w.Address)
		if err != nil {
			return nil, ledgerReadError("getaddressbalance", err)
		}
		result = append(result, models.WalletBalance{
			WalletId:  w.Id,
			Address:   w.Address,
			IsPrimary: w.IsPrimary,
			Balance:   chain.FromBaseUnits(units),
			BaseUnits: units,
		})
	}
	return result, nil
}

// TotalBalance sums wallet balances
func TotalBalance(balances []models.WalletBalance) decimal.Decimal {
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b.Balance)
	}
	return total
}
