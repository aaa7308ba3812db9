package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"asset-market-go/internal/models"
	"asset-market-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func scanAsset(row rowScanner) (*models.Asset, error) {
	var a models.Asset
	err := row.Scan(&a.Id, &a.BlockchainAssetId, &a.Name, &a.Description, &a.Price, &a.ReferenceHash,
		&a.IsListed, &a.OwnerWalletId, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAsset records a ledger-confirmed asset together with its mint history row
func (s *Service) CreateAsset(ctx context.Context, params store.CreateAssetParams) (*models.Asset, error) {
	now := s.now().UTC()
	asset := &models.Asset{
		Id:                uuid.New().String(),
		BlockchainAssetId: params.BlockchainAssetId,
		Name:              params.Name,
		Description:       params.Description,
		Price:             params.Price,
		ReferenceHash:     params.ReferenceHash,
		IsListed:          params.IsListed,
		OwnerWalletId:     params.OwnerWalletId,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer rollback(tx)

	_, err = tx.ExecContext(ctx, queryInsertAsset,
		asset.Id, asset.BlockchainAssetId, asset.Name, asset.Description, asset.Price.StringFixed(8),
		asset.ReferenceHash, asset.IsListed, asset.OwnerWalletId, dbTime(now), dbTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("asset %s: %w", params.Name, store.ErrDuplicateAssetName)
		}
		zap.L().Error("Failed to insert asset", zap.String("name", params.Name), zap.Error(err))
		return nil, fmt.Errorf("unable to insert asset: %w", err)
	}

	mint := &models.TransactionHistory{
		AssetId:               asset.Id,
		BuyerUserId:           params.OwnerUserId,
		TransactionType:       models.TransactionTypeMint,
		PriceAtTransaction:    params.Price,
		BlockchainAssetTxId:   params.SendTxId,
		BlockchainPaymentTxId: "",
		Notes:                 "creation " + params.CreationTxId,
	}
	if err := s.insertHistory(ctx, tx, mint, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		zap.L().Error("Failed to commit asset", zap.String("name", params.Name), zap.Error(err))
		return nil, fmt.Errorf("unable to commit asset: %w", err)
	}

	zap.L().Info("Asset recorded",
		zap.String("asset_id", asset.Id),
		zap.String("blockchain_asset_id", asset.BlockchainAssetId),
		zap.String("name", asset.Name),
		zap.String("owner_wallet_id", asset.OwnerWalletId))
	return asset, nil
}

func (s *Service) GetAsset(ctx context.Context, assetId string) (*models.Asset, error) {
	return s.getAsset(ctx, queryGetAssetById, assetId)
}

func (s *Service) GetAssetByName(ctx context.Context, name string) (*models.Asset, error) {
	return s.getAsset(ctx, queryGetAssetByName, name)
}

func (s *Service) getAsset(ctx context.Context, query, key string) (*models.Asset, error) {
	asset, err := scanAsset(s.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("asset %s: %w", key, store.ErrNotFound)
		}
		zap.L().Error("Failed to query asset", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("unable to query asset: %w", err)
	}
	return asset, nil
}

func (s *Service) ListAssetsByOwner(ctx context.Context, userId string) ([]models.Asset, error) {
	return s.listAssets(ctx, queryListAssetsByOwner, userId)
}

func (s *Service) ListListedAssets(ctx context.Context) ([]models.Asset, error) {
	return s.listAssets(ctx, queryListListedAssets)
}

func (s *Service) ListAllAssets(ctx context.Context) ([]models.Asset, error) {
	return s.listAssets(ctx, queryListAllAssets)
}

func (s *Service) listAssets(ctx context.Context, query string, args ...any) ([]models.Asset, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query assets: %w", err)
	}
	defer closeRows(rows)

	var assets []models.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan asset row: %w", err)
		}
		assets = append(assets, *asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating asset rows: %w", err)
	}
	return assets, nil
}

// SetListing changes listing state and optionally the price. Only the owning
// wallet may do so; a mismatch is store.ErrConflict.
func (s *Service) SetListing(ctx context.Context, params store.SetListingParams) (*models.Asset, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer rollback(tx)

	current, err := scanAsset(tx.QueryRowContext(ctx, queryGetAssetById, params.AssetId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("asset %s: %w", params.AssetId, store.ErrNotFound)
		}
		return nil, fmt.Errorf("unable to query asset: %w", err)
	}

	price := current.Price
	if params.Price != nil {
		price = *params.Price
	}
	result, err := tx.ExecContext(ctx, queryUpdateListing,
		params.Listed, price.StringFixed(8), s.timestamp(), params.AssetId, params.OwnerWalletId)
	if err != nil {
		return nil, fmt.Errorf("unable to update listing: %w", err)
	}
	if err := expectOneRow(result, "asset owner changed"); err != nil {
		return nil, err
	}

	updated, err := scanAsset(tx.QueryRowContext(ctx, queryGetAssetById, params.AssetId))
	if err != nil {
		return nil, fmt.Errorf("unable to reload asset: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("unable to commit listing: %w", err)
	}

	zap.L().Info("Asset listing updated",
		zap.String("asset_id", updated.Id),
		zap.Bool("listed", updated.IsListed),
		zap.String("price", updated.Price.StringFixed(8)))
	return updated, nil
}

// CommitPurchase moves ownership to the buyer iff the asset is still at the
// expected owner and version. The asset is unlisted by the move.
func (s *Service) CommitPurchase(ctx context.Context, params store.CommitPurchaseParams) (*models.TransactionHistory, error) {
	zap.L().Info("Committing purchase",
		zap.String("asset_id", params.AssetId),
		zap.String("seller_wallet_id", params.SellerWalletId),
		zap.String("buyer_wallet_id", params.BuyerWalletId),
		zap.Int64("expected_version", params.ExpectedVersion))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer rollback(tx)

	now := s.now().UTC()
	result, err := tx.ExecContext(ctx, queryTransferOwnership,
		params.BuyerWalletId, dbTime(now), params.AssetId, params.SellerWalletId, params.ExpectedVersion)
	if err != nil {
		return nil, fmt.Errorf("unable to transfer ownership: %w", err)
	}
	if err := expectOneRow(result, "asset ownership moved"); err != nil {
		zap.L().Warn("Purchase commit lost ownership race", zap.String("asset_id", params.AssetId))
		return nil, err
	}

	history := &models.TransactionHistory{
		AssetId:               params.AssetId,
		SellerUserId:          params.SellerUserId,
		BuyerUserId:           params.BuyerUserId,
		TransactionType:       models.TransactionTypePurchase,
		PriceAtTransaction:    params.Price,
		BlockchainAssetTxId:   params.AssetTxId,
		BlockchainPaymentTxId: params.PaymentTxId,
	}
	if err := s.insertHistory(ctx, tx, history, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		zap.L().Error("Failed to commit purchase", zap.String("asset_id", params.AssetId), zap.Error(err))
		return nil, fmt.Errorf("unable to commit purchase: %w", err)
	}

	zap.L().Info("Purchase committed",
		zap.String("asset_id", params.AssetId),
		zap.String("history_id", history.Id))
	return history, nil
}
