package market

import (
	"context"
	"errors"

	apperrors "asset-market-go/internal/errors"
	"asset-market-go/internal/models"
	"asset-market-go/internal/store"
)

// Catalog manages listings. Listing changes touch only the Registry.
type Catalog struct {
	base
}

func NewCatalog(cfg Config) *Catalog {
	return &Catalog{base: newBase(cfg)}
}

// SetListing lists or unlists an asset, optionally repricing it. Only the
// current owner may change a listing.
func (c *Catalog) SetListing(ctx context.Context, req models.SetListingRequest) (*models.Asset, error) {
	if req.Price != nil {
		if _, err := validatePrice("price", *req.Price); err != nil {
			return nil, err
		}
	}
	asset, err := c.loadAsset(ctx, req.AssetId)
	if err != nil {
		return nil, err
	}
	owner, err := c.loadWallet(ctx, asset.OwnerWalletId)
	if err != nil {
		return nil, err
	}
	if owner.UserId != req.OwnerUserId {
		return nil, apperrors.NewNotAssetOwnerError(asset.Id)
	}

	updated, err := c.registry.SetListing(ctx, store.SetListingParams{
		AssetId:       asset.Id,
		OwnerWalletId: owner.Id,
		Listed:        req.Listed,
		Price:         req.Price,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apperrors.NewOwnershipConflictError(asset.Id, err)
		}
		return nil, registryError(err, "asset", asset.Id)
	}
	return updated, nil
}
