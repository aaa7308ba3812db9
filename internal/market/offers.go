package market

import (
	"context"
	"errors"
	"time"

	"asset-market-go/internal/chain"
	apperrors "asset-market-go/internal/errors"
	"asset-market-go/internal/models"
	"asset-market-go/internal/store"

	"go.uber.org/zap"
)

// Acceptance steps
const (
	stepOfferTransfer = iota + 1
	stepConfirmOfferTransfer
	stepCommitAcceptance
)

// OfferManager drives offers through pending -> accepted | rejected |
// cancelled | expired. Authorization always uses the current owner, never the
// owner snapshot stored on the offer.
type OfferManager struct {
	base
	ttl time.Duration
}

func NewOfferManager(cfg Config) *OfferManager {
	ttl := cfg.DefaultOfferTTL
	if ttl <= 0 {
		ttl = defaultOfferTTL
	}
	return &OfferManager{base: newBase(cfg), ttl: ttl}
}

func (m *OfferManager) MakeOffer(ctx context.Context, req models.MakeOfferRequest) (*models.Offer, error) {
	if req.AssetId == "" {
		return nil, apperrors.NewInvalidParameterError("asset_id", "is required")
	}
	if _, err := validatePrice("offer_price", req.OfferPrice); err != nil {
		return nil, err
	}

	now := m.now()
	expiresAt := req.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(m.ttl)
	} else if !expiresAt.After(now) {
		return nil, apperrors.NewInvalidParameterError("expires_at", "must be in the future")
	}

	if _, err := m.registry.GetUserById(ctx, req.OffererUserId); err != nil {
		return nil, registryError(err, "user", req.OffererUserId)
	}
	asset, err := m.loadAsset(ctx, req.AssetId)
	if err != nil {
		return nil, err
	}
	if !asset.IsListed {
		return nil, apperrors.NewAssetNotListedError(asset.Id)
	}
	ownerWallet, err := m.loadWallet(ctx, asset.OwnerWalletId)
	if err != nil {
		return nil, err
	}
	if ownerWallet.UserId == req.OffererUserId {
		return nil, apperrors.NewSelfOfferError()
	}

	offer, err := m.registry.CreateOffer(ctx, store.CreateOfferParams{
		AssetId:       asset.Id,
		OffererUserId: req.OffererUserId,
		OwnerUserId:   ownerWallet.UserId,
		OfferPrice:    req.OfferPrice,
		ExpiresAt:     expiresAt,
		Now:           now,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicatePendingOffer) {
			return nil, apperrors.NewDuplicatePendingOfferError(err)
		}
		return nil, registryError(err, "asset", asset.Id)
	}
	return offer, nil
}

// CancelOffer withdraws a pending offer. Only the offerer may cancel.
func (m *OfferManager) CancelOffer(ctx context.Context, offerId, userId string) error {
	offer, err := m.loadPendingOffer(ctx, offerId)
	if err != nil {
		return err
	}
	if offer.OffererUserId != userId {
		return apperrors.NewNotOffererError(offerId)
	}
	return m.resolve(ctx, offer, m.registry.CancelOffer)
}

// RejectOffer declines a pending offer. Only the current owner may reject.
func (m *OfferManager) RejectOffer(ctx context.Context, offerId, userId string) error {
	offer, err := m.loadPendingOffer(ctx, offerId)
	if err != nil {
		return err
	}
	if err := m.requireCurrentOwner(ctx, offer.AssetId, userId); err != nil {
		return err
	}
	return m.resolve(ctx, offer, m.registry.RejectOffer)
}

func (m *OfferManager) resolve(ctx context.Context, offer *models.Offer, apply func(context.Context, string) error) error {
	if err := apply(ctx, offer.Id); err != nil {
		if errors.Is(err, store.ErrOfferNotPending) {
			return m.notPending(ctx, offer.Id)
		}
		return registryError(err, "offer", offer.Id)
	}
	return nil
}

// AcceptOffer transfers the asset to the offerer and then commits ownership,
// the accepted offer and the rejection of competing offers in one Registry
// transaction. A ledger failure leaves the offer pending.
func (m *OfferManager) AcceptOffer(ctx context.Context, offerId, userId string) (*models.AcceptOfferResult, error) {
	offer, err := m.loadPendingOffer(ctx, offerId)
	if err != nil {
		return nil, err
	}
	if offer.IsExpired(m.now()) {
		return nil, apperrors.NewOfferExpiredError(offerId)
	}

	asset, err := m.loadAsset(ctx, offer.AssetId)
	if err != nil {
		return nil, err
	}
	sellerWallet, err := m.loadWallet(ctx, asset.OwnerWalletId)
	if err != nil {
		return nil, err
	}
	if sellerWallet.UserId != userId {
		return nil, apperrors.NewNotAssetOwnerError(asset.Id)
	}
	if offer.OffererUserId == userId {
		return nil, apperrors.NewSelfOfferError()
	}
	buyerWallet, err := m.primaryWallet(ctx, offer.OffererUserId)
	if err != nil {
		return nil, err
	}
	sellerKey, err := m.signingKey(sellerWallet)
	if err != nil {
		return nil, err
	}
	details, err := m.ledgerAsset(ctx, asset, sellerWallet.Address)
	if err != nil {
		return nil, err
	}

	ctx, run, err := m.begin(ctx, models.PipelineAcceptOffer, offer.Id)
	if err != nil {
		return nil, err
	}
	result := &models.AcceptOfferResult{OfferId: offer.Id}

	if err := run.enter(ctx, stepOfferTransfer, "asset_transfer"); err != nil {
		return nil, err
	}
	result.TxId, err = m.chain.TransferAsset(ctx, chain.TransferAssetRequest{
		AssetId:     details.AssetId,
		AssetName:   asset.Name,
		Amount:      1,
		FromAddress: sellerWallet.Address,
		ToAddress:   buyerWallet.Address,
		SigningKey:  sellerKey,
	})
	if err != nil {
		return nil, run.fail(ctx, submissionError("sendasset", err))
	}
	run.submitted(ctx, result.TxId)

	if err := run.enter(ctx, stepConfirmOfferTransfer, "confirm_asset_transfer"); err != nil {
		return nil, err
	}
	if err := run.confirm(ctx, result.TxId); err != nil {
		return nil, err
	}

	if err := run.enter(ctx, stepCommitAcceptance, "commit"); err != nil {
		return nil, err
	}
	history, err := m.registry.CommitOfferAcceptance(ctx, store.CommitOfferAcceptanceParams{
		OfferId:         offer.Id,
		AssetId:         asset.Id,
		SellerWalletId:  sellerWallet.Id,
		BuyerWalletId:   buyerWallet.Id,
		SellerUserId:    sellerWallet.UserId,
		BuyerUserId:     offer.OffererUserId,
		ExpectedVersion: asset.Version,
		Price:           offer.OfferPrice,
		TxId:            result.TxId,
	})
	if err != nil {
		return nil, run.fail(ctx, m.acceptanceConflict(ctx, offer, asset.Id, err))
	}
	run.complete(ctx)
	m.recordSettlement(ctx, history)

	zap.L().Info("Offer accepted",
		zap.String("offer_id", offer.Id),
		zap.String("asset_id", asset.Id),
		zap.String("buyer_user_id", offer.OffererUserId),
		zap.String("txid", result.TxId))
	return result, nil
}

// ExpireOffers marks every pending offer past its expiry as expired
func (m *OfferManager) ExpireOffers(ctx context.Context) (int64, error) {
	n, err := m.registry.ExpireOffers(ctx, m.now())
	if err != nil {
		return 0, apperrors.NewInternalError("unable to expire offers", err)
	}
	return n, nil
}

func (m *OfferManager) loadPendingOffer(ctx context.Context, offerId string) (*models.Offer, error) {
	if offerId == "" {
		return nil, apperrors.NewInvalidParameterError("offer_id", "is required")
	}
	offer, err := m.registry.GetOffer(ctx, offerId)
	if err != nil {
		return nil, registryError(err, "offer", offerId)
	}
	if offer.Status != models.OfferStatusPending {
		return nil, apperrors.NewOfferNotPendingError(offer.Id, string(offer.Status))
	}
	return offer, nil
}

func (m *OfferManager) requireCurrentOwner(ctx context.Context, assetId, userId string) error {
	asset, err := m.loadAsset(ctx, assetId)
	if err != nil {
		return err
	}
	owner, err := m.loadWallet(ctx, asset.OwnerWalletId)
	if err != nil {
		return err
	}
	if owner.UserId != userId {
		return apperrors.NewNotAssetOwnerError(assetId)
	}
	return nil
}

func (m *OfferManager) notPending(ctx context.Context, offerId string) error {
	status := "resolved"
	if current, err := m.registry.GetOffer(ctx, offerId); err == nil {
		status = string(current.Status)
	}
	return apperrors.NewOfferNotPendingError(offerId, status)
}

// acceptanceConflict tells a lost ownership race from an offer resolved
// concurrently by another path.
func (m *OfferManager) acceptanceConflict(ctx context.Context, offer *models.Offer, assetId string, err error) *apperrors.Error {
	if !errors.Is(err, store.ErrConflict) {
		return apperrors.NewCommitFailedError(err)
	}
	if current, getErr := m.registry.GetOffer(ctx, offer.Id); getErr == nil && current.Status != models.OfferStatusPending {
		return apperrors.NewOfferConflictError(offer.Id, err)
	}
	return apperrors.NewOwnershipConflictError(assetId, err)
}
