package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"asset-market-go/internal/models"
	"asset-market-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func offerScanTargets(o *models.Offer, status *string) []any {
	return []any{&o.Id, &o.AssetId, &o.OffererUserId, &o.OwnerUserId, &o.OfferPrice, status,
		&o.ExpiresAt, &o.TxId, &o.CreatedAt, &o.UpdatedAt}
}

func scanOffer(row rowScanner) (*models.Offer, error) {
	var o models.Offer
	var status string
	if err := row.Scan(offerScanTargets(&o, &status)...); err != nil {
		return nil, err
	}
	o.Status = models.OfferStatus(status)
	return &o, nil
}

func (s *Service) CreateOffer(ctx context.Context, params store.CreateOfferParams) (*models.Offer, error) {
	now := s.now().UTC()
	offer := &models.Offer{
		Id:            uuid.New().String(),
		AssetId:       params.AssetId,
		OffererUserId: params.OffererUserId,
		OwnerUserId:   params.OwnerUserId,
		OfferPrice:    params.OfferPrice,
		Status:        models.OfferStatusPending,
		ExpiresAt:     params.ExpiresAt.UTC(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	cutoff := params.Now
	if cutoff.IsZero() {
		cutoff = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer rollback(tx)

	// An overdue offer the sweeper has not reached yet must not block a new one
	result, err := tx.ExecContext(ctx, queryExpireOverdueOfferBy,
		dbTime(now), params.AssetId, params.OffererUserId, dbTime(cutoff.UTC()))
	if err != nil {
		return nil, fmt.Errorf("unable to expire overdue offer: %w", err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		zap.L().Info("Expired overdue offer before replacing it",
			zap.String("asset_id", params.AssetId),
			zap.String("offerer_user_id", params.OffererUserId))
	}

	_, err = tx.ExecContext(ctx, queryInsertOffer,
		offer.Id, offer.AssetId, offer.OffererUserId, offer.OwnerUserId, offer.OfferPrice.StringFixed(8),
		dbTime(offer.ExpiresAt), dbTime(now), dbTime(now))
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return nil, fmt.Errorf("asset %s offerer %s: %w", params.AssetId, params.OffererUserId, store.ErrDuplicatePendingOffer)
		case isForeignKeyViolation(err):
			return nil, fmt.Errorf("asset %s or user %s: %w", params.AssetId, params.OffererUserId, store.ErrNotFound)
		}
		zap.L().Error("Failed to insert offer", zap.String("asset_id", params.AssetId), zap.Error(err))
		return nil, fmt.Errorf("unable to insert offer: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("unable to commit offer: %w", err)
	}

	zap.L().Info("Offer created",
		zap.String("offer_id", offer.Id),
		zap.String("asset_id", offer.AssetId),
		zap.String("offerer_user_id", offer.OffererUserId),
		zap.String("offer_price", offer.OfferPrice.StringFixed(8)),
		zap.Time("expires_at", offer.ExpiresAt))
	return offer, nil
}

func (s *Service) GetOffer(ctx context.Context, offerId string) (*models.Offer, error) {
	offer, err := scanOffer(s.db.QueryRowContext(ctx, queryGetOfferById, offerId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("offer %s: %w", offerId, store.ErrNotFound)
		}
		return nil, fmt.Errorf("unable to query offer: %w", err)
	}
	return offer, nil
}

func (s *Service) CancelOffer(ctx context.Context, offerId string) error {
	return s.resolvePendingOffer(ctx, offerId, models.OfferStatusCancelled)
}

func (s *Service) RejectOffer(ctx context.Context, offerId string) error {
	return s.resolvePendingOffer(ctx, offerId, models.OfferStatusRejected)
}

// resolvePendingOffer moves a pending offer to a terminal status. Offers that
// are already terminal yield store.ErrOfferNotPending.
func (s *Service) resolvePendingOffer(ctx context.Context, offerId string, status models.OfferStatus) error {
	result, err := s.db.ExecContext(ctx, queryResolvePendingOffer, string(status), s.timestamp(), offerId)
	if err != nil {
		return fmt.Errorf("unable to update offer status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if n == 1 {
		zap.L().Info("Offer resolved", zap.String("offer_id", offerId), zap.String("status", string(status)))
		return nil
	}

	var current string
	err = s.db.QueryRowContext(ctx, queryGetOfferStatus, offerId).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("offer %s: %w", offerId, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("unable to query offer status: %w", err)
	}
	return fmt.Errorf("offer %s is %s: %w", offerId, current, store.ErrOfferNotPending)
}

// CommitOfferAcceptance moves ownership to the offerer, marks the offer
// accepted and rejects every other pending offer on the asset, all or nothing.
func (s *Service) CommitOfferAcceptance(ctx context.Context, params store.CommitOfferAcceptanceParams) (*models.TransactionHistory, error) {
	zap.L().Info("Committing offer acceptance",
		zap.String("offer_id", params.OfferId),
		zap.String("asset_id", params.AssetId),
		zap.Int64("expected_version", params.ExpectedVersion))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer rollback(tx)

	now := s.now().UTC()
	ts := dbTime(now)

	result, err := tx.ExecContext(ctx, queryTransferOwnership,
		params.BuyerWalletId, ts, params.AssetId, params.SellerWalletId, params.ExpectedVersion)
	if err != nil {
		return nil, fmt.Errorf("unable to transfer ownership: %w", err)
	}
	if err := expectOneRow(result, "asset ownership moved"); err != nil {
		return nil, err
	}

	result, err = tx.ExecContext(ctx, queryAcceptOffer, params.TxId, ts, params.OfferId, params.AssetId)
	if err != nil {
		return nil, fmt.Errorf("unable to accept offer: %w", err)
	}
	if err := expectOneRow(result, "offer no longer pending"); err != nil {
		return nil, err
	}

	result, err = tx.ExecContext(ctx, queryRejectOtherPendingOffers, ts, params.AssetId, params.OfferId)
	if err != nil {
		return nil, fmt.Errorf("unable to reject competing offers: %w", err)
	}
	rejected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("unable to get rows affected: %w", err)
	}

	history := &models.TransactionHistory{
		AssetId:             params.AssetId,
		SellerUserId:        params.SellerUserId,
		BuyerUserId:         params.BuyerUserId,
		TransactionType:     models.TransactionTypeOfferAccepted,
		PriceAtTransaction:  params.Price,
		BlockchainAssetTxId: params.TxId,
		Notes:               "offer " + params.OfferId,
	}
	if err := s.insertHistory(ctx, tx, history, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		zap.L().Error("Failed to commit offer acceptance", zap.String("offer_id", params.OfferId), zap.Error(err))
		return nil, fmt.Errorf("unable to commit offer acceptance: %w", err)
	}

	zap.L().Info("Offer acceptance committed",
		zap.String("offer_id", params.OfferId),
		zap.String("asset_id", params.AssetId),
		zap.Int64("rejected_offers", rejected))
	return history, nil
}

// ExpireOffers marks every pending offer with expires_at <= now as expired
func (s *Service) ExpireOffers(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, queryExpireOffers, s.timestamp(), dbTime(now))
	if err != nil {
		zap.L().Error("Failed to expire offers", zap.Error(err))
		return 0, fmt.Errorf("unable to expire offers: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("unable to get rows affected: %w", err)
	}
	if n > 0 {
		zap.L().Info("Expired offers", zap.Int64("count", n))
	}
	return n, nil
}

func (s *Service) ListOffersByOfferer(ctx context.Context, userId string) ([]models.Offer, error) {
	return s.listOffers(ctx, queryListOffersByOfferer, userId)
}

func (s *Service) ListOffersForAsset(ctx context.Context, assetId string) ([]models.Offer, error) {
	return s.listOffers(ctx, queryListOffersForAsset, assetId)
}

func (s *Service) listOffers(ctx context.Context, query string, args ...any) ([]models.Offer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query offers: %w", err)
	}
	defer closeRows(rows)

	var offers []models.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan offer row: %w", err)
		}
		offers = append(offers, *offer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating offer rows: %w", err)
	}
	return offers, nil
}

// ListOffersReceived returns pending offers on assets the user currently owns
func (s *Service) ListOffersReceived(ctx context.Context, userId string) ([]models.ReceivedOffer, error) {
	rows, err := s.db.QueryContext(ctx, queryListOffersReceived, userId)
	if err != nil {
		return nil, fmt.Errorf("unable to query received offers: %w", err)
	}
	defer closeRows(rows)

	var received []models.ReceivedOffer
	for rows.Next() {
		var r models.ReceivedOffer
		var status string
		targets := offerScanTargets(&r.Offer, &status)
		targets = append(targets, &r.Asset.Id, &r.Asset.BlockchainAssetId, &r.Asset.Name, &r.Asset.Description,
			&r.Asset.Price, &r.Asset.ReferenceHash, &r.Asset.IsListed, &r.Asset.OwnerWalletId, &r.Asset.Version,
			&r.Asset.CreatedAt, &r.Asset.UpdatedAt)
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("unable to scan received offer row: %w", err)
		}
		r.Offer.Status = models.OfferStatus(status)
		received = append(received, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating received offer rows: %w", err)
	}
	return received, nil
}
