package api

import (
	"context"

	"asset-market-go/internal/chain"
	apperrors "asset-market-go/internal/errors"
	"asset-market-go/internal/models"
)

func (s *MarketService) MakeOffer(ctx context.Context, req models.MakeOfferRequest) (*models.Offer, error) {
	if err := required("offerer_user_id", req.OffererUserId); err != nil {
		return nil, err
	}
	return s.offers.MakeOffer(ctx, req)
}

func (s *MarketService) CancelOffer(ctx context.Context, offerId, userId string) error {
	if err := required("user_id", userId); err != nil {
		return err
	}
	return s.offers.CancelOffer(ctx, offerId, userId)
}

func (s *MarketService) RejectOffer(ctx context.Context, offerId, userId string) error {
	if err := required("user_id", userId); err != nil {
		return err
	}
	return s.offers.RejectOffer(ctx, offerId, userId)
}

func (s *MarketService) AcceptOffer(ctx context.Context, offerId, userId string) (*models.AcceptOfferResult, error) {
	if err := required("user_id", userId); err != nil {
		return nil, err
	}
	return s.offers.AcceptOffer(ctx, offerId, userId)
}

// GetOffersMade lists every offer the user has made, newest first
func (s *MarketService) GetOffersMade(ctx context.Context, userId string) ([]models.Offer, error) {
	if err := required("user_id", userId); err != nil {
		return nil, err
	}
	offers, err := s.registry.ListOffersByOfferer(ctx, userId)
	if err != nil {
		return nil, readError(err, "offers", userId)
	}
	return offers, nil
}

// GetOffersReceived lists pending offers on assets the user currently owns
func (s *MarketService) GetOffersReceived(ctx context.Context, userId string) ([]models.ReceivedOffer, error) {
	if err := required("user_id", userId); err != nil {
		return nil, err
	}
	offers, err := s.registry.ListOffersReceived(ctx, userId)
	if err != nil {
		return nil, readError(err, "received offers", userId)
	}
	return offers, nil
}

func (s *MarketService) GetOffersForAsset(ctx context.Context, assetId string) ([]models.Offer, error) {
	if err := required("asset_id", assetId); err != nil {
		return nil, err
	}
	offers, err := s.registry.ListOffersForAsset(ctx, assetId)
	if err != nil {
		return nil, readError(err, "offers", assetId)
	}
	return offers, nil
}

func ledgerReadError(op string, err error) error {
	if chain.KindOf(err) == chain.KindRejected {
		return apperrors.NewLedgerRejectedError(op, err)
	}
	return apperrors.NewLedgerUnavailableError(op, err)
}
