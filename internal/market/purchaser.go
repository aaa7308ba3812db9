package market

import (
	"context"
	"errors"

	"asset-market-go/internal/chain"
	apperrors "asset-market-go/internal/errors"
	"asset-market-go/internal/models"
	"asset-market-go/internal/store"

	"go.uber.org/zap"
)

// Purchase steps
const (
	stepPayment = iota + 1
	stepConfirmPayment
	stepAssetTransfer
	stepConfirmAssetTransfer
	stepCommitPurchase
)

// Purchaser executes direct purchases at the asking price: the buyer pays the
// seller, then the seller transfers the asset.
type Purchaser struct {
	base
	fee int64
}

func NewPurchaser(cfg Config) *Purchaser {
	return &Purchaser{base: newBase(cfg), fee: cfg.PaymentFee}
}

// Buy runs the purchase pipeline. If the payment confirms and the transfer
// does not, the error carries the payment txid and nothing is compensated.
func (p *Purchaser) Buy(ctx context.Context, req models.BuyRequest) (*models.PurchaseResult, error) {
	if req.AssetId == "" {
		return nil, apperrors.NewInvalidParameterError("asset_id", "is required")
	}
	if req.BuyerUserId == "" {
		return nil, apperrors.NewInvalidParameterError("buyer_user_id", "is required")
	}

	asset, err := p.loadAsset(ctx, req.AssetId)
	if err != nil {
		return nil, err
	}
	if !asset.IsListed {
		return nil, apperrors.NewAssetNotListedError(asset.Id)
	}
	amount, err := validatePrice("price", asset.Price)
	if err != nil {
		return nil, err
	}

	sellerWallet, err := p.loadWallet(ctx, asset.OwnerWalletId)
	if err != nil {
		return nil, err
	}
	buyerWallet, err := p.primaryWallet(ctx, req.BuyerUserId)
	if err != nil {
		return nil, err
	}
	if sellerWallet.UserId == req.BuyerUserId || sellerWallet.Address == buyerWallet.Address {
		return nil, apperrors.NewSelfPurchaseError()
	}

	// Both keys must open before anything irreversible happens
	buyerKey, err := p.signingKey(buyerWallet)
	if err != nil {
		return nil, err
	}
	sellerKey, err := p.signingKey(sellerWallet)
	if err != nil {
		return nil, err
	}

	balance, err := p.chain.GetAddressBalance(ctx, buyerWallet.Address)
	if err != nil {
		return nil, ledgerError("getaddressbalance", err)
	}
	if need := amount + p.fee; balance < need {
		return nil, apperrors.NewInsufficientFundsError(balance, need)
	}
	details, err := p.ledgerAsset(ctx, asset, sellerWallet.Address)
	if err != nil {
		return nil, err
	}

	ctx, run, err := p.begin(ctx, models.PipelinePurchase, asset.Id)
	if err != nil {
		return nil, err
	}
	result := &models.PurchaseResult{}

	// A: payment buyer -> seller
	if err := run.enter(ctx, stepPayment, "payment"); err != nil {
		return nil, err
	}
	result.PaymentTxId, err = p.chain.SendPayment(ctx, chain.PaymentRequest{
		FromAddress: buyerWallet.Address,
		ToAddress:   sellerWallet.Address,
		SigningKey:  buyerKey,
		Amount:      amount,
	})
	if err != nil {
		return nil, run.fail(ctx, submissionError("sendpayment", err))
	}
	run.submitted(ctx, result.PaymentTxId)

	if err := run.enter(ctx, stepConfirmPayment, "confirm_payment"); err != nil {
		return nil, err
	}
	if err := run.confirm(ctx, result.PaymentTxId); err != nil {
		return nil, err
	}

	// B: asset seller -> buyer
	if err := run.enter(ctx, stepAssetTransfer, "asset_transfer"); err != nil {
		return nil, err
	}
	result.AssetTransferTxId, err = p.chain.TransferAsset(ctx, chain.TransferAssetRequest{
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
	run.submitted(ctx, result.AssetTransferTxId)

	if err := run.enter(ctx, stepConfirmAssetTransfer, "confirm_asset_transfer"); err != nil {
		return nil, err
	}
	if err := run.confirm(ctx, result.AssetTransferTxId); err != nil {
		return nil, err
	}

	// Commit only after both transactions confirmed
	if err := run.enter(ctx, stepCommitPurchase, "commit"); err != nil {
		return nil, err
	}
	history, err := p.registry.CommitPurchase(ctx, store.CommitPurchaseParams{
		AssetId:         asset.Id,
		SellerWalletId:  sellerWallet.Id,
		BuyerWalletId:   buyerWallet.Id,
		SellerUserId:    sellerWallet.UserId,
		BuyerUserId:     req.BuyerUserId,
		ExpectedVersion: asset.Version,
		Price:           asset.Price,
		PaymentTxId:     result.PaymentTxId,
		AssetTxId:       result.AssetTransferTxId,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, run.fail(ctx, apperrors.NewOwnershipConflictError(asset.Id, err))
		}
		return nil, run.fail(ctx, apperrors.NewCommitFailedError(err))
	}
	run.complete(ctx)
	p.recordSettlement(ctx, history)

	zap.L().Info("Purchase completed",
		zap.String("asset_id", asset.Id),
		zap.String("buyer_user_id", req.BuyerUserId),
		zap.String("seller_user_id", sellerWallet.UserId),
		zap.String("payment_txid", result.PaymentTxId),
		zap.String("asset_txid", result.AssetTransferTxId))
	return result, nil
}
