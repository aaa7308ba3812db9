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

// Creation steps
const (
	stepInitiate = iota + 1
	stepConfirmCreation
	stepMint
	stepConfirmMint
	stepResolveAssetId
	stepTransferToOwner
	stepConfirmTransfer
	stepCommitAsset
)

// Creator defines, mints and hands over new unique assets
type Creator struct {
	base
	platformAddress string
	profile         models.AssetProfile
}

func NewCreator(cfg Config) *Creator {
	return &Creator{
		base:            newBase(cfg),
		platformAddress: cfg.PlatformWalletAddress,
		profile:         cfg.AssetProfile,
	}
}

// CreateAsset runs the creation pipeline. Each ledger step is confirmed
// before the next one starts and the Registry is written only after the
// asset sits confirmed in the owner's wallet.
func (c *Creator) CreateAsset(ctx context.Context, req models.CreateAssetRequest) (*models.CreateAssetResult, error) {
	if err := validateAssetName(req.Name); err != nil {
		return nil, err
	}
	if _, err := validatePrice("price", req.Price); err != nil {
		return nil, err
	}
	if req.OwnerUserId == "" {
		return nil, apperrors.NewInvalidParameterError("owner_user_id", "is required")
	}
	if c.platformAddress == "" {
		return nil, apperrors.NewInternalError("platform wallet address is not configured", nil)
	}
	if _, err := c.registry.GetUserById(ctx, req.OwnerUserId); err != nil {
		return nil, registryError(err, "user", req.OwnerUserId)
	}
	ownerWallet, err := c.primaryWallet(ctx, req.OwnerUserId)
	if err != nil {
		return nil, err
	}

	ctx, p, err := c.begin(ctx, models.PipelineCreateAsset, req.Name)
	if err != nil {
		return nil, err
	}
	result := &models.CreateAssetResult{}

	// 1: define and initiate
	if err := p.enter(ctx, stepInitiate, "initiate"); err != nil {
		return nil, err
	}
	if err := c.ensureNameAvailable(ctx, req.Name); err != nil {
		return nil, p.fail(ctx, err)
	}
	result.CreationTxId, err = c.chain.InitiateAssetCreation(ctx, chain.AssetMetadata{
		Name:           req.Name,
		ReferenceHash:  req.ReferenceHash,
		TargetAddress:  c.platformAddress,
		OwnerAddress:   c.platformAddress,
		Type:           c.profile.Type,
		Updatable:      c.profile.Updatable,
		DecimalPoint:   c.profile.DecimalPoint,
		MaxMintCount:   c.profile.MaxMintCount,
		IssueFrequency: c.profile.IssueFrequency,
	})
	if err != nil {
		return nil, p.fail(ctx, submissionError("createasset", err))
	}
	p.submitted(ctx, result.CreationTxId)

	// 2: confirm creation
	if err := p.enter(ctx, stepConfirmCreation, "confirm_creation"); err != nil {
		return nil, err
	}
	if err := p.confirm(ctx, result.CreationTxId); err != nil {
		return nil, err
	}

	// 3: mint
	if err := p.enter(ctx, stepMint, "mint"); err != nil {
		return nil, err
	}
	result.MintTxId, err = c.chain.MintCreatedAsset(ctx, result.CreationTxId)
	if err != nil {
		return nil, p.fail(ctx, submissionError("mintasset", err))
	}
	p.submitted(ctx, result.MintTxId)

	// 4: confirm mint
	if err := p.enter(ctx, stepConfirmMint, "confirm_mint"); err != nil {
		return nil, err
	}
	if err := p.confirm(ctx, result.MintTxId); err != nil {
		return nil, err
	}

	// 5: resolve the ledger asset id
	if err := p.enter(ctx, stepResolveAssetId, "resolve_asset_id"); err != nil {
		return nil, err
	}
	details, err := c.chain.GetAssetDetailsByName(ctx, req.Name)
	if err != nil {
		return nil, p.fail(ctx, ledgerError("getassetdetailsbyname", err))
	}
	result.NumericAssetId = details.AssetId

	// 6: hand over to the customer
	if err := p.enter(ctx, stepTransferToOwner, "transfer_to_owner"); err != nil {
		return nil, err
	}
	result.SendTxId, err = c.chain.TransferAsset(ctx, chain.TransferAssetRequest{
		AssetId:     details.AssetId,
		AssetName:   req.Name,
		Amount:      1,
		FromAddress: c.platformAddress,
		ToAddress:   ownerWallet.Address,
	})
	if err != nil {
		return nil, p.fail(ctx, submissionError("sendasset", err))
	}
	p.submitted(ctx, result.SendTxId)

	// 7: confirm hand-over
	if err := p.enter(ctx, stepConfirmTransfer, "confirm_transfer"); err != nil {
		return nil, err
	}
	if err := p.confirm(ctx, result.SendTxId); err != nil {
		return nil, err
	}

	// 8: commit
	if err := p.enter(ctx, stepCommitAsset, "commit"); err != nil {
		return nil, err
	}
	asset, err := c.registry.CreateAsset(ctx, store.CreateAssetParams{
		BlockchainAssetId: result.CreationTxId,
		Name:              req.Name,
		Description:       req.Description,
		Price:             req.Price,
		ReferenceHash:     req.ReferenceHash,
		IsListed:          req.List,
		OwnerWalletId:     ownerWallet.Id,
		OwnerUserId:       req.OwnerUserId,
		CreationTxId:      result.CreationTxId,
		SendTxId:          result.SendTxId,
	})
	if err != nil {
		return nil, p.fail(ctx, apperrors.NewCommitFailedError(err))
	}
	result.AssetId = asset.Id
	p.complete(ctx)

	zap.L().Info("Asset created",
		zap.String("asset_id", asset.Id),
		zap.String("name", asset.Name),
		zap.String("creation_txid", result.CreationTxId),
		zap.String("numeric_asset_id", result.NumericAssetId),
		zap.String("owner_address", ownerWallet.Address))
	return result, nil
}

// ensureNameAvailable checks the Registry and the ledger. Either knowing the
// name is a collision.
func (c *Creator) ensureNameAvailable(ctx context.Context, name string) *apperrors.Error {
	_, err := c.registry.GetAssetByName(ctx, name)
	switch {
	case err == nil:
		return apperrors.NewAssetNameTakenError(name)
	case !errors.Is(err, store.ErrNotFound):
		return apperrors.NewInternalError("unable to check asset name", err)
	}

	_, err = c.chain.GetAssetDetailsByName(ctx, name)
	switch {
	case err == nil:
		return apperrors.NewAssetNameTakenError(name)
	case chain.IsNotFound(err):
		return nil
	default:
		return ledgerError("getassetdetailsbyname", err)
	}
}
