// Package market runs the marketplace pipelines: asset creation, direct
// purchase and offer acceptance. Ledger steps run outside any Registry
// transaction; only the final commit is transactional.
package market

import (
	"context"
	"errors"
	"regexp"
	"time"

	"asset-market-go/internal/chain"
	apperrors "asset-market-go/internal/errors"
	"asset-market-go/internal/models"
	"asset-market-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Decrypter opens wallet ciphertexts. Implemented by vault.Vault.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// StepJournal persists pipeline step state. Implemented by journal.Journal.
type StepJournal interface {
	Begin(kind models.PipelineKind, subject string) (*models.PipelineRun, error)
	Advance(run *models.PipelineRun, step int, stepName string) error
	Submitted(run *models.PipelineRun, txId string) error
	Confirmed(run *models.PipelineRun, txId string) error
	Complete(run *models.PipelineRun) error
	Fail(run *models.PipelineRun, cause error) error
}

// SettlementRecorder receives committed ownership transfers. Failures are
// logged and never undo the commit.
type SettlementRecorder interface {
	RecordSettlement(ctx context.Context, history *models.TransactionHistory) error
}

// Config wires the pipelines to their collaborators
type Config struct {
	Registry    store.Registry
	Chain       chain.Client
	Vault       Decrypter
	Journal     StepJournal
	Settlements SettlementRecorder

	Confirmations         int
	ConfirmationTimeout   time.Duration
	PaymentFee            int64
	PlatformWalletAddress string
	DefaultOfferTTL       time.Duration
	AssetProfile          models.AssetProfile
	Now                   func() time.Time
}

const (
	defaultConfirmationTimeout = 10 * time.Minute
	defaultOfferTTL            = 24 * time.Hour
)

type base struct {
	registry    store.Registry
	chain       chain.Client
	vault       Decrypter
	journal     StepJournal
	settlements SettlementRecorder

	confirmations       int
	confirmationTimeout time.Duration
	now                 func() time.Time
}

func newBase(cfg Config) base {
	b := base{
		registry:            cfg.Registry,
		chain:               cfg.Chain,
		vault:               cfg.Vault,
		journal:             cfg.Journal,
		settlements:         cfg.Settlements,
		confirmations:       cfg.Confirmations,
		confirmationTimeout: cfg.ConfirmationTimeout,
		now:                 cfg.Now,
	}
	if b.confirmations < 1 {
		b.confirmations = 1
	}
	if b.confirmationTimeout <= 0 {
		b.confirmationTimeout = defaultConfirmationTimeout
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

var assetNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 ._-]{2,63}$`)

func validateAssetName(name string) error {
	if !assetNamePattern.MatchString(name) {
		return apperrors.NewInvalidParameterError("name", "must be 3-64 letters, digits, spaces, dots, dashes or underscores")
	}
	return nil
}

// validatePrice requires a positive amount representable in base units
func validatePrice(param string, price decimal.Decimal) (int64, error) {
	if !price.IsPositive() {
		return 0, apperrors.NewInvalidParameterError(param, "must be greater than zero")
	}
	units, err := chain.ToBaseUnits(price)
	if err != nil {
		return 0, apperrors.NewInvalidParameterError(param, err.Error())
	}
	if units == 0 {
		return 0, apperrors.NewInvalidParameterError(param, "is below the smallest ledger unit")
	}
	return units, nil
}

// signingKey decrypts a wallet key. The plaintext must stay local to the caller.
func (b *base) signingKey(w *models.Wallet) (string, error) {
	key, err := b.vault.Decrypt(w.EncryptedKey)
	if err != nil {
		zap.L().Error("Failed to decrypt wallet key", zap.String("address", w.Address), zap.Error(err))
		return "", apperrors.NewKeyCorruptionError(w.Address, err)
	}
	return key, nil
}

func (b *base) primaryWallet(ctx context.Context, userId string) (*models.Wallet, error) {
	w, err := b.registry.GetPrimaryWallet(ctx, userId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNoPrimaryWalletError(userId)
		}
		return nil, apperrors.NewInternalError("unable to load primary wallet", err)
	}
	return w, nil
}

func (b *base) loadAsset(ctx context.Context, assetId string) (*models.Asset, error) {
	asset, err := b.registry.GetAsset(ctx, assetId)
	if err != nil {
		return nil, registryError(err, "asset", assetId)
	}
	return asset, nil
}

func (b *base) loadWallet(ctx context.Context, walletId string) (*models.Wallet, error) {
	w, err := b.registry.GetWallet(ctx, walletId)
	if err != nil {
		return nil, registryError(err, "wallet", walletId)
	}
	return w, nil
}

// ledgerAsset resolves the ledger id of a registered asset and checks that
// holder still holds it.
func (b *base) ledgerAsset(ctx context.Context, asset *models.Asset, holder string) (*chain.AssetDetails, error) {
	details, err := b.chain.GetAssetDetailsByName(ctx, asset.Name)
	if err != nil {
		return nil, ledgerError("getassetdetailsbyname", err)
	}
	holders, err := b.chain.ListAddressesHoldingAsset(ctx, asset.Name)
	if err != nil {
		return nil, ledgerError("listaddressesbyasset", err)
	}
	if holders[holder] < 1 {
		zap.L().Warn("Registry owner does not hold asset on ledger",
			zap.String("asset_id", asset.Id),
			zap.String("asset_name", asset.Name),
			zap.String("address", holder))
		return nil, apperrors.NewSellerNotHolderError(asset.Name, holder)
	}
	return details, nil
}

// recordSettlement forwards a committed transfer to the settlement mirror
func (b *base) recordSettlement(ctx context.Context, history *models.TransactionHistory) {
	if b.settlements == nil || history == nil {
		return
	}
	if err := b.settlements.RecordSettlement(ctx, history); err != nil {
		zap.L().Warn("Failed to mirror settlement",
			zap.String("history_id", history.Id),
			zap.String("asset_id", history.AssetId),
			zap.Error(err))
	}
}

func registryError(err error, resource, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NewNotFoundError(resource, id)
	}
	return apperrors.NewInternalError("registry lookup failed", err)
}

// ledgerError maps a failed read or confirmation onto the pipeline error
// taxonomy by kind. Only a timeout that names a txid is a confirmation timeout.
func ledgerError(op string, err error) *apperrors.Error {
	switch chain.KindOf(err) {
	case chain.KindRejected, chain.KindNotFound:
		return apperrors.NewLedgerRejectedError(op, err)
	case chain.KindTimeout:
		var chainErr *chain.Error
		if errors.As(err, &chainErr) && chainErr.TxId != "" {
			return apperrors.NewConfirmationTimeoutError(chainErr.TxId, err)
		}
		return apperrors.NewLedgerUnavailableError(op, err)
	default:
		return apperrors.NewLedgerUnavailableError(op, err)
	}
}

// submissionError maps a failed submitting call. Unless the ledger explicitly
// rejected it or it failed before the broadcast, the transaction may exist.
func submissionError(op string, err error) *apperrors.Error {
	switch {
	case chain.KindOf(err) == chain.KindRejected, chain.KindOf(err) == chain.KindNotFound:
		return apperrors.NewLedgerRejectedError(op, err)
	case chain.WasNotSent(err):
		return apperrors.NewLedgerUnavailableError(op, err)
	default:
		return apperrors.NewSubmissionUnknownError(op, err)
	}
}

func confirmationError(txId string, err error) *apperrors.Error {
	if chain.KindOf(err) == chain.KindTimeout ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return apperrors.NewConfirmationTimeoutError(txId, err)
	}
	return ledgerError("confirmation of "+txId, err)
}
