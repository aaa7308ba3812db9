package store

import (
	"context"
	"errors"
	"time"

	"asset-market-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared by Registry implementations.
var (
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("concurrent modification detected")
	ErrDuplicatePendingOffer  = errors.New("a pending offer already exists for this asset and offerer")
	ErrDuplicateAssetName     = errors.New("asset name already registered")
	ErrDuplicateWalletAddress = errors.New("wallet address already registered")
	ErrOfferNotPending        = errors.New("offer is not pending")
)

// CreateWalletParams registers a wallet. The first wallet of a user becomes
// primary regardless of MakePrimary.
type CreateWalletParams struct {
	UserId       string
	Address      string
	EncryptedKey string
	MakePrimary  bool
}

// CreateAssetParams is the final commit of the creation pipeline
type CreateAssetParams struct {
	BlockchainAssetId string
	Name              string
	Description       string
	Price             decimal.Decimal
	ReferenceHash     string
	IsListed          bool
	OwnerWalletId     string
	OwnerUserId       string
	CreationTxId      string
	SendTxId          string
}

// CommitPurchaseParams moves ownership after a confirmed payment and transfer.
// The commit only applies while the asset is still owned by SellerWalletId at
// ExpectedVersion.
type CommitPurchaseParams struct {
	AssetId         string
	SellerWalletId  string
	BuyerWalletId   string
	SellerUserId    string
	BuyerUserId     string
	ExpectedVersion int64
	Price           decimal.Decimal
	PaymentTxId     string
	AssetTxId       string
}

// Now is the caller's clock. A pending offer by the same offerer on the same
// asset that is overdue at Now is expired before the insert. Zero means the
// registry clock.
type CreateOfferParams struct {
	AssetId       string
	OffererUserId string
	OwnerUserId   string
	OfferPrice    decimal.Decimal
	ExpiresAt     time.Time
	Now           time.Time
}

// CommitOfferAcceptanceParams applies an accepted offer atomically
type CommitOfferAcceptanceParams struct {
	OfferId         string
	AssetId         string
	SellerWalletId  string
	BuyerWalletId   string
	SellerUserId    string
	BuyerUserId     string
	ExpectedVersion int64
	Price           decimal.Decimal
	TxId            string
}

type SetListingParams struct {
	AssetId       string
	OwnerWalletId string
	Listed        bool
	Price         *decimal.Decimal
}

// Registry is the relational mirror of ledger truth
type Registry interface {
	// --- Users ---
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, userId, name, email string) (*models.User, error)

	// --- Wallets ---
	CreateWallet(ctx context.Context, params CreateWalletParams) (*models.Wallet, error)
	GetWallet(ctx context.Context, walletId string) (*models.Wallet, error)
	GetPrimaryWallet(ctx context.Context, userId string) (*models.Wallet, error)
	GetUserWallets(ctx context.Context, userId string) ([]models.Wallet, error)
	SetPrimaryWallet(ctx context.Context, userId, walletId string) error
	FindWalletByAddress(ctx context.Context, address string) (*models.Wallet, error)

	// --- Assets ---
	CreateAsset(ctx context.Context, params CreateAssetParams) (*models.Asset, error)
	GetAsset(ctx context.Context, assetId string) (*models.Asset, error)
	GetAssetByName(ctx context.Context, name string) (*models.Asset, error)
	ListAssetsByOwner(ctx context.Context, userId string) ([]models.Asset, error)
	ListListedAssets(ctx context.Context) ([]models.Asset, error)
	ListAllAssets(ctx context.Context) ([]models.Asset, error)
	SetListing(ctx context.Context, params SetListingParams) (*models.Asset, error)
	CommitPurchase(ctx context.Context, params CommitPurchaseParams) (*models.TransactionHistory, error)

	// --- Offers ---
	CreateOffer(ctx context.Context, params CreateOfferParams) (*models.Offer, error)
	GetOffer(ctx context.Context, offerId string) (*models.Offer, error)
	CancelOffer(ctx context.Context, offerId string) error
	RejectOffer(ctx context.Context, offerId string) error
	CommitOfferAcceptance(ctx context.Context, params CommitOfferAcceptanceParams) (*models.TransactionHistory, error)
	ExpireOffers(ctx context.Context, now time.Time) (int64, error)
	ListOffersByOfferer(ctx context.Context, userId string) ([]models.Offer, error)
	ListOffersReceived(ctx context.Context, userId string) ([]models.ReceivedOffer, error)
	ListOffersForAsset(ctx context.Context, assetId string) ([]models.Offer, error)

	// --- History ---
	GetAssetHistory(ctx context.Context, assetId string) ([]models.TransactionHistory, error)
	GetUserHistory(ctx context.Context, userId string, limit, offset int) ([]models.TransactionHistory, error)

	// --- Lifecycle ---
	Close()
}
