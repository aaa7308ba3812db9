package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a marketplace user
type User struct {
	Id        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Wallet is a ledger address owned by a user. EncryptedKey is vault ciphertext.
type Wallet struct {
	Id           string    `db:"id"`
	UserId       string    `db:"user_id"`
	Address      string    `db:"address"`
	EncryptedKey string    `db:"encrypted_key"`
	IsPrimary    bool      `db:"is_primary"`
	CreatedAt    time.Time `db:"created_at"`
}

// Asset mirrors a confirmed on-ledger unique asset
type Asset struct {
	Id                string          `db:"id"`
	BlockchainAssetId string          `db:"blockchain_asset_id"`
	Name              string          `db:"name"`
	Description       string          `db:"description"`
	Price             decimal.Decimal `db:"price"`
	ReferenceHash     string          `db:"reference_hash"`
	IsListed          bool            `db:"is_listed"`
	OwnerWalletId     string          `db:"owner_wallet_id"`
	Version           int64           `db:"version"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusRejected  OfferStatus = "rejected"
	OfferStatusCancelled OfferStatus = "cancelled"
	OfferStatusExpired   OfferStatus = "expired"
)

// IsTerminal reports whether no further transition is allowed
func (s OfferStatus) IsTerminal() bool {
	return s != OfferStatusPending
}

// Offer is a purchase proposal. OwnerUserId is the owner at offer time and is
// kept for audit only.
type Offer struct {
	Id            string          `db:"id"`
	AssetId       string          `db:"asset_id"`
	OffererUserId string          `db:"offerer_user_id"`
	OwnerUserId   string          `db:"owner_user_id"`
	OfferPrice    decimal.Decimal `db:"offer_price"`
	Status        OfferStatus     `db:"status"`
	ExpiresAt     time.Time       `db:"expires_at"`
	TxId          string          `db:"txid"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// IsExpired reports whether a pending offer is past its expiry at now
func (o *Offer) IsExpired(now time.Time) bool {
	return o.Status == OfferStatusPending && !now.Before(o.ExpiresAt)
}

type TransactionType string

const (
	TransactionTypeMint          TransactionType = "mint"
	TransactionTypePurchase      TransactionType = "purchase"
	TransactionTypeOfferAccepted TransactionType = "offer_accepted"
)

// TransactionHistory is an append-only record of an ownership event
type TransactionHistory struct {
	Id                    string          `db:"id"`
	AssetId               string          `db:"asset_id"`
	SellerUserId          string          `db:"seller_user_id"`
	BuyerUserId           string          `db:"buyer_user_id"`
	TransactionType       TransactionType `db:"transaction_type"`
	PriceAtTransaction    decimal.Decimal `db:"price_at_transaction"`
	BlockchainAssetTxId   string          `db:"blockchain_asset_txid"`
	BlockchainPaymentTxId string          `db:"blockchain_payment_txid"`
	Notes                 string          `db:"notes"`
	CreatedAt             time.Time       `db:"created_at"`
}
