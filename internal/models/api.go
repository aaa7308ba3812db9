/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateAssetRequest describes a new unique asset to mint for a customer
type CreateAssetRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	ReferenceHash string          `json:"reference_hash"`
	OwnerUserId   string          `json:"owner_user_id"`
	List          bool            `json:"list"`
}

// CreateAssetResult carries every txid of a completed creation pipeline
type CreateAssetResult struct {
	AssetId        string `json:"asset_id"`
	CreationTxId   string `json:"creation_txid"`
	MintTxId       string `json:"mint_txid"`
	SendTxId       string `json:"send_txid"`
	NumericAssetId string `json:"numeric_asset_id"`
}

// BuyRequest is a direct purchase of a listed asset at its asking price
type BuyRequest struct {
	AssetId     string `json:"asset_id"`
	BuyerUserId string `json:"buyer_user_id"`
}

type PurchaseResult struct {
	PaymentTxId       string `json:"payment_txid"`
	AssetTransferTxId string `json:"asset_transfer_txid"`
}

type MakeOfferRequest struct {
	AssetId       string          `json:"asset_id"`
	OffererUserId string          `json:"offerer_user_id"`
	OfferPrice    decimal.Decimal `json:"offer_price"`
	// ExpiresAt is optional; zero means the configured default TTL.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

type AcceptOfferResult struct {
	OfferId string `json:"offer_id"`
	TxId    string `json:"txid"`
}

// SetListingRequest toggles a listing; a nil Price keeps the current price
type SetListingRequest struct {
	AssetId     string           `json:"asset_id"`
	OwnerUserId string           `json:"owner_user_id"`
	Listed      bool             `json:"listed"`
	Price       *decimal.Decimal `json:"price,omitempty"`
}

// ReceivedOffer pairs a pending offer with the asset it targets
type ReceivedOffer struct {
	Offer Offer `json:"offer"`
	Asset Asset `json:"asset"`
}

// OwnershipDrift is one asset whose Registry owner disagrees with the ledger
type OwnershipDrift struct {
	AssetId       string   `json:"asset_id"`
	AssetName     string   `json:"asset_name"`
	RegistryOwner string   `json:"registry_owner_address"`
	LedgerHolders []string `json:"ledger_holders"`
	Error         string   `json:"error,omitempty"`
}

// ReconcileReport summarizes a Registry versus ledger comparison
type ReconcileReport struct {
	Checked       int              `json:"checked"`
	Drift         []OwnershipDrift `json:"drift"`
	UnfinishedRun []PipelineRun    `json:"unfinished_runs"`
}

// WalletBalance is the ledger coin balance of one wallet
type WalletBalance struct {
	WalletId  string          `json:"wallet_id"`
	Address   string          `json:"address"`
	IsPrimary bool            `json:"is_primary"`
	Balance   decimal.Decimal `json:"balance"`
	BaseUnits int64           `json:"base_units"`
}
