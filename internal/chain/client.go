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

// Package chain talks to the public asset ledger. Signing keys passed in
// requests are opaque credentials and are never logged or stored.
package chain

import "context"

// AssetMetadata defines a new unique asset
type AssetMetadata struct {
	Name           string
	ReferenceHash  string
	TargetAddress  string
	OwnerAddress   string
	Type           int
	Updatable      bool
	DecimalPoint   int
	MaxMintCount   int
	IssueFrequency int
}

// AssetDetails is the ledger's view of an asset
type AssetDetails struct {
	AssetId           string
	Name              string
	CreationTxId      string
	OwnerAddress      string
	ReferenceHash     string
	MintCount         int64
	CirculatingSupply int64
}

// TransferAssetRequest moves Amount units of an asset. An empty SigningKey
// means the node-custodied platform wallet signs.
type TransferAssetRequest struct {
	AssetId     string
	AssetName   string
	Amount      int64
	FromAddress string
	ToAddress   string
	SigningKey  string
}

// PaymentRequest moves Amount base units of the native coin
type PaymentRequest struct {
	FromAddress string
	ToAddress   string
	SigningKey  string
	Amount      int64
}

// Client is the ledger surface used by the marketplace pipelines. Every
// submitting call is irreversible once it returns a txid.
type Client interface {
	InitiateAssetCreation(ctx context.Context, meta AssetMetadata) (string, error)
	MintCreatedAsset(ctx context.Context, creationTxId string) (string, error)
	// WaitTransaction blocks until txId has at least confirmations
	// confirmations or ctx is done.
	WaitTransaction(ctx context.Context, txId string, confirmations int) error
	// GetAssetDetailsByName returns an Error of KindNotFound when no asset
	// with that name exists.
	GetAssetDetailsByName(ctx context.Context, name string) (*AssetDetails, error)
	TransferAsset(ctx context.Context, req TransferAssetRequest) (string, error)
	SendPayment(ctx context.Context, req PaymentRequest) (string, error)
	// ListAddressesHoldingAsset maps holder address to units held
	ListAddressesHoldingAsset(ctx context.Context, name string) (map[string]int64, error)
	GetAddressBalance(ctx context.Context, address string) (int64, error)
}
