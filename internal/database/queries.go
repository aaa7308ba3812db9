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

package database

const (
	// User queries
	queryGetActiveUsers = `
		SELECT id, name, email, created_at, updated_at
		FROM users
		WHERE active = 1
		ORDER BY created_at`

	queryInsertUser = `
		INSERT OR IGNORE INTO users (id, name, email) VALUES (?, ?, ?)`

	queryGetUserById = `
		SELECT id, name, email, created_at, updated_at
		FROM users
		WHERE id = ? AND active = 1`

	queryGetUserByEmail = `
		SELECT id, name, email, created_at, updated_at
		FROM users
		WHERE email = ? AND active = 1`

	// Wallet queries
	walletColumns = `id, user_id, address, encrypted_key, is_primary, created_at`

	queryInsertWallet = `
		INSERT INTO wallets (id, user_id, address, encrypted_key, is_primary, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetWalletById = `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE id = ?`

	queryGetPrimaryWallet = `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE user_id = ? AND is_primary = 1`

	queryGetUserWallets = `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE user_id = ?
		ORDER BY is_primary DESC, created_at`

	queryFindWalletByAddress = `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE address = ?`

	queryCountUserWallets = `
		SELECT COUNT(*) FROM wallets WHERE user_id = ?`

	queryClearPrimaryWallet = `
		UPDATE wallets SET is_primary = 0 WHERE user_id = ? AND is_primary = 1`

	querySetPrimaryWallet = `
		UPDATE wallets SET is_primary = 1 WHERE id = ? AND user_id = ?`

	// Asset queries
	assetColumns = `a.id, a.blockchain_asset_id, a.name, a.description, a.price, a.reference_hash,
		a.is_listed, a.owner_wallet_id, a.version, a.created_at, a.updated_at`

	queryInsertAsset = `
		INSERT INTO assets (id, blockchain_asset_id, name, description, price, reference_hash,
			is_listed, owner_wallet_id, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`

	queryGetAssetById = `
		SELECT ` + assetColumns + `
		FROM assets a
		WHERE a.id = ?`

	queryGetAssetByName = `
		SELECT ` + assetColumns + `
		FROM assets a
		WHERE a.name = ?`

	queryListAssetsByOwner = `
		SELECT ` + assetColumns + `
		FROM assets a
		JOIN wallets w ON w.id = a.owner_wallet_id
		WHERE w.user_id = ?
		ORDER BY a.created_at`

	queryListListedAssets = `
		SELECT ` + assetColumns + `
		FROM assets a
		WHERE a.is_listed = 1
		ORDER BY a.created_at`

	queryListAllAssets = `
		SELECT ` + assetColumns + `
		FROM assets a
		ORDER BY a.created_at`

	// Listing changes do not start a new ownership epoch
	queryUpdateListing = `
		UPDATE assets
		SET is_listed = ?, price = ?, updated_at = ?
		WHERE id = ? AND owner_wallet_id = ?`

	// Optimistic ownership move; zero rows affected means the epoch changed
	queryTransferOwnership = `
		UPDATE assets
		SET owner_wallet_id = ?, is_listed = 0, version = version + 1, updated_at = ?
		WHERE id = ? AND owner_wallet_id = ? AND version = ?`

	// Offer queries
	offerColumns = `o.id, o.asset_id, o.offerer_user_id, o.owner_user_id, o.offer_price, o.status,
		o.expires_at, o.txid, o.created_at, o.updated_at`

	queryInsertOffer = `
		INSERT INTO offers (id, asset_id, offerer_user_id, owner_user_id, offer_price, status,
			expires_at, txid, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 'pending', ?, '', ?, ?)`

	queryGetOfferById = `
		SELECT ` + offerColumns + `
		FROM offers o
		WHERE o.id = ?`

	queryGetOfferStatus = `
		SELECT status FROM offers WHERE id = ?`

	queryResolvePendingOffer = `
		UPDATE offers
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'`

	queryAcceptOffer = `
		UPDATE offers
		SET status = 'accepted', txid = ?, updated_at = ?
		WHERE id = ? AND asset_id = ? AND status = 'pending'`

	queryRejectOtherPendingOffers = `
		UPDATE offers
		SET status = 'rejected', updated_at = ?
		WHERE asset_id = ? AND id <> ? AND status = 'pending'`

	queryExpireOffers = `
		UPDATE offers
		SET status = 'expired', updated_at = ?
		WHERE status = 'pending' AND expires_at <= ?`

	queryExpireOverdueOfferBy = `
		UPDATE offers
		SET status = 'expired', updated_at = ?
		WHERE asset_id = ? AND offerer_user_id = ? AND status = 'pending' AND expires_at <= ?`

	queryListOffersByOfferer = `
		SELECT ` + offerColumns + `
		FROM offers o
		WHERE o.offerer_user_id = ?
		ORDER BY o.created_at DESC`

	// Pending offers on assets the user owns now, whatever the snapshot says
	queryListOffersReceived = `
		SELECT ` + offerColumns + `, ` + assetColumns + `
		FROM offers o
		JOIN assets a ON a.id = o.asset_id
		JOIN wallets w ON w.id = a.owner_wallet_id
		WHERE w.user_id = ? AND o.status = 'pending' AND o.offerer_user_id <> w.user_id
		ORDER BY o.created_at DESC`

	queryListOffersForAsset = `
		SELECT ` + offerColumns + `
		FROM offers o
		WHERE o.asset_id = ?
		ORDER BY o.created_at DESC`

	// History queries
	historyColumns = `id, asset_id, seller_user_id, buyer_user_id, transaction_type, price_at_transaction,
		blockchain_asset_txid, blockchain_payment_txid, notes, created_at`

	queryInsertHistory = `
		INSERT INTO transaction_history (id, asset_id, seller_user_id, buyer_user_id, transaction_type,
			price_at_transaction, blockchain_asset_txid, blockchain_payment_txid, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetAssetHistory = `
		SELECT ` + historyColumns + `
		FROM transaction_history
		WHERE asset_id = ?
		ORDER BY created_at, rowid`

	queryGetUserHistory = `
		SELECT ` + historyColumns + `
		FROM transaction_history
		WHERE seller_user_id = ? OR buyer_user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`
)
