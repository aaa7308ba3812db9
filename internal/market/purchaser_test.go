package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"asset-market-go/internal/chain"
	"asset-market-go/internal/chain/chaintest"
	apperrors "asset-market-go/internal/errors"
	"asset-market-go/internal/models"
	"asset-market-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuy_HappyPath(t *testing.T) {
	h := newHarness(t)
	seller := h.newParty("seller")
	buyer := h.newParty("buyer")
	asset := h.createAsset(seller, "SUNSET", "12.5", true)
	h.ledger.Fund(buyer.wallet.Address, 2_000_000_000)

	result, err := h.purchaser.Buy(context.Background(), models.BuyRequest{AssetId: asset.Id, BuyerUserId: buyer.user.Id})
	require.NoError(t, err)
	assert.NotEmpty(t, result.PaymentTxId)
	assert.NotEmpty(t, result.AssetTransferTxId)

	assert.Equal(t, int64(1_250_000_000), h.ledger.Balance(seller.wallet.Address))
	assert.Equal(t, buyer.wallet.Address, h.ledger.Holder("SUNSET"))

	updated, err := h.registry.GetAsset(context.Background(), asset.Id)
	require.NoError(t, err)
	assert.Equal(t, buyer.wallet.Id, updated.OwnerWalletId)
	assert.False(t, updated.IsListed)

	require.Len(t, h.settlements.history, 1)
	assert.Equal(t, models.TransactionTypePurchase, h.settlements.history[0].TransactionType)
	assert.Equal(t, result.PaymentTxId, h.settlements.history[0].BlockchainPaymentTxId)
	assert.Empty(t, h.journal.Unfinished())
}

func TestBuy_TransferFailureKeepsOwnerAndReportsPayment(t *testing.T) {
	h := newHarness(t)
	seller := h.newParty("seller")
	buyer := h.newParty("buyer")
	asset := h.createAsset(seller, "SUNSET", "12.5", true)
	h.ledger.Fund(buyer.wallet.Address, 2_000_000_000)
	h.ledger.FailNext(chaintest.OpTransfer, &chain.Error{Kind: chain.KindTransport, Op: "sendrawtransaction", Err: errors.New("connection reset")})

	_, err := h.purchaser.Buy(context.Background(), models.BuyRequest{AssetId: asset.Id, BuyerUserId: buyer.user.Id})
	require.ErrorIs(t, err, apperrors.ErrLedgerCommunication)

	appErr, _ := apperrors.As(err)
	assert.Equal(t, "asset_transfer", appErr.Step)
	require.Len(t, appErr.TxIds, 1, "confirmed payment txid must be reported")
	assert.False(t, apperrors.IsRetryable(err), "a confirmed payment makes blind retries unsafe")

	assert.Equal(t, seller.wallet.Id, h.ownerOf(asset.Id))
	assert.Equal(t, seller.wallet.Address, h.ledger.Holder("SUNSET"))
	assert.Equal(t, 2, h.ledger.Calls(chaintest.OpTransfer), "creation hand-over plus a single purchase transfer")
	assert.Empty(t, h.settlements.history)

	unfinished := h.journal.Unfinished()
	assert.Empty(t, unfinished, "failed runs are closed in the journal")
}

func TestBuy_PaymentLostInTransitIsNotRetryable(t *testing.T) {
	h := newHarness(t)
	seller := h.newParty("seller")
	buyer := h.newParty("buyer")
	asset := h.createAsset(seller, "SUNSET", "1", true)
	h.ledger.Fund(buyer.wallet.Address, 500_000_000)
	h.ledger.FailNext(chaintest.OpPayment, &chain.Error{Kind: chain.KindTransport, Op: "sendpayment", Err: errors.New("connection reset")})

	_, err := h.purchaser.Buy(context.Background(), models.BuyRequest{AssetId: asset.Id, BuyerUserId: buyer.user.Id})
	require.ErrorIs(t, err, apperrors.ErrLedgerCommunication)

	appErr, _ := apperrors.As(err)
	assert.Equal(t, "LEDGER_UNAVAILABLE", appErr.Code)
	assert.Equal(t, "payment", appErr.Step)
	assert.Empty(t, appErr.TxIds)
	assert.Empty(t, appErr.PendingTxId)
	assert.True(t, appErr.MaybeSubmitted)
	assert.False(t, apperrors.IsRetryable(err), "the payment may have been broadcast")
	assert.Equal(t, seller.wallet.Id, h.ownerOf(asset.Id))
}

func TestBuy_PaymentFailedBeforeBroadcastIsRetryable(t *testing.T) {
	h := newHarness(t)
	seller := h.newParty("seller")
	buyer := h.newParty("buyer")
	asset := h.createAsset(seller, "SUNSET", "1", true)
	h.ledger.Fund(buyer.wallet.Address, 500_000_000)
	h.ledger.FailNext(chaintest.OpPayment, &chain.Error{Kind: chain.KindTransport, Op: "sendpayment", NotSent: true, Err: errors.New("connection refused")})

	_, err := h.purchaser.Buy(context.Background(), models.BuyRequest{AssetId: asset.Id, BuyerUserId: buyer.user.Id})
	require.ErrorIs(t, err, apperrors.ErrLedgerCommunication)

	appErr, _ := apperrors.As(err)
	assert.False(t, appErr.MaybeSubmitted)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestBuy_PaymentTimeoutCarriesPendingTx(t *testing.T) {
	h := newHarness(t)
	h.cfg.ConfirmationTimeout = 50 * time.Millisecond
	h.rebuild()
	seller := h.newParty("seller")
	buyer := h.newParty("buyer")
	asset := h.createAsset(seller, "SUNSET", "1", true)
	h.ledger.Fund(buyer.wallet.Address, 500_000_000)
	h.ledger.NeverConfirm(chaintest.OpPayment)

	_, err := h.purchaser.Buy(context.Background(), models.BuyRequest{AssetId: asset.Id, BuyerUserId: buyer.user.Id})
	require.ErrorIs(t, err, apperrors.ErrConfirmationTimeout)

	appErr, _ := apperrors.As(err)
	assert.NotEmpty(t, appErr.PendingTxId)
	assert.Empty(t, appErr.TxIds)
	assert.Equal(t, seller.wallet.Id, h.ownerOf(asset.Id))
}

func TestBuy_Preconditions(t *testing.T) {
	h := newHarness(t)
	seller := h.newParty("seller")
	buyer := h.newParty("buyer")
	listed := h.createAsset(seller, "SUNSET", "12.5", true)
	unlisted := h.createAsset(seller, "DAWN", "3", false)
	h.ledger.Fund(buyer.wallet.Address, 100)

	ctx := context.Background()

	_, err := h.purchaser.Buy(ctx, models.BuyRequest{AssetId: unlisted.Id, BuyerUserId: buyer.user.Id})
	assert.Equal(t, "ASSET_NOT_LISTED", codeOf(t, err))

	_, err = h.purchaser.Buy(ctx, models.BuyRequest{AssetId: listed.Id, BuyerUserId: seller.user.Id})
	assert.Equal(t, "SELF_PURCHASE", codeOf(t, err))

	_, err = h.purchaser.Buy(ctx, models.BuyRequest{AssetId: listed.Id, BuyerUserId: buyer.user.Id})
	assert.Equal(t, "INSUFFICIENT_FUNDS", codeOf(t, err))

	_, err = h.purchaser.Buy(ctx, models.BuyRequest{AssetId: "missing", BuyerUserId: buyer.user.Id})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.Equal(t, 0, h.ledger.Calls(chaintest.OpPayment))
}

func TestBuy_CorruptKeyStopsBeforeLedger(t *testing.T) {
	h := newHarness(t)
	seller := h.newParty("seller")
	asset := h.createAsset(seller, "SUNSET", "1", true)

	buyerUser, err := h.registry.CreateUser(context.Background(), "buyer-id", "buyer", "buyer@example.com")
	require.NoError(t, err)
	_, err = h.registry.CreateWallet(context.Background(), store.CreateWalletParams{
		UserId: buyerUser.Id, Address: "Rbuyer", EncryptedKey: "v1:bm90LWEtY2lwaGVydGV4dA==",
	})
	require.NoError(t, err)
	h.ledger.Fund("Rbuyer", 1_000_000_000)

	_, err = h.purchaser.Buy(context.Background(), models.BuyRequest{AssetId: asset.Id, BuyerUserId: buyerUser.Id})
	require.ErrorIs(t, err, apperrors.ErrKey)
	assert.NotContains(t, err.Error(), "wif-")
	assert.Equal(t, 0, h.ledger.Calls(chaintest.OpPayment))
}

func TestBuy_SellerNoLongerHolds(t *testing.T) {
	h := newHarness(t)
	seller := h.newParty("seller")
	buyer := h.newParty("buyer")
	asset := h.createAsset(seller, "SUNSET", "1", true)
	h.ledger.Fund(buyer.wallet.Address, 1_000_000_000)

	// Move the asset on the ledger behind the Registry's back
	_, err := h.ledger.TransferAsset(context.Background(), chain.TransferAssetRequest{
		AssetId: "asset-" + asset.BlockchainAssetId, Amount: 1,
		FromAddress: seller.wallet.Address, ToAddress: "RElsewhere", SigningKey: "k",
	})
	require.NoError(t, err)

	_, err = h.purchaser.Buy(context.Background(), models.BuyRequest{AssetId: asset.Id, BuyerUserId: buyer.user.Id})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "SELLER_NOT_HOLDER", appErr.Code)
	assert.Equal(t, 0, h.ledger.Calls(chaintest.OpPayment))
}

func TestBuy_ConcurrentCommitConflicts(t *testing.T) {
	h := newHarness(t)
	seller := h.newParty("seller")
	buyer := h.newParty("buyer")
	rival := h.newParty("rival")
	asset := h.createAsset(seller, "SUNSET", "1", true)
	h.ledger.Fund(buyer.wallet.Address, 1_000_000_000)

	// Another commit wins the ownership epoch while the transfer is in flight
	h.ledger.BeforeSubmit(chaintest.OpTransfer, func() {
		_, err := h.registry.CommitPurchase(context.Background(), store.CommitPurchaseParams{
			AssetId: asset.Id, SellerWalletId: seller.wallet.Id, BuyerWalletId: rival.wallet.Id,
			SellerUserId: seller.user.Id, BuyerUserId: rival.user.Id,
			ExpectedVersion: asset.Version, Price: asset.Price,
		})
		require.NoError(t, err)
	})

	_, err := h.purchaser.Buy(context.Background(), models.BuyRequest{AssetId: asset.Id, BuyerUserId: buyer.user.Id})
	require.ErrorIs(t, err, apperrors.ErrConflict)

	appErr, _ := apperrors.As(err)
	assert.Equal(t, "OWNERSHIP_CONFLICT", appErr.Code)
	assert.Len(t, appErr.TxIds, 2)
	assert.Equal(t, rival.wallet.Id, h.ownerOf(asset.Id))
}
