package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"asset-market-go/internal/models"
	"asset-market-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func setupTestDb(t *testing.T) *Service {
	t.Helper()
	cfg := models.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "market.db"),
		MaxOpenConns:    8,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     5 * time.Second,
		BusyTimeout:     10 * time.Second,
	}
	svc, err := NewService(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

type fixture struct {
	seller       *models.User
	sellerWallet *models.Wallet
	buyer        *models.User
	buyerWallet  *models.Wallet
	asset        *models.Asset
}

func createTestUser(t *testing.T, svc *Service, name string) (*models.User, *models.Wallet) {
	t.Helper()
	ctx := context.Background()
	user, err := svc.CreateUser(ctx, uuid.New().String(), name, name+"@example.com")
	if err != nil {
		t.Fatalf("Failed to create user %s: %v", name, err)
	}
	wallet, err := svc.CreateWallet(ctx, store.CreateWalletParams{
		UserId:       user.Id,
		Address:      "R" + name,
		EncryptedKey: "v1:" + name,
	})
	if err != nil {
		t.Fatalf("Failed to create wallet for %s: %v", name, err)
	}
	return user, wallet
}

func setupFixture(t *testing.T, svc *Service) *fixture {
	t.Helper()
	f := &fixture{}
	f.seller, f.sellerWallet = createTestUser(t, svc, "seller")
	f.buyer, f.buyerWallet = createTestUser(t, svc, "buyer")

	asset, err := svc.CreateAsset(context.Background(), store.CreateAssetParams{
		BlockchainAssetId: "creation-tx",
		Name:              "SUNSET",
		Description:       "a picture",
		Price:             decimal.RequireFromString("12.5"),
		ReferenceHash:     "QmHash",
		IsListed:          true,
		OwnerWalletId:     f.sellerWallet.Id,
		OwnerUserId:       f.seller.Id,
		CreationTxId:      "creation-tx",
		SendTxId:          "send-tx",
	})
	if err != nil {
		t.Fatalf("Failed to create asset: %v", err)
	}
	f.asset = asset
	return f
}

func TestCreateWallet_FirstWalletIsPrimary(t *testing.T) {
	svc := setupTestDb(t)
	ctx := context.Background()
	user, first := createTestUser(t, svc, "alice")

	if !first.IsPrimary {
		t.Fatalf("Expected first wallet to be primary")
	}

	second, err := svc.CreateWallet(ctx, store.CreateWalletParams{UserId: user.Id, Address: "Ralice2", EncryptedKey: "k"})
	if err != nil {
		t.Fatalf("Failed to create second wallet: %v", err)
	}
	if second.IsPrimary {
		t.Errorf("Expected second wallet not to be primary")
	}

	third, err := svc.CreateWallet(ctx, store.CreateWalletParams{UserId: user.Id, Address: "Ralice3", EncryptedKey: "k", MakePrimary: true})
	if err != nil {
		t.Fatalf("Failed to create third wallet: %v", err)
	}

	primary, err := svc.GetPrimaryWallet(ctx, user.Id)
	if err != nil {
		t.Fatalf("Failed to get primary wallet: %v", err)
	}
	if primary.Id != third.Id {
		t.Errorf("Expected primary %s, got %s", third.Id, primary.Id)
	}

	if err := svc.SetPrimaryWallet(ctx, user.Id, second.Id); err != nil {
		t.Fatalf("Failed to set primary wallet: %v", err)
	}
	wallets, err := svc.GetUserWallets(ctx, user.Id)
	if err != nil {
		t.Fatalf("Failed to list wallets: %v", err)
	}
	primaries := 0
	for _, w := range wallets {
		if w.IsPrimary {
			primaries++
			if w.Id != second.Id {
				t.Errorf("Expected %s to be primary, got %s", second.Id, w.Id)
			}
		}
	}
	if primaries != 1 {
		t.Errorf("Expected exactly one primary wallet, got %d", primaries)
	}
}

func TestCreateWallet_DuplicateAddress(t *testing.T) {
	svc := setupTestDb(t)
	user, _ := createTestUser(t, svc, "alice")

	_, err := svc.CreateWallet(context.Background(), store.CreateWalletParams{UserId: user.Id, Address: "Ralice", EncryptedKey: "k"})
	if !errors.Is(err, store.ErrDuplicateWalletAddress) {
		t.Fatalf("Expected ErrDuplicateWalletAddress, got %v", err)
	}
}

func TestGetPrimaryWallet_NoWallet(t *testing.T) {
	svc := setupTestDb(t)
	user, err := svc.CreateUser(context.Background(), uuid.New().String(), "nobody", "nobody@example.com")
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	if _, err := svc.GetPrimaryWallet(context.Background(), user.Id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestCreateAsset_RecordsMintHistory(t *testing.T) {
	svc := setupTestDb(t)
	f := setupFixture(t, svc)
	ctx := context.Background()

	got, err := svc.GetAssetByName(ctx, "SUNSET")
	if err != nil {
		t.Fatalf("Failed to get asset: %v", err)
	}
	if !got.Price.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("Expected price 12.5, got %s", got.Price)
	}
	if got.OwnerWalletId != f.sellerWallet.Id || !got.IsListed {
		t.Errorf("Unexpected asset state: %+v", got)
	}

	history, err := svc.GetAssetHistory(ctx, f.asset.Id)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("Expected 1 history row, got %d", len(history))
	}
	if history[0].TransactionType != models.TransactionTypeMint || history[0].BuyerUserId != f.seller.Id {
		t.Errorf("Unexpected mint row: %+v", history[0])
	}
	if history[0].SellerUserId != "" {
		t.Errorf("Expected empty seller on mint, got %s", history[0].SellerUserId)
	}
}

func TestCreateAsset_DuplicateName(t *testing.T) {
	svc := setupTestDb(t)
	f := setupFixture(t, svc)

	_, err := svc.CreateAsset(context.Background(), store.CreateAssetParams{
		BlockchainAssetId: "other-tx",
		Name:              "SUNSET",
		Price:             decimal.NewFromInt(1),
		OwnerWalletId:     f.sellerWallet.Id,
		OwnerUserId:       f.seller.Id,
	})
	if !errors.Is(err, store.ErrDuplicateAssetName) {
		t.Fatalf("Expected ErrDuplicateAssetName, got %v", err)
	}

	history, err := svc.GetAssetHistory(context.Background(), f.asset.Id)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("Expected failed insert to leave history untouched, got %d rows", len(history))
	}
}

func TestSetListing_OwnerOnly(t *testing.T) {
	svc := setupTestDb(t)
	f := setupFixture(t, svc)
	ctx := context.Background()

	newPrice := decimal.RequireFromString("20")
	updated, err := svc.SetListing(ctx, store.SetListingParams{
		AssetId: f.asset.Id, OwnerWalletId: f.sellerWallet.Id, Listed: false, Price: &newPrice,
	})
	if err != nil {
		t.Fatalf("Failed to update listing: %v", err)
	}
	if updated.IsListed || !updated.Price.Equal(newPrice) || updated.Version != 0 {
		t.Errorf("Unexpected listing state: %+v", updated)
	}

	_, err = svc.SetListing(ctx, store.SetListingParams{AssetId: f.asset.Id, OwnerWalletId: f.buyerWallet.Id, Listed: true})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("Expected ErrConflict for non-owner, got %v", err)
	}
}

func TestCommitPurchase(t *testing.T) {
	svc := setupTestDb(t)
	f := setupFixture(t, svc)
	ctx := context.Background()

	history, err := svc.CommitPurchase(ctx, store.CommitPurchaseParams{
		AssetId:         f.asset.Id,
		SellerWalletId:  f.sellerWallet.Id,
		BuyerWalletId:   f.buyerWallet.Id,
		SellerUserId:    f.seller.Id,
		BuyerUserId:     f.buyer.Id,
		ExpectedVersion: f.asset.Version,
		Price:           f.asset.Price,
		PaymentTxId:     "pay-tx",
		AssetTxId:       "asset-tx",
	})
	if err != nil {
		t.Fatalf("Failed to commit purchase: %v", err)
	}
	if history.TransactionType != models.TransactionTypePurchase || history.BlockchainPaymentTxId != "pay-tx" {
		t.Errorf("Unexpected history row: %+v", history)
	}

	asset, err := svc.GetAsset(ctx, f.asset.Id)
	if err != nil {
		t.Fatalf("Failed to get asset: %v", err)
	}
	if asset.OwnerWalletId != f.buyerWallet.Id {
		t.Errorf("Expected owner %s, got %s", f.buyerWallet.Id, asset.OwnerWalletId)
	}
	if asset.IsListed {
		t.Errorf("Expected purchase to unlist the asset")
	}
	if asset.Version != f.asset.Version+1 {
		t.Errorf("Expected version bump, got %d", asset.Version)
	}

	owned, err := svc.ListAssetsByOwner(ctx, f.buyer.Id)
	if err != nil {
		t.Fatalf("Failed to list buyer assets: %v", err)
	}
	if len(owned) != 1 || owned[0].Id != f.asset.Id {
		t.Errorf("Expected buyer to own the asset, got %+v", owned)
	}
}

func TestCommitPurchase_StaleVersionConflicts(t *testing.T) {
	svc := setupTestDb(t)
	f := setupFixture(t, svc)
	ctx := context.Background()

	params := store.CommitPurchaseParams{
		AssetId:         f.asset.Id,
		SellerWalletId:  f.sellerWallet.Id,
		BuyerWalletId:   f.buyerWallet.Id,
		SellerUserId:    f.seller.Id,
		BuyerUserId:     f.buyer.Id,
		ExpectedVersion: f.asset.Version + 7,
		Price:           f.asset.Price,
	}
	if _, err := svc.CommitPurchase(ctx, params); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}

	asset, _ := svc.GetAsset(ctx, f.asset.Id)
	if asset.OwnerWalletId != f.sellerWallet.Id {
		t.Errorf("Expected owner unchanged after conflict")
	}
	history, _ := svc.GetAssetHistory(ctx, f.asset.Id)
	if len(history) != 1 {
		t.Errorf("Expected no purchase history after conflict, got %d rows", len(history))
	}
}

func TestCreateOffer_OnePendingPerOfferer(t *testing.T) {
	svc := setupTestDb(t)
	f := setupFixture(t, svc)
	ctx := context.Background()

	params := store.CreateOfferParams{
		AssetId:       f.asset.Id,
		OffererUserId: f.buyer.Id,
		OwnerUserId:   f.seller.Id,
		OfferPrice:    decimal.RequireFromString("10"),
		ExpiresAt:     time.Now().Add(time.Hour),
	}
	first, err := svc.CreateOffer(ctx, params)
	if err != nil {
		t.Fatalf("Failed to create offer: %v", err)
	}
	if _, err := svc.CreateOffer(ctx, params); !errors.Is(err, store.ErrDuplicatePendingOffer) {
		t.Fatalf("Expected ErrDuplicatePendingOffer, got %v", err)
	}

	// A resolved offer frees the slot
	if err := svc.CancelOffer(ctx, first.Id); err != nil {
		t.Fatalf("Failed to cancel offer: %v", err)
	}
	if _, err := svc.CreateOffer(ctx, params); err != nil {
		t.Fatalf("Expected new offer after cancel, got %v", err)
	}
}

func TestCreateOffer_OverdueOfferDoesNotBlock(t *testing.T) {
	svc := setupTestDb(t)
	f := setupFixture(t, svc)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	stale, err := svc.CreateOffer(ctx, store.CreateOfferParams{
		AssetId: f.asset.Id, OffererUserId: f.buyer.Id, OwnerUserId: f.seller.Id,
		OfferPrice: decimal.NewFromInt(5), ExpiresAt: base, Now: base.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("Failed to create offer: %v", err)
	}

	fresh, err := svc.CreateOffer(ctx, store.CreateOfferParams{
		AssetId: f.asset.Id, OffererUserId: f.buyer.Id, OwnerUserId: f.seller.Id,
		OfferPrice: decimal.NewFromInt(6), ExpiresAt: base.Add(24 * time.Hour), Now: base.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("Expected overdue offer to be replaced, got %v", err)
	}

	old, err := svc.GetOffer(ctx, stale.Id)
	if err != nil {
		t.Fatalf("Failed to get offer: %v", err)
	}
	if old.Status != models.OfferStatusExpired {
		t.Errorf("Expected overdue offer to be expired, got %s", old.Status)
	}
	if fresh.Status != models.OfferStatusPending {
		t.Errorf("Expected new offer pending, got %s", fresh.Status)
	}
}

func TestListOffersReceived_ExcludesOwnOffers(t *testing.T) {
	svc := setupTestDb(t)
	f := setupFixture(t, svc)
	ctx := context.Background()

	own, err := svc.CreateOffer(ctx, store.CreateOfferParams{
		AssetId: f.asset.Id, OffererUserId: f.buyer.Id, OwnerUserId: f.seller.Id,
		OfferPrice: decimal.NewFromInt(5), ExpiresAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Failed to create offer: %v", err)
	}

	// Direct purchase while the buyer's offer is still pending
	_, err = svc.CommitPurchase(ctx, store.CommitPurchaseParams{
		AssetId:         f.asset.Id,
		SellerWalletId:  f.sellerWallet.Id,
		BuyerWalletId:   f.buyerWallet.Id,
		SellerUserId:    f.seller.Id,
		BuyerUserId:     f.buyer.Id,
		ExpectedVersion: f.asset.Version,
		Price:           f.asset.Price,
		PaymentTxId:     "pay-tx",
		AssetTxId:       "asset-tx",
	})
	if err != nil {
		t.Fatalf("Failed to commit purchase: %v", err)
	}

	received, err := svc.ListOffersReceived(ctx, f.buyer.Id)
	if err != nil {
		t.Fatalf("Failed to list received offers: %v", err)
	}
	for _, r := range received {
		if r.Offer.Id == own.Id {
			t.Errorf("Buyer's own offer %s listed as received", own.Id)
		}
	}
}

func TestCreateOffer_ConcurrentDuplicates(t *testing.T) {
	svc := setupTestDb(t)
	f := setupFixture(t, svc)

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	created, duplicates := 0, 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateOffer(context.Background(), store.CreateOfferParams{
				AssetId:       f.asset.Id,
				OffererUserId: f.buyer.Id,
				OwnerUserId:   f.seller.Id,
				OfferPrice:    decimal.NewFromInt(5),
				ExpiresAt:     time.Now().Add(time.Hour),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, store.ErrDuplicatePendingOffer):
				duplicates++
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if created != 1 || duplicates != workers-1 {
		t.Fatalf("Expected 1 created and %d duplicates, got %d and %d", workers-1, created, duplicates)
	}
}

func TestOfferStatusIsFinal(t *testing.T) {
	svc := setupTestDb(t)
	f := setupFixture(t, svc)
	ctx := context.Background()

	offer, err := svc.CreateOffer(ctx, store.CreateOfferParams{
		AssetId: f.asset.Id, OffererUserId: f.buyer.Id, OwnerUserId: f.seller.Id,
		OfferPrice: decimal.NewFromInt(3), ExpiresAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Failed to create offer: %v", err)
	}
	if err := svc.RejectOffer(ctx, offer.Id); err != nil {
		t.Fatalf("Failed to reject offer: %v", err)
	}
	if err := svc.CancelOffer(ctx, offer.Id); !errors.Is(err, store.ErrOfferNotPending) {
		t.Fatalf("Expected ErrOfferNotPending, got %v", err)
	}
	if err := svc.CancelOffer(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	// The schema refuses to move a terminal offer even with raw SQL
	if _, err := svc.db.ExecContext(ctx, "UPDATE offers SET status = 'pending' WHERE id = ?", offer.Id); err == nil {
		t.Fatalf("Expected trigger to refuse leaving a terminal status")
	}

	got, err := svc.GetOffer(ctx, offer.Id)
	if err != nil {
		t.Fatalf("Failed to get offer: %v", err)
	}
	if got.Status != models.OfferStatusRejected {
		t.Errorf("Expected rejected, got %s", got.Status)
	}
}

func TestCommitOfferAcceptance_RejectsOthers(t *testing.T) {
	svc := setupTestDb(t)
	f := setupFixture(t, svc)
	ctx := context.Background()
	carol, _ := createTestUser(t, svc, "carol")

	mk := func(userId string) *models.Offer {
		o, err := svc.CreateOffer(ctx, store.CreateOfferParams{
			AssetId: f.asset.Id, OffererUserId: userId, OwnerUserId: f.seller.Id,
			OfferPrice: decimal.NewFromInt(9), ExpiresAt: time.Now().Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("Failed to create offer: %v", err)
		}
		return o
	}
	winning := mk(f.buyer.Id)
	losing := mk(carol.Id)

	received, err := svc.ListOffersReceived(ctx, f.seller.Id)
	if err != nil {
		t.Fatalf("Failed to list received offers: %v", err)
	}
	if len(received) != 2 || received[0].Asset.Id != f.asset.Id {
		t.Fatalf("Expected 2 received offers on the asset, got %+v", received)
	}

	params := store.CommitOfferAcceptanceParams{
		OfferId:         winning.Id,
		AssetId:         f.asset.Id,
		SellerWalletId:  f.sellerWallet.Id,
		BuyerWalletId:   f.buyerWallet.Id,
		SellerUserId:    f.seller.Id,
		BuyerUserId:     f.buyer.Id,
		ExpectedVersion: f.asset.Version,
		Price:           winning.OfferPrice,
		TxId:            "accept-tx",
	}
	history, err := svc.CommitOfferAcceptance(ctx, params)
	if err != nil {
		t.Fatalf("Failed to commit acceptance: %v", err)
	}
	if history.TransactionType != models.TransactionTypeOfferAccepted {
		t.Errorf("Expected offer_accepted history, got %s", history.TransactionType)
	}

	w, _ := svc.GetOffer(ctx, winning.Id)
	l, _ := svc.GetOffer(ctx, losing.Id)
	if w.Status != models.OfferStatusAccepted || w.TxId != "accept-tx" {
		t.Errorf("Unexpected winning offer: %+v", w)
	}
	if l.Status != models.OfferStatusRejected {
		t.Errorf("Expected competing offer rejected, got %s", l.Status)
	}
	if w.OwnerUserId != f.seller.Id {
		t.Errorf("Expected owner snapshot unchanged, got %s", w.OwnerUserId)
	}

	// Second accept on the same epoch must conflict and change nothing
	params.OfferId = losing.Id
	if _, err := svc.CommitOfferAcceptance(ctx, params); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}
	asset, _ := svc.GetAsset(ctx, f.asset.Id)
	if asset.OwnerWalletId != f.buyerWallet.Id {
		t.Errorf("Expected buyer to remain owner")
	}
}

func TestCommitOfferAcceptance_Concurrent(t *testing.T) {
	svc := setupTestDb(t)
	f := setupFixture(t, svc)
	ctx := context.Background()
	carol, carolWallet := createTestUser(t, svc, "carol")

	offerFor := func(userId string) *models.Offer {
		o, err := svc.CreateOffer(ctx, store.CreateOfferParams{
			AssetId: f.asset.Id, OffererUserId: userId, OwnerUserId: f.seller.Id,
			OfferPrice: decimal.NewFromInt(9), ExpiresAt: time.Now().Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("Failed to create offer: %v", err)
		}
		return o
	}
	attempts := []store.CommitOfferAcceptanceParams{
		{OfferId: offerFor(f.buyer.Id).Id, BuyerWalletId: f.buyerWallet.Id, BuyerUserId: f.buyer.Id, TxId: "tx-b"},
		{OfferId: offerFor(carol.Id).Id, BuyerWalletId: carolWallet.Id, BuyerUserId: carol.Id, TxId: "tx-c"},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(attempts))
	for i := range attempts {
		p := attempts[i]
		p.AssetId = f.asset.Id
		p.SellerWalletId = f.sellerWallet.Id
		p.SellerUserId = f.seller.Id
		p.ExpectedVersion = f.asset.Version
		p.Price = decimal.NewFromInt(9)
		wg.Add(1)
		go func(i int, p store.CommitOfferAcceptanceParams) {
			defer wg.Done()
			_, errs[i] = svc.CommitOfferAcceptance(ctx, p)
		}(i, p)
	}
	wg.Wait()

	succeeded, conflicted := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, store.ErrConflict):
			conflicted++
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if succeeded != 1 || conflicted != 1 {
		t.Fatalf("Expected one success and one conflict, got %d and %d", succeeded, conflicted)
	}

	history, _ := svc.GetAssetHistory(ctx, f.asset.Id)
	if len(history) != 2 {
		t.Errorf("Expected mint plus one acceptance in history, got %d", len(history))
	}
}

func TestExpireOffers(t *testing.T) {
	svc := setupTestDb(t)
	f := setupFixture(t, svc)
	ctx := context.Background()
	carol, _ := createTestUser(t, svc, "carol")

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	stale, err := svc.CreateOffer(ctx, store.CreateOfferParams{
		AssetId: f.asset.Id, OffererUserId: f.buyer.Id, OwnerUserId: f.seller.Id,
		OfferPrice: decimal.NewFromInt(1), ExpiresAt: base,
	})
	if err != nil {
		t.Fatalf("Failed to create offer: %v", err)
	}
	fresh, err := svc.CreateOffer(ctx, store.CreateOfferParams{
		AssetId: f.asset.Id, OffererUserId: carol.Id, OwnerUserId: f.seller.Id,
		OfferPrice: decimal.NewFromInt(1), ExpiresAt: base.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Failed to create offer: %v", err)
	}

	n, err := svc.ExpireOffers(ctx, base)
	if err != nil {
		t.Fatalf("Failed to expire offers: %v", err)
	}
	if n != 1 {
		t.Fatalf("Expected 1 expired offer, got %d", n)
	}

	s, _ := svc.GetOffer(ctx, stale.Id)
	fr, _ := svc.GetOffer(ctx, fresh.Id)
	if s.Status != models.OfferStatusExpired {
		t.Errorf("Expected expired, got %s", s.Status)
	}
	if fr.Status != models.OfferStatusPending {
		t.Errorf("Expected pending, got %s", fr.Status)
	}

	// Sweeping again is a no-op
	if n, _ := svc.ExpireOffers(ctx, base); n != 0 {
		t.Errorf("Expected second sweep to expire nothing, got %d", n)
	}
}

func TestTransactionHistoryIsAppendOnly(t *testing.T) {
	svc := setupTestDb(t)
	f := setupFixture(t, svc)
	ctx := context.Background()

	if _, err := svc.db.ExecContext(ctx, "UPDATE transaction_history SET notes = 'x'"); err == nil {
		t.Errorf("Expected update of history to fail")
	}
	if _, err := svc.db.ExecContext(ctx, "DELETE FROM transaction_history"); err == nil {
		t.Errorf("Expected delete of history to fail")
	}

	history, err := svc.GetUserHistory(ctx, f.seller.Id, 10, 0)
	if err != nil {
		t.Fatalf("Failed to get user history: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("Expected 1 row, got %d", len(history))
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	svc := setupTestDb(t)
	if err := RunMigrations(svc.db); err != nil {
		t.Fatalf("Expected second migration run to be a no-op, got %v", err)
	}
}
