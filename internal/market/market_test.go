package market

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"asset-market-go/internal/chain/chaintest"
	"asset-market-go/internal/database"
	"asset-market-go/internal/journal"
	"asset-market-go/internal/models"
	"asset-market-go/internal/store"
	"asset-market-go/internal/vault"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const platformAddress = "RPlatform"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSettlements struct {
	mu      sync.Mutex
	history []models.TransactionHistory
}

func (r *recordingSettlements) RecordSettlement(_ context.Context, h *models.TransactionHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, *h)
	return nil
}

type harness struct {
	t           *testing.T
	registry    *database.Service
	ledger      *chaintest.Ledger
	vault       *vault.Vault
	journal     *journal.Journal
	clock       *testClock
	settlements *recordingSettlements
	cfg         Config

	creator   *Creator
	purchaser *Purchaser
	offers    *OfferManager
	catalog   *Catalog
}

type party struct {
	user   *models.User
	wallet *models.Wallet
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	registry, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(dir, "market.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		PingTimeout:  5 * time.Second,
		BusyTimeout:  10 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(registry.Close)

	j, err := journal.Open(models.JournalConfig{Dir: filepath.Join(dir, "journal"), SegmentThreshold: 100, MaxSegments: 5})
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	key := make([]byte, vault.KeySize)
	for i := range key {
		key[i] = byte(i + 1)
	}
	v, err := vault.New(key)
	require.NoError(t, err)

	h := &harness{
		t:           t,
		registry:    registry,
		ledger:      chaintest.New(),
		vault:       v,
		journal:     j,
		clock:       &testClock{now: time.Now().UTC().Truncate(time.Second)},
		settlements: &recordingSettlements{},
	}
	h.cfg = Config{
		Registry:              registry,
		Chain:                 h.ledger,
		Vault:                 v,
		Journal:               j,
		Settlements:           h.settlements,
		Confirmations:         1,
		ConfirmationTimeout:   time.Second,
		PaymentFee:            10000,
		PlatformWalletAddress: platformAddress,
		DefaultOfferTTL:       24 * time.Hour,
		AssetProfile:          models.DefaultAssetProfile(),
		Now:                   h.clock.Now,
	}
	h.rebuild()
	return h
}

// rebuild recreates the pipelines after h.cfg changed
func (h *harness) rebuild() {
	h.creator = NewCreator(h.cfg)
	h.purchaser = NewPurchaser(h.cfg)
	h.offers = NewOfferManager(h.cfg)
	h.catalog = NewCatalog(h.cfg)
}

func (h *harness) newParty(name string) *party {
	h.t.Helper()
	ctx := context.Background()
	user, err := h.registry.CreateUser(ctx, uuid.New().String(), name, name+"@example.com")
	require.NoError(h.t, err)

	encrypted, err := h.vault.Encrypt("wif-" + name)
	require.NoError(h.t, err)
	wallet, err := h.registry.CreateWallet(ctx, store.CreateWalletParams{
		UserId:       user.Id,
		Address:      "R" + name,
		EncryptedKey: encrypted,
	})
	require.NoError(h.t, err)
	return &party{user: user, wallet: wallet}
}

// createAsset runs the creation pipeline for owner and returns the Registry row
func (h *harness) createAsset(owner *party, name string, price string, listed bool) *models.Asset {
	h.t.Helper()
	ctx := context.Background()
	result, err := h.creator.CreateAsset(ctx, models.CreateAssetRequest{
		Name:          name,
		Description:   "test asset",
		Price:         decimal.RequireFromString(price),
		ReferenceHash: "QmTest",
		OwnerUserId:   owner.user.Id,
		List:          listed,
	})
	require.NoError(h.t, err)
	asset, err := h.registry.GetAsset(ctx, result.AssetId)
	require.NoError(h.t, err)
	return asset
}

func (h *harness) ownerOf(assetId string) string {
	h.t.Helper()
	asset, err := h.registry.GetAsset(context.Background(), assetId)
	require.NoError(h.t, err)
	return asset.OwnerWalletId
}
