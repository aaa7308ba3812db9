// Package reconcile compares Registry ownership against ledger holdings and
// reports pipeline runs that never reached a final state.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"asset-market-go/internal/models"
	"asset-market-go/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Holdings answers which addresses hold an asset. Implemented by chain.Client.
type Holdings interface {
	ListAddressesHoldingAsset(ctx context.Context, name string) (map[string]int64, error)
}

// RunSource lists journaled pipeline runs that are neither completed nor failed
type RunSource interface {
	Unfinished() []models.PipelineRun
}

type Reconciler struct {
	registry    store.Registry
	ledger      Holdings
	runs        RunSource
	concurrency int
}

func New(registry store.Registry, ledger Holdings, runs RunSource, concurrency int) *Reconciler {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Reconciler{registry: registry, ledger: ledger, runs: runs, concurrency: concurrency}
}

// Run checks every registered asset. Ledger failures for a single asset are
// reported as drift entries; Registry failures abort the run.
func (r *Reconciler) Run(ctx context.Context) (*models.ReconcileReport, error) {
	assets, err := r.registry.ListAllAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	var (
		mu    sync.Mutex
		drift []models.OwnershipDrift
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, asset := range assets {
		g.Go(func() error {
			d, err := r.check(gctx, asset)
			if err != nil {
				return err
			}
			if d != nil {
				mu.Lock()
				drift = append(drift, *d)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(drift, func(i, j int) bool { return drift[i].AssetName < drift[j].AssetName })

	report := &models.ReconcileReport{Checked: len(assets), Drift: drift}
	if r.runs != nil {
		report.UnfinishedRun = r.runs.Unfinished()
	}

	zap.L().Info("Reconciliation finished",
		zap.Int("checked", report.Checked),
		zap.Int("drift", len(report.Drift)),
		zap.Int("unfinished_runs", len(report.UnfinishedRun)))
	return report, nil
}

func (r *Reconciler) check(ctx context.Context, asset models.Asset) (*models.OwnershipDrift, error) {
	owner, err := r.registry.GetWallet(ctx, asset.OwnerWalletId)
	if err != nil {
		return nil, fmt.Errorf("failed to load owner wallet of asset %s: %w", asset.Id, err)
	}

	holders, err := r.ledger.ListAddressesHoldingAsset(ctx, asset.Name)
	if err != nil {
		zap.L().Warn("Unable to read ledger holders",
			zap.String("asset_id", asset.Id),
			zap.String("asset_name", asset.Name),
			zap.Error(err))
		return &models.OwnershipDrift{
			AssetId:       asset.Id,
			AssetName:     asset.Name,
			RegistryOwner: owner.Address,
			Error:         err.Error(),
		}, nil
	}

	if len(holders) == 1 && holders[owner.Address] >= 1 {
		return nil, nil
	}

	addresses := make([]string, 0, len(holders))
	for addr := range holders {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	zap.L().Warn("Ownership drift detected",
		zap.String("asset_id", asset.Id),
		zap.String("asset_name", asset.Name),
		zap.String("registry_owner", owner.Address),
		zap.Strings("ledger_holders", addresses))
	return &models.OwnershipDrift{
		AssetId:       asset.Id,
		AssetName:     asset.Name,
		RegistryOwner: owner.Address,
		LedgerHolders: addresses,
	}, nil
}
