package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"asset-market-go/internal/common"
	"asset-market-go/internal/config"
	"asset-market-go/internal/models"
	"asset-market-go/internal/reconcile"

	"go.uber.org/zap"
)

func printReport(report *models.ReconcileReport) {
	common.PrintHeader("REGISTRY / LEDGER RECONCILIATION", common.WideWidth)
	for i, d := range report.Drift {
		prefix := common.BoxPrefix(i == len(report.Drift)-1)
		if d.Error != "" {
			fmt.Printf("%s%-24s unreadable on ledger: %s\n", prefix, d.AssetName, d.Error)
			continue
		}
		holders := "nobody"
		if len(d.LedgerHolders) > 0 {
			holders = strings.Join(d.LedgerHolders, ", ")
		}
		fmt.Printf("%s%-24s registry owner %s, ledger holders %s\n", prefix, d.AssetName, d.RegistryOwner, holders)
	}

	if len(report.UnfinishedRun) > 0 {
		fmt.Printf("\nUnfinished pipeline runs:\n")
		for i, run := range report.UnfinishedRun {
			fmt.Printf("%s%s %s subject %s reached step %d (%s)\n",
				common.BoxPrefix(i == len(report.UnfinishedRun)-1),
				run.Id, run.Kind, run.Subject, run.Step, run.StepName)
			for _, ref := range run.TxRefs {
				fmt.Printf("     %-24s %s confirmed=%t\n", ref.Step, ref.TxId, ref.Confirmed)
			}
		}
	}

	common.PrintFooter(fmt.Sprintf("SUMMARY: %d assets checked, %d drifted, %d unfinished runs",
		report.Checked, len(report.Drift), len(report.UnfinishedRun)), common.WideWidth)
}

func main() {
	ctx := context.Background()

	jsonFlag := flag.Bool("json", false, "Print the report as JSON")
	concurrencyFlag := flag.Int("concurrency", 0, "Parallel ledger lookups (default RECONCILE_CONCURRENCY)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	concurrency := cfg.Market.ReconcileConcurrency
	if *concurrencyFlag > 0 {
		concurrency = *concurrencyFlag
	}

	report, err := reconcile.New(services.DbService, services.Chain, services.Journal, concurrency).Run(ctx)
	if err != nil {
		zap.L().Fatal("Reconciliation failed", zap.Error(err))
	}

	if *jsonFlag {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			zap.L().Fatal("Failed to encode report", zap.Error(err))
		}
		fmt.Println(string(out))
	} else {
		printReport(report)
	}

	if len(report.Drift) > 0 || len(report.UnfinishedRun) > 0 {
		os.Exit(1)
	}
}
