package market

import (
	"context"

	apperrors "asset-market-go/internal/errors"
	"asset-market-go/internal/models"

	"go.uber.org/zap"
)

// pipeline is the step-indexed state of one invocation. Every boundary is
// journaled before the next ledger call is made.
type pipeline struct {
	b   *base
	run *models.PipelineRun
}

func (b *base) begin(ctx context.Context, kind models.PipelineKind, subject string) (context.Context, *pipeline, error) {
	run, err := b.journal.Begin(kind, subject)
	if err != nil {
		zap.L().Error("Failed to journal pipeline start", zap.String("pipeline", string(kind)), zap.Error(err))
		return ctx, nil, apperrors.NewInternalError("unable to start pipeline journal", err)
	}
	ctx = models.WithPipelineContext(ctx, &models.PipelineContext{RunId: run.Id, Kind: kind})
	p := &pipeline{b: b, run: run}
	p.log(ctx).Info("Pipeline started", zap.String("subject", subject))
	return ctx, p, nil
}

func (p *pipeline) log(ctx context.Context) *zap.Logger {
	fields := []zap.Field{zap.Int("step", p.run.Step), zap.String("step_name", p.run.StepName)}
	if pc := models.GetPipelineContext(ctx); pc != nil {
		fields = append(fields, zap.String("pipeline_id", pc.RunId), zap.String("pipeline", string(pc.Kind)))
	}
	return zap.L().With(fields...)
}

// enter moves to step. A journal failure aborts before any further ledger call.
func (p *pipeline) enter(ctx context.Context, step int, name string) error {
	if err := p.b.journal.Advance(p.run, step, name); err != nil {
		return p.fail(ctx, apperrors.NewInternalError("unable to journal pipeline step", err))
	}
	p.log(ctx).Debug("Pipeline step started")
	return nil
}

// submitted records a txid the ledger accepted. The run keeps the txid in
// memory even when the journal write fails.
func (p *pipeline) submitted(ctx context.Context, txId string) {
	if err := p.b.journal.Submitted(p.run, txId); err != nil {
		p.log(ctx).Error("Failed to journal submitted transaction", zap.String("txid", txId), zap.Error(err))
	}
	p.log(ctx).Info("Ledger transaction submitted", zap.String("txid", txId))
}

// confirm waits for txId up to the confirmation timeout
func (p *pipeline) confirm(ctx context.Context, txId string) error {
	waitCtx, cancel := context.WithTimeout(ctx, p.b.confirmationTimeout)
	defer cancel()

	if err := p.b.chain.WaitTransaction(waitCtx, txId, p.b.confirmations); err != nil {
		return p.fail(ctx, confirmationError(txId, err))
	}
	if err := p.b.journal.Confirmed(p.run, txId); err != nil {
		p.log(ctx).Error("Failed to journal confirmation", zap.String("txid", txId), zap.Error(err))
	}
	p.log(ctx).Info("Ledger transaction confirmed", zap.String("txid", txId))
	return nil
}

// fail annotates e with the furthest progress and closes the run
func (p *pipeline) fail(ctx context.Context, e *apperrors.Error) error {
	annotated := e.AtStep(p.run.StepName, p.run.ConfirmedTxIds(), p.run.PendingTxId())
	if err := p.b.journal.Fail(p.run, annotated); err != nil {
		p.log(ctx).Error("Failed to journal pipeline failure", zap.Error(err))
	}
	p.log(ctx).Error("Pipeline failed",
		zap.String("code", annotated.Code),
		zap.Strings("confirmed_txids", annotated.TxIds),
		zap.String("pending_txid", annotated.PendingTxId),
		zap.Error(annotated.Cause))
	return annotated
}

func (p *pipeline) complete(ctx context.Context) {
	if err := p.b.journal.Complete(p.run); err != nil {
		p.log(ctx).Error("Failed to journal pipeline completion", zap.Error(err))
	}
	p.log(ctx).Info("Pipeline completed", zap.Strings("txids", p.run.ConfirmedTxIds()))
}
