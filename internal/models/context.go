package models

import (
	"context"
	"time"
)

type pipelineContextKey struct{}

type PipelineKind string

const (
	PipelineCreateAsset PipelineKind = "create_asset"
	PipelinePurchase    PipelineKind = "purchase"
	PipelineAcceptOffer PipelineKind = "accept_offer"
)

type PipelineStatus string

const (
	PipelineRunning   PipelineStatus = "running"
	PipelineCompleted PipelineStatus = "completed"
	PipelineFailed    PipelineStatus = "failed"
)

// TxRef is a ledger transaction produced by a named pipeline step
type TxRef struct {
	Step      string `json:"step"`
	TxId      string `json:"txid"`
	Confirmed bool   `json:"confirmed"`
}

// PipelineRun is the step-indexed state of a single pipeline invocation.
// It is journaled at every step boundary.
type PipelineRun struct {
	Id        string         `json:"id"`
	Kind      PipelineKind   `json:"kind"`
	Subject   string         `json:"subject"`
	Step      int            `json:"step"`
	StepName  string         `json:"step_name"`
	TxRefs    []TxRef        `json:"txrefs,omitempty"`
	Status    PipelineStatus `json:"status"`
	Error     string         `json:"error,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ConfirmedTxIds returns txids of steps whose confirmation was observed
func (r *PipelineRun) ConfirmedTxIds() []string {
	var ids []string
	for _, ref := range r.TxRefs {
		if ref.Confirmed {
			ids = append(ids, ref.TxId)
		}
	}
	return ids
}

// PendingTxId returns the last submitted but unconfirmed txid, if any
func (r *PipelineRun) PendingTxId() string {
	for i := len(r.TxRefs) - 1; i >= 0; i-- {
		if !r.TxRefs[i].Confirmed {
			return r.TxRefs[i].TxId
		}
	}
	return ""
}

// PipelineContext carries log correlation data for a pipeline invocation
type PipelineContext struct {
	RunId string
	Kind  PipelineKind
}

// WithPipelineContext attaches pipeline correlation data to a context.
func WithPipelineContext(ctx context.Context, pc *PipelineContext) context.Context {
	return context.WithValue(ctx, pipelineContextKey{}, pc)
}

// GetPipelineContext retrieves pipeline correlation data from context, or nil if absent.
func GetPipelineContext(ctx context.Context) *PipelineContext {
	pc, _ := ctx.Value(pipelineContextKey{}).(*PipelineContext)
	return pc
}
