// Package journal persists the step state of every pipeline invocation to a
// write-ahead log so an interrupted run can be reported with the furthest
// step it reached and the txids it produced.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"asset-market-go/internal/models"

	"github.com/google/uuid"
	"github.com/vadiminshakov/gowal"
	"go.uber.org/zap"
)

const (
	runKeyPrefix      = "pipeline_run_"
	dirPermissions    = 0o755
	defaultThreshold  = 1000
	defaultMaxSegment = 10
	minMaxSegments    = 3
)

// Journal keeps running and failed runs in memory. Completed runs are
// dropped once persisted. Running runs are rewritten once per segment so the
// oldest segment can be removed without losing an interrupted run.
type Journal struct {
	mu        sync.Mutex
	wal       *gowal.Wal
	runs      map[string]*models.PipelineRun
	now       func() time.Time
	threshold int
	written   int
}

// Open creates or replays the journal in cfg.Dir
func Open(cfg models.JournalConfig) (*Journal, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("journal directory cannot be empty")
	}
	if err := os.MkdirAll(cfg.Dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("failed to ensure journal directory %s: %w", cfg.Dir, err)
	}

	threshold := cfg.SegmentThreshold
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	maxSegments := cfg.MaxSegments
	if maxSegments <= 0 {
		maxSegments = defaultMaxSegment
	}
	if maxSegments < minMaxSegments {
		maxSegments = minMaxSegments
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              cfg.Dir,
		Prefix:           "run_",
		SegmentThreshold: threshold,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, fmt.Errorf("error init journal wal: %w", err)
	}

	j := &Journal{wal: wal, runs: make(map[string]*models.PipelineRun), now: time.Now, threshold: threshold}
	for msg := range wal.Iterator() {
		if !strings.HasPrefix(msg.Key, runKeyPrefix) {
			continue
		}
		var run models.PipelineRun
		if err := json.Unmarshal(msg.Value, &run); err != nil {
			zap.L().Error("Failed to unmarshal pipeline run", zap.String("key", msg.Key), zap.Error(err))
			continue
		}
		if run.Status == models.PipelineCompleted {
			delete(j.runs, run.Id)
			continue
		}
		j.runs[run.Id] = &run
	}

	unfinished := j.Unfinished()
	if len(unfinished) > 0 {
		zap.L().Warn("Journal contains unfinished pipeline runs", zap.Int("count", len(unfinished)))
	}

	j.mu.Lock()
	err = j.carryForwardLocked()
	j.mu.Unlock()
	if err != nil {
		_ = wal.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) Close() error {
	return j.wal.Close()
}

// Begin starts and persists a new run
func (j *Journal) Begin(kind models.PipelineKind, subject string) (*models.PipelineRun, error) {
	now := j.now().UTC()
	run := &models.PipelineRun{
		Id:        uuid.New().String(),
		Kind:      kind,
		Subject:   subject,
		Status:    models.PipelineRunning,
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := j.persist(run); err != nil {
		return nil, err
	}
	return run, nil
}

// Advance records that run has reached step
func (j *Journal) Advance(run *models.PipelineRun, step int, stepName string) error {
	run.Step = step
	run.StepName = stepName
	return j.persist(run)
}

// Submitted records a txid returned by the ledger for the current step
func (j *Journal) Submitted(run *models.PipelineRun, txId string) error {
	run.TxRefs = append(run.TxRefs, models.TxRef{Step: run.StepName, TxId: txId})
	return j.persist(run)
}

// Confirmed marks txId as confirmed
func (j *Journal) Confirmed(run *models.PipelineRun, txId string) error {
	for i := range run.TxRefs {
		if run.TxRefs[i].TxId == txId {
			run.TxRefs[i].Confirmed = true
		}
	}
	return j.persist(run)
}

func (j *Journal) Complete(run *models.PipelineRun) error {
	run.Status = models.PipelineCompleted
	run.Error = ""
	return j.persist(run)
}

func (j *Journal) Fail(run *models.PipelineRun, cause error) error {
	run.Status = models.PipelineFailed
	if cause != nil {
		run.Error = cause.Error()
	}
	return j.persist(run)
}

// Get returns a copy of the latest persisted state of a running or failed run
func (j *Journal) Get(id string) (models.PipelineRun, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	run, ok := j.runs[id]
	if !ok {
		return models.PipelineRun{}, false
	}
	return cloneRun(run), true
}

// Unfinished lists runs still marked running, oldest first
func (j *Journal) Unfinished() []models.PipelineRun {
	j.mu.Lock()
	defer j.mu.Unlock()
	var runs []models.PipelineRun
	for _, run := range j.runs {
		if run.Status == models.PipelineRunning {
			runs = append(runs, cloneRun(run))
		}
	}
	sort.Slice(runs, func(a, b int) bool { return runs[a].StartedAt.Before(runs[b].StartedAt) })
	return runs
}

func (j *Journal) persist(run *models.PipelineRun) error {
	run.UpdatedAt = j.now().UTC()
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal pipeline run: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writeLocked(run.Id, data); err != nil {
		return err
	}
	if run.Status == models.PipelineCompleted {
		delete(j.runs, run.Id)
	} else {
		stored := cloneRun(run)
		j.runs[run.Id] = &stored
	}

	if j.written >= j.threshold {
		if err := j.carryForwardLocked(); err != nil {
			zap.L().Error("Failed to carry running pipeline runs forward", zap.Error(err))
		}
	}
	return nil
}

func (j *Journal) writeLocked(id string, data []byte) error {
	if err := j.wal.Write(j.wal.CurrentIndex()+1, runKeyPrefix+id, data); err != nil {
		return fmt.Errorf("failed to write pipeline run %s: %w", id, err)
	}
	j.written++
	return nil
}

// carryForwardLocked rewrites the latest state of every running run so it
// lives in a recent segment.
func (j *Journal) carryForwardLocked() error {
	for id, run := range j.runs {
		if run.Status != models.PipelineRunning {
			continue
		}
		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("failed to marshal pipeline run: %w", err)
		}
		if err := j.writeLocked(id, data); err != nil {
			return err
		}
	}
	j.written = 0
	return nil
}

func cloneRun(run *models.PipelineRun) models.PipelineRun {
	cp := *run
	cp.TxRefs = append([]models.TxRef(nil), run.TxRefs...)
	return cp
}
