package journal

import (
	"errors"
	"testing"

	"asset-market-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T, dir string) *Journal {
	t.Helper()
	j, err := Open(models.JournalConfig{Dir: dir, SegmentThreshold: 100, MaxSegments: 5})
	require.NoError(t, err)
	return j
}

func TestJournal_StepStateIsPersisted(t *testing.T) {
	j := openTestJournal(t, t.TempDir())
	defer j.Close()

	run, err := j.Begin(models.PipelinePurchase, "asset-1")
	require.NoError(t, err)

	require.NoError(t, j.Advance(run, 1, "payment"))
	require.NoError(t, j.Submitted(run, "paytx"))
	require.NoError(t, j.Confirmed(run, "paytx"))
	require.NoError(t, j.Advance(run, 2, "asset_transfer"))
	require.NoError(t, j.Submitted(run, "sendtx"))

	stored, ok := j.Get(run.Id)
	require.True(t, ok)
	assert.Equal(t, 2, stored.Step)
	assert.Equal(t, []string{"paytx"}, stored.ConfirmedTxIds())
	assert.Equal(t, "sendtx", stored.PendingTxId())
}

func TestJournal_ReplaysUnfinishedRuns(t *testing.T) {
	dir := t.TempDir()
	j := openTestJournal(t, dir)

	done, err := j.Begin(models.PipelineCreateAsset, "SUNSET")
	require.NoError(t, err)
	require.NoError(t, j.Complete(done))

	failed, err := j.Begin(models.PipelineCreateAsset, "DAWN")
	require.NoError(t, err)
	require.NoError(t, j.Fail(failed, errors.New("mint rejected")))

	interrupted, err := j.Begin(models.PipelineAcceptOffer, "offer-1")
	require.NoError(t, err)
	require.NoError(t, j.Advance(interrupted, 1, "asset_transfer"))
	require.NoError(t, j.Submitted(interrupted, "tx9"))
	require.NoError(t, j.Close())

	reopened := openTestJournal(t, dir)
	defer reopened.Close()

	unfinished := reopened.Unfinished()
	require.Len(t, unfinished, 1)
	assert.Equal(t, interrupted.Id, unfinished[0].Id)
	assert.Equal(t, "asset_transfer", unfinished[0].StepName)
	assert.Equal(t, "tx9", unfinished[0].PendingTxId())

	f, ok := reopened.Get(failed.Id)
	require.True(t, ok)
	assert.Equal(t, models.PipelineFailed, f.Status)
	assert.Equal(t, "mint rejected", f.Error)
}

func TestJournal_GetReturnsCopy(t *testing.T) {
	j := openTestJournal(t, t.TempDir())
	defer j.Close()

	run, err := j.Begin(models.PipelinePurchase, "asset-1")
	require.NoError(t, err)
	require.NoError(t, j.Submitted(run, "a"))

	got, _ := j.Get(run.Id)
	got.TxRefs[0].TxId = "mutated"

	again, _ := j.Get(run.Id)
	assert.Equal(t, "a", again.TxRefs[0].TxId)
}

func TestJournal_InterruptedRunSurvivesSegmentRotation(t *testing.T) {
	dir := t.TempDir()
	j := openTestJournal(t, dir)

	crashed, err := j.Begin(models.PipelinePurchase, "asset-1")
	require.NoError(t, err)
	require.NoError(t, j.Advance(crashed, 1, "payment"))
	require.NoError(t, j.Submitted(crashed, "paytx"))

	for i := 0; i < 600; i++ {
		run, err := j.Begin(models.PipelinePurchase, "asset-2")
		require.NoError(t, err)
		require.NoError(t, j.Complete(run))
	}
	require.NoError(t, j.Close())

	reopened := openTestJournal(t, dir)
	defer reopened.Close()

	unfinished := reopened.Unfinished()
	require.Len(t, unfinished, 1)
	assert.Equal(t, crashed.Id, unfinished[0].Id)
	assert.Equal(t, "payment", unfinished[0].StepName)
	assert.Equal(t, "paytx", unfinished[0].PendingTxId())
}

func TestJournal_CompletedRunsAreEvicted(t *testing.T) {
	j := openTestJournal(t, t.TempDir())
	defer j.Close()

	run, err := j.Begin(models.PipelineCreateAsset, "SUNSET")
	require.NoError(t, err)
	require.NoError(t, j.Complete(run))

	_, ok := j.Get(run.Id)
	assert.False(t, ok)
	assert.Empty(t, j.runs)
}
