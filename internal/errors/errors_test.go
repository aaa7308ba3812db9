package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("buy failed: %w", NewSelfPurchaseError())
	assert.Equal(t, KindPrecondition, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(stderrors.New("plain")))
}

func TestErrorsIsMatchesKindSentinel(t *testing.T) {
	err := fmt.Errorf("accept: %w", NewOfferConflictError("o1", nil))
	assert.True(t, stderrors.Is(err, ErrConflict))
	assert.False(t, stderrors.Is(err, ErrPrecondition))
}

func TestAtStepCopiesProgress(t *testing.T) {
	base := NewLedgerRejectedError("transfer", nil)
	confirmed := []string{"pay1"}

	annotated := base.AtStep("asset_transfer", confirmed, "")
	confirmed[0] = "mutated"

	require.Equal(t, []string{"pay1"}, annotated.TxIds)
	assert.Equal(t, "asset_transfer", annotated.Step)
	assert.Empty(t, base.Step)
}

func TestConfirmationTimeoutCarriesPendingTx(t *testing.T) {
	err := NewConfirmationTimeoutError("abc", nil)
	assert.Equal(t, "abc", err.PendingTxId)
	assert.Equal(t, http.StatusGatewayTimeout, StatusCode(err))
	assert.False(t, IsRetryable(err))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewLedgerUnavailableError("payment", nil)))

	partial := NewLedgerUnavailableError("transfer", nil).AtStep("asset_transfer", []string{"pay1"}, "")
	assert.False(t, IsRetryable(partial))

	assert.False(t, IsRetryable(NewInvalidParameterError("price", "must be positive")))

	unknown := NewSubmissionUnknownError("sendpayment", nil).AtStep("payment", nil, "")
	assert.True(t, unknown.MaybeSubmitted)
	assert.Equal(t, "LEDGER_UNAVAILABLE", unknown.Code)
	assert.False(t, IsRetryable(unknown))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusCode(NewInvalidParameterError("x", "y")))
	assert.Equal(t, http.StatusNotFound, StatusCode(NewNotFoundError("asset", "a1")))
	assert.Equal(t, http.StatusConflict, StatusCode(NewOwnershipConflictError("a1", nil)))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(stderrors.New("boom")))
}
