// Package errors defines the machine-readable failure kinds surfaced by the
// marketplace pipelines. Import it as apperrors.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is the machine-readable category of a failure
type Kind string

const (
	KindValidation          Kind = "validation"
	KindPrecondition        Kind = "precondition"
	KindNotFound            Kind = "not_found"
	KindKey                 Kind = "key"
	KindLedgerCommunication Kind = "ledger_communication"
	KindLedgerRejected      Kind = "ledger_rejected"
	KindConfirmationTimeout Kind = "confirmation_timeout"
	KindConflict            Kind = "conflict"
	KindInternal            Kind = "internal"
)

// Error is a categorized failure. For pipeline failures Step names the step
// that failed, TxIds lists transactions already confirmed on the ledger and
// PendingTxId is a submitted transaction whose outcome is unknown.
// MaybeSubmitted is set when a submitting call failed without returning a
// txid, so the ledger may still have accepted the transaction.
type Error struct {
	Kind           Kind
	Code           string
	Message        string
	Step           string
	TxIds          []string
	PendingTxId    string
	MaybeSubmitted bool
	Cause          error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Step != "" {
		fmt.Fprintf(&b, " (step %s)", e.Step)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by Kind and Code so callers can compare against
// the exported sentinels with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

// AtStep returns a copy of e annotated with pipeline progress
func (e *Error) AtStep(step string, confirmed []string, pending string) *Error {
	cp := *e
	cp.Step = step
	cp.TxIds = append([]string(nil), confirmed...)
	cp.PendingTxId = pending
	return &cp
}

// KindOf returns the Kind of err, or KindInternal when err is not categorized
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As extracts the categorized error from err
func As(err error) (*Error, bool) {
	var e *Error
	ok := stderrors.As(err, &e)
	return e, ok
}

// StatusCode maps a Kind onto the HTTP status an outer transport should use
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindPrecondition:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindKey:
		return http.StatusInternalServerError
	case KindLedgerCommunication, KindLedgerRejected:
		return http.StatusBadGateway
	case KindConfirmationTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryable reports whether the whole operation may be retried by the caller.
// Timeouts are not retryable: the pending transaction may still confirm.
// Neither is any failure after a submission whose outcome is unknown.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindLedgerCommunication, KindConflict:
		e, _ := As(err)
		return e == nil || (len(e.TxIds) == 0 && e.PendingTxId == "" && !e.MaybeSubmitted)
	default:
		return false
	}
}

func newError(kind Kind, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Cause: cause}
}

// Validation errors

func NewInvalidParameterError(param, reason string) *Error {
	return newError(KindValidation, "INVALID_PARAMETER", fmt.Sprintf("invalid parameter '%s': %s", param, reason), nil)
}

// Precondition errors

func NewAssetNameTakenError(name string) *Error {
	return newError(KindPrecondition, "ASSET_NAME_TAKEN", fmt.Sprintf("an asset named %q already exists", name), nil)
}

func NewAssetNotListedError(assetId string) *Error {
	return newError(KindPrecondition, "ASSET_NOT_LISTED", fmt.Sprintf("asset %s is not listed for sale", assetId), nil)
}

func NewSelfPurchaseError() *Error {
	return newError(KindPrecondition, "SELF_PURCHASE", "buyer and seller must be different", nil)
}

func NewSelfOfferError() *Error {
	return newError(KindPrecondition, "SELF_OFFER", "you cannot make an offer on your own asset", nil)
}

func NewDuplicatePendingOfferError(cause error) *Error {
	return newError(KindPrecondition, "DUPLICATE_PENDING_OFFER", "you already have a pending offer on this asset", cause)
}

func NewNotAssetOwnerError(assetId string) *Error {
	return newError(KindPrecondition, "NOT_ASSET_OWNER", fmt.Sprintf("user is not the current owner of asset %s", assetId), nil)
}

func NewNotOffererError(offerId string) *Error {
	return newError(KindPrecondition, "NOT_OFFERER", fmt.Sprintf("only the offerer can cancel offer %s", offerId), nil)
}

func NewOfferNotPendingError(offerId, status string) *Error {
	return newError(KindPrecondition, "OFFER_NOT_PENDING", fmt.Sprintf("offer %s is %s, not pending", offerId, status), nil)
}

func NewOfferExpiredError(offerId string) *Error {
	return newError(KindPrecondition, "OFFER_EXPIRED", fmt.Sprintf("offer %s has expired", offerId), nil)
}

func NewInsufficientFundsError(have, need int64) *Error {
	return newError(KindPrecondition, "INSUFFICIENT_FUNDS",
		fmt.Sprintf("insufficient funds: balance %d base units, required %d", have, need), nil)
}

func NewNoPrimaryWalletError(userId string) *Error {
	return newError(KindPrecondition, "NO_PRIMARY_WALLET", fmt.Sprintf("user %s has no primary wallet", userId), nil)
}

// Lookup errors

func NewNotFoundError(resource, id string) *Error {
	return newError(KindNotFound, "NOT_FOUND", fmt.Sprintf("%s not found: %s", resource, id), nil)
}

// Key errors

func NewKeyCorruptionError(walletAddress string, cause error) *Error {
	return newError(KindKey, "KEY_CORRUPTION", fmt.Sprintf("signing key for wallet %s cannot be decrypted", walletAddress), cause)
}

// Ledger errors

func NewLedgerUnavailableError(op string, cause error) *Error {
	return newError(KindLedgerCommunication, "LEDGER_UNAVAILABLE", fmt.Sprintf("ledger unavailable during %s", op), cause)
}

// NewSubmissionUnknownError reports a submitting call that failed in transit.
func NewSubmissionUnknownError(op string, cause error) *Error {
	e := newError(KindLedgerCommunication, "LEDGER_UNAVAILABLE",
		fmt.Sprintf("ledger unavailable during %s, the transaction may have been submitted", op), cause)
	e.MaybeSubmitted = true
	return e
}

func NewLedgerRejectedError(op string, cause error) *Error {
	return newError(KindLedgerRejected, "LEDGER_REJECTED", fmt.Sprintf("ledger rejected %s", op), cause)
}

func NewConfirmationTimeoutError(txId string, cause error) *Error {
	e := newError(KindConfirmationTimeout, "CONFIRMATION_TIMEOUT",
		fmt.Sprintf("transaction %s was not confirmed in time", txId), cause)
	e.PendingTxId = txId
	return e
}

// Conflict errors

func NewOwnershipConflictError(assetId string, cause error) *Error {
	return newError(KindConflict, "OWNERSHIP_CONFLICT",
		fmt.Sprintf("ownership of asset %s changed while the operation was in progress", assetId), cause)
}

func NewOfferConflictError(offerId string, cause error) *Error {
	return newError(KindConflict, "OFFER_CONFLICT", fmt.Sprintf("offer %s was resolved concurrently", offerId), cause)
}

func NewSellerNotHolderError(assetName, address string) *Error {
	return newError(KindConflict, "SELLER_NOT_HOLDER",
		fmt.Sprintf("ledger shows %s no longer holds asset %s", address, assetName), nil)
}

// Internal errors

func NewInternalError(message string, cause error) *Error {
	return newError(KindInternal, "INTERNAL_ERROR", message, cause)
}

func NewCommitFailedError(cause error) *Error {
	return newError(KindInternal, "COMMIT_FAILED", "ledger operation confirmed but the registry commit failed", cause)
}

// Sentinels for errors.Is comparisons by kind.
var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrPrecondition        = &Error{Kind: KindPrecondition}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrKey                 = &Error{Kind: KindKey}
	ErrLedgerCommunication = &Error{Kind: KindLedgerCommunication}
	ErrLedgerRejected      = &Error{Kind: KindLedgerRejected}
	ErrConfirmationTimeout = &Error{Kind: KindConfirmationTimeout}
	ErrConflict            = &Error{Kind: KindConflict}
)
