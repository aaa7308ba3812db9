package store

import (
	"errors"
	"fmt"
	"testing"
)

// Compile-time checks that the interface is importable and usable.
func TestRegistryInterfaceExists(t *testing.T) {
	_ = CreateWalletParams{}
	_ = CommitPurchaseParams{}
	_ = CommitOfferAcceptanceParams{}

	var _ Registry
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	for _, sentinel := range []error{ErrNotFound, ErrConflict, ErrDuplicatePendingOffer, ErrDuplicateAssetName, ErrOfferNotPending} {
		wrapped := fmt.Errorf("commit: %w", sentinel)
		if !errors.Is(wrapped, sentinel) {
			t.Errorf("Expected wrapped error to match %v", sentinel)
		}
	}
}
