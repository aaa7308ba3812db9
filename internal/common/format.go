package common

import (
	"fmt"
	"strings"

	apperrors "asset-market-go/internal/errors"
)

const (
	// Default separator widths
	DefaultWidth = 80
	WideWidth    = 100
)

// PrintSeparator prints a separator line with the specified character and width
func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintHeader prints a formatted header with title and separators
func PrintHeader(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(title)
	PrintSeparator("=", width)
}

// PrintFooter prints a formatted footer with message and separators
func PrintFooter(message string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// PrintBoxSeparator prints a box-drawing separator line (for sub-sections)
func PrintBoxSeparator(width int) {
	fmt.Println("├" + strings.Repeat("─", width))
}

// BoxPrefix returns the appropriate box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// ShortId trims long identifiers for table output
func ShortId(id string) string {
	if id == "" {
		return "none"
	}
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

// PrintFailure renders a pipeline failure with the progress it reached.
// Confirmed txids are printed so an operator can reconcile by hand.
func PrintFailure(err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		fmt.Printf("✗ %v\n", err)
		return
	}
	fmt.Printf("✗ %s: %s\n", appErr.Code, appErr.Message)
	if appErr.Step != "" {
		fmt.Printf("  failed at step: %s\n", appErr.Step)
	}
	for _, txId := range appErr.TxIds {
		fmt.Printf("  confirmed tx:    %s\n", txId)
	}
	if appErr.PendingTxId != "" {
		fmt.Printf("  pending tx:      %s (outcome unknown, check before retrying)\n", appErr.PendingTxId)
	}
	if appErr.MaybeSubmitted {
		fmt.Println("  a transaction may have been submitted, check the ledger before retrying")
	}
	if apperrors.IsRetryable(err) {
		fmt.Println("  the operation can be retried")
	}
}
