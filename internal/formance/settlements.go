package formance

import (
	"context"
	"fmt"
	"math/big"

	"asset-market-go/internal/chain"
	"asset-market-go/internal/models"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// settlementAsset is the native coin in Formance UMN notation
var settlementAsset = fmt.Sprintf("RTM/%d", chain.Decimals)

// The buyer account may go negative: an accepted offer moves the asset
// without a ledger payment, so the obligation is recorded as a debt.
const numscriptSettlement = `vars {
  asset $asset
  number $amount
  account $buyer
  account $seller
  string $asset_id
  string $history_id
  string $settlement_type
  string $asset_txid
  string $payment_txid
  string $price
}

send [$asset $amount] (
  source = @users:$buyer allowing unbounded overdraft
  destination = @users:$seller
)

set_tx_meta("event_type", $settlement_type)
set_tx_meta("asset_id", $asset_id)
set_tx_meta("history_id", $history_id)
set_tx_meta("asset_txid", $asset_txid)
set_tx_meta("payment_txid", $payment_txid)
set_tx_meta("price", $price)
`

// RecordSettlement posts the price of a committed purchase or accepted offer.
// The history id is the transaction reference, so replays are no-ops. Mint
// rows carry no price obligation and are skipped.
func (s *Service) RecordSettlement(ctx context.Context, h *models.TransactionHistory) error {
	postTx, ok := settlementTransaction(h)
	if !ok {
		zap.L().Debug("No settlement to mirror",
			zap.String("history_id", h.Id),
			zap.String("type", string(h.TransactionType)))
		return nil
	}

	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            s.ledger,
		V2PostTransaction: postTx,
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Debug("Settlement already mirrored", zap.String("history_id", h.Id))
			return nil
		}
		return fmt.Errorf("error recording settlement %s: %w", h.Id, err)
	}

	zap.L().Info("Settlement mirrored in Formance",
		zap.String("history_id", h.Id),
		zap.String("asset_id", h.AssetId),
		zap.String("type", string(h.TransactionType)),
		zap.String("price", h.PriceAtTransaction.String()))
	return nil
}

// settlementTransaction builds the Formance transaction for h
func settlementTransaction(h *models.TransactionHistory) (shared.V2PostTransaction, bool) {
	if h.TransactionType == models.TransactionTypeMint || h.SellerUserId == "" {
		return shared.V2PostTransaction{}, false
	}

	postTx := shared.V2PostTransaction{
		Reference: v3.Pointer(h.Id),
		Script: &shared.V2PostTransactionScript{
			Plain: numscriptSettlement,
			Vars: map[string]string{
				"asset":           settlementAsset,
				"amount":          baseUnits(h.PriceAtTransaction),
				"buyer":           h.BuyerUserId,
				"seller":          h.SellerUserId,
				"asset_id":        h.AssetId,
				"history_id":      h.Id,
				"settlement_type": string(h.TransactionType),
				"asset_txid":      h.BlockchainAssetTxId,
				"payment_txid":    h.BlockchainPaymentTxId,
				"price":           h.PriceAtTransaction.String(),
			},
		},
	}
	if !h.CreatedAt.IsZero() {
		ts := h.CreatedAt
		postTx.Timestamp = &ts
	}
	return postTx, true
}

// UserBalance returns the net settlement position of a user. Buyers of
// accepted offers show a negative balance until paid outside the ledger.
func (s *Service) UserBalance(ctx context.Context, userId string) (decimal.Decimal, error) {
	resp, err := s.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  s.ledger,
		Address: "users:" + userId,
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("error reading settlement account for %s: %w", userId, err)
	}
	return bigIntToDecimal(volumeBalance(resp.V2AccountResponse.Data.Volumes, settlementAsset)), nil
}

func baseUnits(d decimal.Decimal) string {
	return d.Shift(chain.Decimals).Round(0).BigInt().String()
}

// volumeBalance extracts the balance for a specific asset from volumes.
func volumeBalance(vols map[string]shared.V2Volume, fAsset string) *big.Int {
	vol, ok := vols[fAsset]
	if !ok {
		return nil
	}
	if vol.Balance != nil {
		return vol.Balance
	}
	if vol.Input == nil {
		return nil
	}
	result := new(big.Int).Set(vol.Input)
	if vol.Output != nil {
		result.Sub(result, vol.Output)
	}
	return result
}

func bigIntToDecimal(raw *big.Int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -chain.Decimals)
}
