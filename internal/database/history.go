package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"asset-market-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// insertHistory appends h inside tx, assigning its id and timestamp
func (s *Service) insertHistory(ctx context.Context, tx *sql.Tx, h *models.TransactionHistory, now time.Time) error {
	h.Id = uuid.New().String()
	h.CreatedAt = now
	_, err := tx.ExecContext(ctx, queryInsertHistory,
		h.Id, h.AssetId, h.SellerUserId, h.BuyerUserId, string(h.TransactionType),
		h.PriceAtTransaction.StringFixed(8), h.BlockchainAssetTxId, h.BlockchainPaymentTxId, h.Notes, dbTime(now))
	if err != nil {
		zap.L().Error("Failed to insert transaction history",
			zap.String("asset_id", h.AssetId),
			zap.String("type", string(h.TransactionType)),
			zap.Error(err))
		return fmt.Errorf("unable to insert transaction history: %w", err)
	}
	return nil
}

func (s *Service) GetAssetHistory(ctx context.Context, assetId string) ([]models.TransactionHistory, error) {
	return s.queryHistory(ctx, queryGetAssetHistory, assetId)
}

func (s *Service) GetUserHistory(ctx context.Context, userId string, limit, offset int) ([]models.TransactionHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.queryHistory(ctx, queryGetUserHistory, userId, userId, limit, offset)
}

func (s *Service) queryHistory(ctx context.Context, query string, args ...any) ([]models.TransactionHistory, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		zap.L().Error("Failed to query transaction history", zap.Error(err))
		return nil, fmt.Errorf("unable to query transaction history: %w", err)
	}
	defer closeRows(rows)

	var history []models.TransactionHistory
	for rows.Next() {
		var h models.TransactionHistory
		var txType string
		err := rows.Scan(&h.Id, &h.AssetId, &h.SellerUserId, &h.BuyerUserId, &txType, &h.PriceAtTransaction,
			&h.BlockchainAssetTxId, &h.BlockchainPaymentTxId, &h.Notes, &h.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("unable to scan history row: %w", err)
		}
		h.TransactionType = models.TransactionType(txType)
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}
	return history, nil
}
