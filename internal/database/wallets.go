package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"asset-market-go/internal/models"
	"asset-market-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (*models.Wallet, error) {
	var w models.Wallet
	if err := row.Scan(&w.Id, &w.UserId, &w.Address, &w.EncryptedKey, &w.IsPrimary, &w.CreatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

// CreateWallet registers a wallet. A user's first wallet is always primary;
// MakePrimary moves the designation from the current primary.
func (s *Service) CreateWallet(ctx context.Context, params store.CreateWalletParams) (*models.Wallet, error) {
	zap.L().Info("Creating wallet",
		zap.String("user_id", params.UserId),
		zap.String("address", params.Address),
		zap.Bool("make_primary", params.MakePrimary))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer rollback(tx)

	var count int
	if err := tx.QueryRowContext(ctx, queryCountUserWallets, params.UserId).Scan(&count); err != nil {
		return nil, fmt.Errorf("unable to count wallets: %w", err)
	}

	primary := count == 0 || params.MakePrimary
	if primary && count > 0 {
		if _, err := tx.ExecContext(ctx, queryClearPrimaryWallet, params.UserId); err != nil {
			return nil, fmt.Errorf("unable to clear primary wallet: %w", err)
		}
	}

	wallet := &models.Wallet{
		Id:           uuid.New().String(),
		UserId:       params.UserId,
		Address:      params.Address,
		EncryptedKey: params.EncryptedKey,
		IsPrimary:    primary,
		CreatedAt:    s.now().UTC(),
	}
	_, err = tx.ExecContext(ctx, queryInsertWallet,
		wallet.Id, wallet.UserId, wallet.Address, wallet.EncryptedKey, wallet.IsPrimary, dbTime(wallet.CreatedAt))
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return nil, fmt.Errorf("address %s: %w", params.Address, store.ErrDuplicateWalletAddress)
		case isForeignKeyViolation(err):
			return nil, fmt.Errorf("user %s: %w", params.UserId, store.ErrNotFound)
		}
		zap.L().Error("Failed to insert wallet", zap.String("user_id", params.UserId), zap.Error(err))
		return nil, fmt.Errorf("unable to insert wallet: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("unable to commit wallet: %w", err)
	}

	zap.L().Info("Wallet created",
		zap.String("wallet_id", wallet.Id),
		zap.String("user_id", wallet.UserId),
		zap.Bool("primary", wallet.IsPrimary))
	return wallet, nil
}

func (s *Service) GetWallet(ctx context.Context, walletId string) (*models.Wallet, error) {
	return s.getWallet(ctx, queryGetWalletById, walletId, "wallet")
}

// GetPrimaryWallet returns store.ErrNotFound when the user has no wallet
func (s *Service) GetPrimaryWallet(ctx context.Context, userId string) (*models.Wallet, error) {
	return s.getWallet(ctx, queryGetPrimaryWallet, userId, "primary wallet for user")
}

func (s *Service) FindWalletByAddress(ctx context.Context, address string) (*models.Wallet, error) {
	return s.getWallet(ctx, queryFindWalletByAddress, address, "wallet with address")
}

func (s *Service) getWallet(ctx context.Context, query, key, what string) (*models.Wallet, error) {
	wallet, err := scanWallet(s.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %s: %w", what, key, store.ErrNotFound)
		}
		zap.L().Error("Failed to query wallet", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("unable to query wallet: %w", err)
	}
	return wallet, nil
}

func (s *Service) GetUserWallets(ctx context.Context, userId string) ([]models.Wallet, error) {
	rows, err := s.db.QueryContext(ctx, queryGetUserWallets, userId)
	if err != nil {
		return nil, fmt.Errorf("unable to query wallets: %w", err)
	}
	defer closeRows(rows)

	var wallets []models.Wallet
	for rows.Next() {
		wallet, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan wallet row: %w", err)
		}
		wallets = append(wallets, *wallet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallet rows: %w", err)
	}
	return wallets, nil
}

func (s *Service) SetPrimaryWallet(ctx context.Context, userId, walletId string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(ctx, queryClearPrimaryWallet, userId); err != nil {
		return fmt.Errorf("unable to clear primary wallet: %w", err)
	}
	result, err := tx.ExecContext(ctx, querySetPrimaryWallet, walletId, userId)
	if err != nil {
		return fmt.Errorf("unable to set primary wallet: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("wallet %s of user %s: %w", walletId, userId, store.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("unable to commit primary wallet: %w", err)
	}
	zap.L().Info("Primary wallet changed", zap.String("user_id", userId), zap.String("wallet_id", walletId))
	return nil
}
