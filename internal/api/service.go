/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"context"
	"errors"
	"fmt"

	"asset-market-go/internal/chain"
	apperrors "asset-market-go/internal/errors"
	"asset-market-go/internal/market"
	"asset-market-go/internal/store"

	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// MarketService is the synchronous surface over the marketplace pipelines
// and Registry reads. Every error it returns is an *apperrors.Error.
type MarketService struct {
	registry  store.Registry
	chain     chain.Client
	creator   *market.Creator
	purchaser *market.Purchaser
	offers    *market.OfferManager
	catalog   *market.Catalog
}

func NewMarketService(cfg market.Config) *MarketService {
	return &MarketService{
		registry:  cfg.Registry,
		chain:     cfg.Chain,
		creator:   market.NewCreator(cfg),
		purchaser: market.NewPurchaser(cfg),
		offers:    market.NewOfferManager(cfg),
		catalog:   market.NewCatalog(cfg),
	}
}

// Offers exposes the offer manager for background jobs such as the sweeper
func (s *MarketService) Offers() *market.OfferManager {
	return s.offers
}

func (s *MarketService) HealthCheck(ctx context.Context) error {
	_, err := s.registry.GetUsers(ctx)
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// readError maps a Registry read failure. Internal causes are logged and
// replaced by a stable message.
func readError(err error, what, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NewNotFoundError(what, id)
	}
	zap.L().Error("Registry read failed", zap.String("resource", what), zap.String("id", id), zap.Error(err))
	return apperrors.NewInternalError(fmt.Sprintf("failed to retrieve %s", what), err)
}

func required(param, value string) error {
	if value == "" {
		return apperrors.NewInvalidParameterError(param, "is required")
	}
	return nil
}
