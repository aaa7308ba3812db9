// Package sweeper periodically expires pending offers past their expiry.
package sweeper

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultInterval = time.Minute

// Expirer marks overdue pending offers expired. Implemented by market.OfferManager.
type Expirer interface {
	ExpireOffers(ctx context.Context) (int64, error)
}

type Sweeper struct {
	expirer  Expirer
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

func New(expirer Expirer, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Sweeper{
		expirer:  expirer,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start runs one sweep immediately and then one per interval until Stop is
// called or ctx ends.
func (s *Sweeper) Start(ctx context.Context) {
	zap.L().Info("Starting offer sweeper", zap.Duration("interval", s.interval))
	go s.loop(ctx)
}

// Stop gracefully stops the sweeper and waits for an in-flight sweep
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		zap.L().Info("Stopping offer sweeper")
		close(s.stopChan)
	})
	<-s.doneChan
	zap.L().Info("Offer sweeper stopped")
}

// Done is closed once the loop has exited
func (s *Sweeper) Done() <-chan struct{} {
	return s.doneChan
}

func (s *Sweeper) loop(ctx context.Context) {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Sweep runs a single expiry pass
func (s *Sweeper) Sweep(ctx context.Context) int64 {
	n, err := s.expirer.ExpireOffers(ctx)
	if err != nil {
		zap.L().Error("Offer sweep failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		zap.L().Info("Expired pending offers", zap.Int64("count", n))
	}
	return n
}
