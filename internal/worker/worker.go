package worker

import (
	"context"
	"time"

	"basketbay/internal/broker"
	"basketbay/internal/models"
	"basketbay/internal/service"
	"basketbay/internal/util"

	"go.uber.org/zap"
)

// CatalogWorker applies stock adjustments from the catalog topic to every
// live session's snapshot.
type CatalogWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	sessions     *service.SessionService
	logger       *zap.Logger
}

// NewCatalogWorker creates a new catalog worker
func NewCatalogWorker(consumer *broker.Consumer, sessions *service.SessionService) *CatalogWorker {
	w := &CatalogWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		sessions:     sessions,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnStockAdjusted(w.ApplyStockAdjustment)
	return w
}

// Start consumes until ctx is cancelled
func (w *CatalogWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting catalog worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop closes the consumer
func (w *CatalogWorker) Stop() error {
	w.logger.Info("Stopping catalog worker")
	return w.consumer.Close()
}

// ApplyStockAdjustment updates the product in every session that has seen it.
func (w *CatalogWorker) ApplyStockAdjustment(_ context.Context, event *models.StockAdjustedEvent) error {
	stock := event.Count
	if event.Deleted {
		stock = -1
	}
	at := event.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	applied := 0
	w.sessions.Range(func(s *service.Session) {
		if s.Ledger.ApplyStock(event.ProductID, stock, at) {
			applied++
		}
	})

	util.StockEventsAppliedTotal.Inc()
	w.logger.Debug("Stock adjustment applied",
		zap.String("product_id", string(event.ProductID)),
		zap.Int("count", event.Count),
		zap.Bool("deleted", event.Deleted),
		zap.Int("sessions", applied))
	return nil
}

// SessionSweeper evicts idle sessions on a ticker
type SessionSweeper struct {
	sessions *service.SessionService
	idle     time.Duration
	interval time.Duration
	logger   *zap.Logger
}

// NewSessionSweeper creates a sweeper that checks every interval for
// sessions idle longer than idle.
func NewSessionSweeper(sessions *service.SessionService, idle, interval time.Duration) *SessionSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SessionSweeper{
		sessions: sessions,
		idle:     idle,
		interval: interval,
		logger:   util.GetLogger(),
	}
}

// Start sweeps until ctx is cancelled
func (s *SessionSweeper) Start(ctx context.Context) error {
	s.logger.Info("Starting session sweeper",
		zap.Duration("idle", s.idle),
		zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sessions.Sweep(ctx, s.idle)
		}
	}
}
