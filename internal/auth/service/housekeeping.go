package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/mcpauth/internal/auth/store"
	"github.com/aussiebroadwan/mcpauth/pkg/telemetry"
)

// HousekeepingService periodically purges used or expired authorization codes
// and expired access tokens so the store does not grow without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Metrics  *telemetry.Metrics
	Now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs a purge immediately and then every Interval in the background.
// Call Stop to shut the worker down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress purge has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Purge(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Purge(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Purge deletes dead records once and returns how many rows went. A failure
// in one table does not stop the other.
func (s *HousekeepingService) Purge(ctx context.Context) int64 {
	now := currentTime(s.Now)
	var total int64

	codes, err := s.Store.AuthorizationCodes().DeleteDeadAuthorizationCodes(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete dead authorization codes", "error", err)
	} else {
		s.Metrics.Purged(ctx, "authorization_code", codes)
		total += codes
	}

	tokens, err := s.Store.AccessTokens().DeleteExpiredAccessTokens(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired access tokens", "error", err)
	} else {
		s.Metrics.Purged(ctx, "access_token", tokens)
		total += tokens
	}

	s.Logger.Info("housekeeping cleanup completed",
		"authorization_codes", codes,
		"access_tokens", tokens,
	)
	return total
}
