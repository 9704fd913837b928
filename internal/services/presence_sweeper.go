package services

import (
	"context"
	"sync"
	"time"

	"hivley/internal/domain"
	"hivley/internal/domain/presence"
	"hivley/internal/repository"
	"hivley/pkg/logger"
)

// PresenceSweeper marks presence rows offline once they have gone
// without a heartbeat for longer than offlineAfter.
type PresenceSweeper struct {
	repo         repository.PresenceRepository
	presence     *PresenceService
	log          *logger.Logger
	interval     time.Duration
	offlineAfter time.Duration
	batchSize    int
	stopChan     chan struct{}
	wg           sync.WaitGroup
	once         sync.Once
}

func NewPresenceSweeper(repo repository.PresenceRepository, presence *PresenceService, log *logger.Logger, interval, offlineAfter time.Duration) *PresenceSweeper {
	return &PresenceSweeper{
		repo:         repo,
		presence:     presence,
		log:          log,
		interval:     interval,
		offlineAfter: offlineAfter,
		batchSize:    200,
		stopChan:     make(chan struct{}),
	}
}

func (w *PresenceSweeper) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop waits for an in-progress sweep to finish.
func (w *PresenceSweeper) Stop() {
	w.once.Do(func() { close(w.stopChan) })
	w.wg.Wait()
}

func (w *PresenceSweeper) run() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			if _, err := w.Sweep(context.Background()); err != nil {
				w.log.Warnf("presence sweep failed: %v", err)
			}
		}
	}
}

// Sweep expires one batch of stale rows and returns how many changed.
func (w *PresenceSweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := w.presence.now().Add(-w.offlineAfter)
	rows, err := w.repo.ListExpired(ctx, cutoff, w.batchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, row := range rows {
		// A heartbeat may land between the list and the update.
		changed, err := w.repo.ExpireIfStale(ctx, row.ProfileID, cutoff)
		if err != nil {
			w.log.Warnf("expire presence for %s: %v", row.ProfileID, err)
			continue
		}
		if !changed {
			continue
		}
		expired++
		w.presence.broadcast(ctx, presence.UserPresence{
			ProfileID:  row.ProfileID,
			Status:     domain.PresenceOffline,
			LastSeenAt: row.LastSeenAt,
		})
	}
	if expired > 0 {
		w.log.Infof("presence sweep marked %d profile(s) offline", expired)
	}
	return expired, nil
}
