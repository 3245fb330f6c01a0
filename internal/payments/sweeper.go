package payments

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper periodically expires Pending orders whose checkout was never
// completed, releasing their stock after a bounded window.
type Sweeper struct {
	useCase  *UseCase
	ttl      time.Duration
	interval time.Duration
	log      zerolog.Logger
}

// NewSweeper creates a sweeper with the given pending TTL and run interval.
func NewSweeper(useCase *UseCase, ttl, interval time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{useCase: useCase, ttl: ttl, interval: interval, log: log}
}

// Run blocks until ctx is cancelled, sweeping on every tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := s.useCase.SweepStalePending(ctx, s.ttl)
			if err != nil {
				s.log.Error().Err(err).Msg("stale pending sweep failed")
				continue
			}
			if swept > 0 {
				s.log.Info().Int("orders", swept).Msg("expired stale pending orders")
			}
		}
	}
}
