package limiter

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper is a store that needs periodic removal of stale windows.
type Sweeper interface {
	Sweep(now time.Time) int
}

// RunSweeper calls s.Sweep every interval until ctx is cancelled.
func RunSweeper(ctx context.Context, s Sweeper, interval time.Duration, log zerolog.Logger) {
	log = log.With().Str("component", "ratelimit_sweeper").Logger()
	log.Info().Dur("interval", interval).Msg("Rate limit sweeper started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Rate limit sweeper stopped")
			return
		case now := <-ticker.C:
			if n := s.Sweep(now); n > 0 {
				log.Debug().Int("removed", n).Msg("Swept expired rate limit windows")
			}
		}
	}
}
