package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/uct-network/uct-ledger/internal/observability/tracing"
)

type Poller struct {
	name       string
	interval   time.Duration
	quit       chan struct{}
	pollMethod func(ctx context.Context) error
}

func NewPoller(name string, interval time.Duration, pollMethod func(ctx context.Context) error) *Poller {
	return &Poller{
		name:       name,
		interval:   interval,
		quit:       make(chan struct{}),
		pollMethod: pollMethod,
	}
}

func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log.Info().Str("poller", p.name).Msgf("Starting poller with interval %s", p.interval)

	for {
		select {
		case <-ticker.C:
			pollCtx := tracing.InjectTraceID(ctx)
			log.Ctx(pollCtx).Debug().Str("poller", p.name).Msg("Executing poll method")
			if err := p.pollMethod(pollCtx); err != nil {
				log.Ctx(pollCtx).Error().Err(err).Str("poller", p.name).Msg("Error polling")
			} else {
				log.Ctx(pollCtx).Debug().Str("poller", p.name).Msg("Poll method executed successfully")
			}
		case <-ctx.Done():
			log.Info().Str("poller", p.name).Msg("Poller stopped due to context cancellation")
			return
		case <-p.quit:
			log.Info().Str("poller", p.name).Msg("Poller stopped")
			return
		}
	}
}

func (p *Poller) Stop() {
	close(p.quit)
}
