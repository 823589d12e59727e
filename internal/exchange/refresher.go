package exchange

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/mohammad-safakhou/dealwatch/config"
	"github.com/mohammad-safakhou/dealwatch/internal/telemetry"
)

// Refresher re-warms the rate cache for the configured base currencies on a
// cron schedule, so overlay conversions rarely hit the remote API.
type Refresher struct {
	service *Service
	expr    *cronexpr.Expression
	bases   []string
	logger  *log.Logger
}

func NewRefresher(cfg config.ExchangeConfig, service *Service) (*Refresher, error) {
	cfg = cfg.Normalize()
	expr, err := cronexpr.Parse(cfg.RefreshCron)
	if err != nil {
		return nil, err
	}
	return &Refresher{
		service: service,
		expr:    expr,
		bases:   cfg.Bases,
		logger:  telemetry.Logger("EXCHANGE"),
	}, nil
}

// Run blocks until ctx is done, refreshing on each schedule tick.
func (r *Refresher) Run(ctx context.Context) {
	for {
		next := r.expr.Next(time.Now())
		if next.IsZero() {
			return
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		for _, base := range r.bases {
			if err := r.service.Refresh(ctx, base); err != nil {
				r.logger.Printf("refreshing %s rates: %v", base, err)
			}
		}
	}
}
