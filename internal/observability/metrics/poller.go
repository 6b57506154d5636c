package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var pollerLastSuccessGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "poller_last_success_timestamp_seconds",
		Help: "Unix time of the last poll that finished without error, by poller.",
	},
	[]string{"type"},
)

// PollFunc is the shape of a periodic sweep such as the stats rollup or the
// stale batch reconciliation.
type PollFunc = func(ctx context.Context) error

// RecordPollerDuration wraps a sweep so each run is timed and a successful
// run moves the last success gauge forward.
func RecordPollerDuration(typ string, f PollFunc) PollFunc {
	return func(ctx context.Context) error {
		start := time.Now()
		err := f(ctx)

		pollerDurationHistogram.WithLabelValues(typ, outcome(err != nil).String()).
			Observe(time.Since(start).Seconds())
		if err == nil {
			pollerLastSuccessGauge.WithLabelValues(typ).SetToCurrentTime()
		}

		return err
	}
}
