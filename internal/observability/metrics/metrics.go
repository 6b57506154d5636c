package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type Outcome string

const (
	Success                  Outcome       = "success"
	Error                    Outcome       = "error"
	MetricRequestTimeout     time.Duration = 5 * time.Second
	MetricRequestIdleTimeout time.Duration = 10 * time.Second
)

func (O Outcome) String() string {
	return string(O)
}

var defaultHistogramBucketsSeconds = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30}

// Collectors are created eagerly so recording is safe before Init, only
// registration and the http endpoint are deferred.
var (
	once          sync.Once
	metricsRouter *chi.Mux

	// client requests are the ones sending to other service
	clientRequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "client_request_duration_seconds",
			Help:    "Histogram of outgoing client request durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"baseurl", "method", "path", "status"},
	)

	clientLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "client_latency_seconds",
			Help:    "Histogram of external collaborator call durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"client", "method", "status"},
	)

	pollerDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poller_duration_seconds",
			Help:    "Histogram of poller durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"type", "status"},
	)

	dbLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "db_latency_seconds",
			Help: "DB latency in seconds splitted by method and execution status",
		},
		[]string{"method", "status"},
	)

	ledgerOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operation_count",
			Help: "Ledger operations split by operation and result code",
		},
		[]string{"operation", "result"},
	)

	settlementOutcomeCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_outcome_count",
			Help: "Settlement batches reaching a final status",
		},
		[]string{"status", "refunded"},
	)

	burnedAmountCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burned_amount_total",
			Help: "UCT burned split by burn type",
		},
		[]string{"burn_type"},
	)

	batchMintItemsHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "batch_mint_items",
			Help:    "Number of wallets included in a batch mint",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		},
	)

	batchMintRunCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_mint_run_count",
			Help: "Batch mint job runs split by outcome",
		},
		[]string{"outcome"},
	)

	integrityAlarmCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_integrity_alarm_count",
			Help: "Detected mismatches between the ledger and the balance aggregate",
		},
		[]string{"check"},
	)

	queueMessageCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_message_count",
			Help: "Consumed queue messages split by queue and outcome",
		},
		[]string{"queue", "outcome"},
	)

	staleBatchesGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stale_batches_count",
			Help: "Batches found stuck in a non final status by the last sweep",
		},
		[]string{"kind"},
	)

	ledgerTotalsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledger_bucket_total",
			Help: "Sum of a balance bucket across users, from the last rollup",
		},
		[]string{"bucket"},
	)

	ledgerUsersGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_users",
			Help: "Users with a balance aggregate, from the last rollup",
		},
	)
)

// Init initializes the metrics package.
func Init(metricsPort int) {
	once.Do(func() {
		initMetricsRouter(metricsPort)
		registerMetrics()
	})
}

// initMetricsRouter initializes the metrics router.
func initMetricsRouter(metricsPort int) {
	metricsRouter = chi.NewRouter()
	metricsRouter.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	// Create a custom server with timeout settings
	metricsAddr := fmt.Sprintf(":%d", metricsPort)
	server := &http.Server{
		Addr:         metricsAddr,
		Handler:      metricsRouter,
		ReadTimeout:  MetricRequestTimeout,
		WriteTimeout: MetricRequestTimeout,
		IdleTimeout:  MetricRequestIdleTimeout,
	}

	// Start the server in a separate goroutine
	go func() {
		log.Printf("Starting metrics server on %s", metricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msgf("Error starting metrics server on %s", metricsAddr)
		}
	}()
}

// registerMetrics registers the Prometheus metrics.
func registerMetrics() {
	prometheus.MustRegister(
		clientRequestDurationHistogram,
		clientLatency,
		pollerDurationHistogram,
		pollerLastSuccessGauge,
		dbLatency,
		ledgerOperationCounter,
		settlementOutcomeCounter,
		burnedAmountCounter,
		batchMintItemsHistogram,
		batchMintRunCounter,
		integrityAlarmCounter,
		queueMessageCounter,
		staleBatchesGauge,
		ledgerTotalsGauge,
		ledgerUsersGauge,
	)
}

func outcome(failure bool) Outcome {
	if failure {
		return Error
	}
	return Success
}

func RecordClientLatency(d time.Duration, client, method string, failure bool) {
	clientLatency.WithLabelValues(client, method, outcome(failure).String()).Observe(d.Seconds())
}

func RecordDbLatency(d time.Duration, method string, failure bool) {
	dbLatency.WithLabelValues(method, outcome(failure).String()).Observe(d.Seconds())
}

// RecordLedgerOperation counts an operation, result is "success" or the rejection code
func RecordLedgerOperation(operation, result string) {
	ledgerOperationCounter.WithLabelValues(operation, result).Inc()
}

func RecordSettlementOutcome(status string, refunded bool) {
	settlementOutcomeCounter.WithLabelValues(status, fmt.Sprintf("%t", refunded)).Inc()
}

func RecordBurnedAmount(burnType string, amount decimal.Decimal) {
	burnedAmountCounter.WithLabelValues(burnType).Add(amount.InexactFloat64())
}

func RecordBatchMintRun(outcome string, items int) {
	batchMintRunCounter.WithLabelValues(outcome).Inc()
	if items > 0 {
		batchMintItemsHistogram.Observe(float64(items))
	}
}

func IncIntegrityAlarm(check string) {
	integrityAlarmCounter.WithLabelValues(check).Inc()
}

func RecordQueueMessage(queue, outcome string) {
	queueMessageCounter.WithLabelValues(queue, outcome).Inc()
}

func RecordStaleBatches(kind string, count int) {
	staleBatchesGauge.WithLabelValues(kind).Set(float64(count))
}

// RecordLedgerTotals publishes the bucket sums of the latest rollup
func RecordLedgerTotals(users int64, buckets map[string]decimal.Decimal) {
	ledgerUsersGauge.Set(float64(users))
	for bucket, total := range buckets {
		ledgerTotalsGauge.WithLabelValues(bucket).Set(total.InexactFloat64())
	}
}

// StartClientRequestDurationTimer starts a timer to measure outgoing client request duration.
func StartClientRequestDurationTimer(baseUrl, method, path string) func(statusCode int) {
	startTime := time.Now()
	return func(statusCode int) {
		duration := time.Since(startTime).Seconds()
		clientRequestDurationHistogram.WithLabelValues(
			baseUrl,
			method,
			path,
			fmt.Sprintf("%d", statusCode),
		).Observe(duration)
	}
}
