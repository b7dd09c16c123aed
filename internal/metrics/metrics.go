package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RecordsBuilt = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tweetarchive_records_built_total",
		Help: "Messages turned into records",
	})
	BuildErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tweetarchive_build_errors_total",
		Help: "Messages rejected by the builder",
	}, []string{"reason"})
	RecordsSaved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tweetarchive_records_saved_total",
		Help: "Records written to the store",
	})
	DuplicatesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tweetarchive_duplicates_skipped_total",
		Help: "Messages dropped as probable duplicates",
	})
	StoreErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tweetarchive_store_errors_total",
		Help: "Storage failures by operation",
	}, []string{"op"})
	StoreDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tweetarchive_store_duration_seconds",
		Help:    "Storage call duration seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	IngestLag = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tweetarchive_ingest_lag_seconds",
		Help:    "Delay between tweet creation and capture",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 16),
	})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tweetarchive_command_runs_total",
		Help: "CLI command runs",
	}, []string{"cmd"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tweetarchive_command_errors_total",
		Help: "CLI command failures",
	}, []string{"cmd"})
)

func init() {
	prometheus.MustRegister(RecordsBuilt, BuildErrors, RecordsSaved, DuplicatesSkipped,
		StoreErrors, StoreDuration, IngestLag, CommandRuns, CommandErrors)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, mux) }()
}

// ObserveStore records the duration of a storage call and counts failures.
func ObserveStore(op string, start time.Time, err error) {
	StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		StoreErrors.WithLabelValues(op).Inc()
	}
}

// ObserveLag records how long after creation a tweet reached us.
func ObserveLag(created, now time.Time) {
	if d := now.Sub(created); d >= 0 {
		IngestLag.Observe(d.Seconds())
	}
}

func IncBuildError(reason string) { BuildErrors.WithLabelValues(reason).Inc() }
func IncCommandRun(cmd string)    { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string)  { CommandErrors.WithLabelValues(cmd).Inc() }
