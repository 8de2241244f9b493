package poller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poller_polls_total", Help: "Accounts polled",
	}, []string{"origin"})
	mFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poller_fetch_errors_total", Help: "Failed reply fetches",
	}, []string{"origin"})
	mNewReplies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poller_new_replies_total", Help: "Replies handed to the push dispatcher",
	}, []string{"origin"})
	mPushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poller_pushes_total", Help: "Per-token push outcomes",
	}, []string{"origin", "result"})
	mStoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poller_store_errors_total", Help: "Failed store calls from workers",
	}, []string{"origin", "op"})
	mBufferSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "poller_buffer_size", Help: "Accounts waiting in a worker buffer",
	}, []string{"origin"})
	mWorkerInterval = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "poller_worker_interval_seconds", Help: "Current poll interval per origin",
	}, []string{"origin"})
	mReplacements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poller_worker_replacements_total", Help: "Workers replaced with a faster one",
	}, []string{"origin"})
	mReconcileErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poller_reconcile_errors_total", Help: "Supervisor runs skipped on store errors",
	})
	mReconcileDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "poller_reconcile_duration_seconds", Help: "Supervisor run duration",
		Buckets: prometheus.DefBuckets,
	})
)
