// Package metrics exposes the server's counters and gauges over
// Prometheus, mirroring the text stats command's fields for
// scrape-based monitoring. Collector registration uses the promauto
// convention rather than hand-built Collector implementations.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emberkv/emberkv/internal/store"
)

// Metrics holds the process-wide Prometheus collectors. Values are
// pulled from a Store on each scrape rather than updated inline on
// every Get/Set, since the Store already tracks them per shard.
type Metrics struct {
	getHits   prometheus.Counter
	getMisses prometheus.Counter
	currItems prometheus.Gauge
	bytesUsed prometheus.Gauge

	store *store.Store

	// lastHits/lastMisses hold the Store totals as of the previous
	// Collect, so the Store's running counts (which can be reset by
	// flush_all) convert into the strictly-increasing deltas a
	// Prometheus Counter requires.
	lastHits, lastMisses uint64
}

// New registers emberkv's collectors against the default registry and
// wires them to read from s on every scrape.
func New(s *store.Store) *Metrics {
	return NewWithRegisterer(s, prometheus.DefaultRegisterer)
}

// NewWithRegisterer is New against an explicit registry, so tests can
// avoid colliding with the global default registerer across cases.
func NewWithRegisterer(s *store.Store, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		getHits: f.NewCounter(prometheus.CounterOpts{
			Name: "emberkv_get_hits_total",
			Help: "Number of get commands that found a live value.",
		}),
		getMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "emberkv_get_misses_total",
			Help: "Number of get commands that found no live value.",
		}),
		currItems: f.NewGauge(prometheus.GaugeOpts{
			Name: "emberkv_curr_items",
			Help: "Live, non-expired entries currently stored.",
		}),
		bytesUsed: f.NewGauge(prometheus.GaugeOpts{
			Name: "emberkv_bytes_used",
			Help: "Bytes committed out of the arena pool across all shards.",
		}),
		store: s,
	}
}

// Collect snapshots the Store's aggregate stats into the registered
// gauges and counters.
func (m *Metrics) Collect() {
	st := m.store.Stats()
	m.currItems.Set(float64(st.CurrItems))
	m.bytesUsed.Set(float64(st.Bytes))

	if st.GetHits >= m.lastHits {
		m.getHits.Add(float64(st.GetHits - m.lastHits))
	}
	if st.GetMisses >= m.lastMisses {
		m.getMisses.Add(float64(st.GetMisses - m.lastMisses))
	}
	m.lastHits, m.lastMisses = st.GetHits, st.GetMisses
}

// Handler returns the HTTP handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ListenAndServe runs a dedicated metrics HTTP server on addr until
// ctx is canceled, scraping m into the registry every time /metrics is
// hit via an http.HandlerFunc wrapper so Collect always reflects the
// latest Store state.
func ListenAndServe(ctx context.Context, addr string, m *Metrics) error {
	router := mux.NewRouter()
	router.Handle("/metrics", scrapeBeforeServe(m, Handler()))

	srv := &http.Server{Addr: addr, Handler: router}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics: listen on %s: %w", addr, err)
	}
	return nil
}

func scrapeBeforeServe(m *Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Collect()
		next.ServeHTTP(w, r)
	})
}
