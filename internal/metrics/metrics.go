package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "edgebot_ticks_total", Help: "Market ticks ingested"},
		[]string{"source"},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "edgebot_decisions_total", Help: "Decisions recorded"},
		[]string{"action", "reason"},
	)
	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "edgebot_open_positions", Help: "Currently open positions"},
	)
	DailyPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "edgebot_daily_pnl_usd", Help: "Realized PnL for the current day"},
	)
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edgebot_cycle_duration_seconds",
			Help:    "Duration of one decision cycle",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, DecisionsTotal, OpenPositions, DailyPnL, CycleDuration)
}

// Serve expone /metrics en addr. El server se cierra con Close().
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
