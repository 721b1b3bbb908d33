package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sudooom.memmatch/internal/game/event"
	"sudooom.memmatch/internal/game/pool"
)

const namespace = "memmatch"

// Recorder prometheus collectors fed by session notifications
type Recorder struct {
	registry *prometheus.Registry

	events       *prometheus.CounterVec
	gamesOver    prometheus.Counter
	newHighs     prometheus.Counter
	finalScore   prometheus.Histogram
	movesPerGame prometheus.Histogram
}

// NewRecorder creates a recorder on its own registry, with Go and process collectors
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Session notifications by kind.",
		}, []string{"kind"}),
		gamesOver: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Games that reached game over.",
		}),
		newHighs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_high_scores_total",
			Help:      "Finished games that beat the stored high score.",
		}),
		finalScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "final_score",
			Help:      "Score at game over.",
			Buckets:   prometheus.LinearBuckets(0, 200, 10),
		}),
		movesPerGame: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "moves_per_game",
			Help:      "Resolved comparisons per finished game.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.events,
		r.gamesOver,
		r.newHighs,
		r.finalScore,
		r.movesPerGame,
	)
	return r
}

// Observe records one notification. Matches event.Handler.
func (r *Recorder) Observe(e event.Event) {
	r.events.WithLabelValues(string(e.Kind)).Inc()

	if e.Kind != event.KindGameOver {
		return
	}
	r.gamesOver.Inc()
	if e.NewHighScore {
		r.newHighs.Inc()
	}
	r.finalScore.Observe(float64(e.HUD.Score))
	r.movesPerGame.Observe(float64(e.HUD.Moves))
}

// TrackSessions exports the live session count
func (r *Recorder) TrackSessions(count func() int) {
	r.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions",
		Help:      "Registered sessions.",
	}, func() float64 { return float64(count()) }))
}

// TrackPools exports tile pool occupancy
func (r *Recorder) TrackPools(stats func() []pool.Stats) {
	r.registry.MustRegister(&poolCollector{stats: stats})
}

// StatsSource scheduler statistics
type StatsSource interface {
	GetStats() map[string]any
}

// TrackScheduler exports the number of tasks waiting on the time wheel
func (r *Recorder) TrackScheduler(src StatsSource) {
	r.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "pending_tasks",
		Help:      "Tasks waiting on the time wheel.",
	}, func() float64 {
		n, _ := src.GetStats()["totalTaskCount"].(int)
		return float64(n)
	}))
}

// Registry underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler /metrics endpoint
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

var (
	poolSizeDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "pool", "size"),
		"Tiles created by the pool.",
		[]string{"key"}, nil,
	)
	poolInUseDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "pool", "in_use"),
		"Tiles handed out to boards.",
		[]string{"key"}, nil,
	)
	poolAvailableDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "pool", "available"),
		"Tiles idle in the pool.",
		[]string{"key"}, nil,
	)
)

type poolCollector struct {
	stats func() []pool.Stats
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- poolSizeDesc
	ch <- poolInUseDesc
	ch <- poolAvailableDesc
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.stats() {
		ch <- prometheus.MustNewConstMetric(poolSizeDesc, prometheus.GaugeValue, float64(s.Size), s.Key)
		ch <- prometheus.MustNewConstMetric(poolInUseDesc, prometheus.GaugeValue, float64(s.InUse), s.Key)
		ch <- prometheus.MustNewConstMetric(poolAvailableDesc, prometheus.GaugeValue, float64(s.Available), s.Key)
	}
}
