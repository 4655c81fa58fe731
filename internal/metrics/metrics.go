// Package metrics exposes pipeline counters in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"NewsCurator/internal/domain"
)

// Recorder holds the collectors of one process.
type Recorder struct {
	registry   *prometheus.Registry
	ingested   prometheus.Counter
	promotions *prometheus.CounterVec
	expiries   *prometheus.CounterVec
	stories    *prometheus.GaugeVec
	lastRun    *prometheus.GaugeVec
}

// NewRecorder registers all collectors on a private registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		ingested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newscurator",
			Name:      "stories_ingested_total",
			Help:      "Stories admitted into the store.",
		}),
		promotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newscurator",
			Name:      "promotions_total",
			Help:      "Tier promotions by source and target tier.",
		}, []string{"from", "to"}),
		expiries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newscurator",
			Name:      "expiries_total",
			Help:      "Expired stories by outcome.",
		}, []string{"outcome"}),
		stories: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "newscurator",
			Name:      "stories",
			Help:      "Stories in the store by status.",
		}, []string{"status"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "newscurator",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed pipeline run.",
		}, []string{"pipeline"}),
	}
	r.registry.MustRegister(r.ingested, r.promotions, r.expiries, r.stories, r.lastRun)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Ingested counts newly admitted stories.
func (r *Recorder) Ingested(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.ingested.Add(float64(n))
}

// Transitions counts promotions and expiries.
func (r *Recorder) Transitions(transitions []domain.Transition) {
	if r == nil {
		return
	}
	for _, t := range transitions {
		switch t.Kind {
		case domain.TransitionPromoted:
			r.promotions.WithLabelValues(string(t.From), string(t.To)).Inc()
		case domain.TransitionRemoved, domain.TransitionPermanent:
			r.expiries.WithLabelValues(string(t.Kind)).Inc()
		}
	}
}

// StoreSize sets the per-status gauge; statuses absent from stories are zeroed.
func (r *Recorder) StoreSize(stories []domain.Story) {
	if r == nil {
		return
	}
	counts := map[domain.Status]int{}
	for _, s := range stories {
		counts[s.Status]++
	}
	for _, status := range []domain.Status{domain.StatusFresh, domain.StatusElevated, domain.StatusArchival, domain.StatusPermanentlyArchived} {
		r.stories.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}

// RunCompleted stamps the pipeline's completion time.
func (r *Recorder) RunCompleted(pipeline string, unixSeconds float64) {
	if r == nil {
		return
	}
	r.lastRun.WithLabelValues(pipeline).Set(unixSeconds)
}

// WriteTextfile dumps the registry; an empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
