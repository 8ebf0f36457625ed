package observability

import (
	"time"

	"github.com/openlh/aliquot/pkg/domain"
	"github.com/openlh/aliquot/pkg/executor"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the Prometheus collectors for one robot. Register a
// Metrics value on exactly one registry; the serve command builds its own
// registry so repeated construction never collides.
type Metrics struct {
	commands  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	dispensed prometheus.Counter
	tips      prometheus.Counter
	duration  prometheus.Histogram
}

// NewMetrics creates and registers the collectors. A nil reg uses the
// default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aliquot_commands_total",
				Help: "Commands dispatched to an instrument, by op.",
			},
			[]string{"op"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aliquot_command_errors_total",
				Help: "Commands the instrument rejected or failed, by op.",
			},
			[]string{"op"},
		),
		dispensed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "aliquot_volume_dispensed_microliters_total",
				Help: "Total liquid volume dispensed.",
			},
		),
		tips: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "aliquot_tips_used_total",
				Help: "Tip pick-ups performed. A multi-channel pick-up counts once.",
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "aliquot_run_duration_seconds",
				Help:    "Wall time of complete plan runs.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	reg.MustRegister(m.commands, m.errors, m.dispensed, m.tips, m.duration)
	return m
}

// Hooks returns executor hooks that feed the collectors.
func (m *Metrics) Hooks() executor.Hooks {
	return executor.Hooks{
		OnResult: func(cmd domain.Command, err error) {
			op := string(cmd.Op())
			if err != nil {
				m.errors.WithLabelValues(op).Inc()
				return
			}
			m.commands.WithLabelValues(op).Inc()
			switch c := cmd.(type) {
			case domain.Dispense:
				m.dispensed.Add(c.Volume)
			case domain.PickUpTip:
				m.tips.Inc()
			}
		},
	}
}

// ObserveRun records the wall time of one completed run, success or not.
func (m *Metrics) ObserveRun(d time.Duration) {
	m.duration.Observe(d.Seconds())
}
