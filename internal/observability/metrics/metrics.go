package metrics

import "github.com/prometheus/client_golang/prometheus"

// AppointmentMetrics exposes counters/histograms for the appointment
// lifecycle and the reconciliation sweep.
type AppointmentMetrics struct {
	bookingsTotal    *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	sweepRunsTotal   *prometheus.CounterVec
	sweepUpdated     prometheus.Counter
	sweepDuration    prometheus.Histogram
}

func NewAppointmentMetrics(reg prometheus.Registerer) *AppointmentMetrics {
	m := &AppointmentMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemed",
			Subsystem: "appointments",
			Name:      "bookings_total",
			Help:      "Total booking attempts",
		}, []string{"outcome"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemed",
			Subsystem: "appointments",
			Name:      "transitions_total",
			Help:      "Total appointment status transitions",
		}, []string{"to_status"}),
		sweepRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemed",
			Subsystem: "cleanup",
			Name:      "sweep_runs_total",
			Help:      "Total reconciliation sweep runs",
		}, []string{"triggered_by"}),
		sweepUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemed",
			Subsystem: "cleanup",
			Name:      "sweep_updated_total",
			Help:      "Total appointments force-transitioned by the sweep",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "telemed",
			Subsystem: "cleanup",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of reconciliation sweep runs",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.transitionsTotal, m.sweepRunsTotal, m.sweepUpdated, m.sweepDuration)
	return m
}

func (m *AppointmentMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *AppointmentMetrics) ObserveTransition(toStatus string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(toStatus).Inc()
}

func (m *AppointmentMetrics) ObserveSweep(triggeredBy string, updated int, seconds float64) {
	if m == nil {
		return
	}
	m.sweepRunsTotal.WithLabelValues(triggeredBy).Inc()
	m.sweepUpdated.Add(float64(updated))
	m.sweepDuration.Observe(seconds)
}
