package planner

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	passes        *prometheus.CounterVec
	scheduled     *prometheus.CounterVec
	registerFails prometheus.Counter
	queueDepth    prometheus.Gauge
	lastPass      prometheus.Gauge
}

// newMetrics registers on reg when it is non-nil. Each NotificationScheduler
// owns its collectors so independent instances can share a process.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		passes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tend_planner_passes_total",
				Help: "Planning passes by result",
			},
			[]string{"result"},
		),
		scheduled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tend_planner_notifications_scheduled_total",
				Help: "Notifications registered with the device scheduler by kind",
			},
			[]string{"kind"},
		),
		registerFails: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tend_planner_registration_failures_total",
				Help: "Notification registrations rejected by the device scheduler",
			},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tend_planner_queue_depth",
				Help: "Replan requests waiting behind the in-flight pass",
			},
		),
		lastPass: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tend_planner_last_pass_timestamp_seconds",
				Help: "Unix time of the last successful planning pass",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.passes, m.scheduled, m.registerFails, m.queueDepth, m.lastPass)
	}
	return m
}
