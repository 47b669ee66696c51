// Package metrics exports the security state as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

const namespace = "catpoint"

// Listener updates Prometheus collectors from engine notifications.
// It is safe for concurrent use.
type Listener struct {
	registry    *prometheus.Registry
	alarmStatus *prometheus.GaugeVec
	transitions *prometheus.CounterVec
	active      prometheus.Gauge
	tracked     prometheus.Gauge
	catDetected prometheus.Gauge
}

// New creates a Listener with its own registry. The alarm status starts at NO_ALARM.
func New() *Listener {
	l := &Listener{
		registry: prometheus.NewRegistry(),
		alarmStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alarm_status",
			Help:      "Current alarm status, 1 for the active value.",
		}, []string{"status"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alarm_transitions_total",
			Help:      "Number of alarm status changes by target status.",
		}, []string{"status"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sensors",
			Help:      "Number of active sensors.",
		}),
		tracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_sensors",
			Help:      "Number of tracked sensors.",
		}),
		catDetected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cat_detected",
			Help:      "1 when the latest image scan saw a cat.",
		}),
	}

	l.registry.MustRegister(l.alarmStatus, l.transitions, l.active, l.tracked, l.catDetected)
	l.setAlarmStatus(domain.AlarmNone)

	return l
}

// Seed initializes gauges from a stored snapshot without counting a transition.
func (l *Listener) Seed(snapshot *domain.Snapshot) {
	if snapshot == nil {
		return
	}

	l.setAlarmStatus(snapshot.AlarmStatus)
	l.setSensors(snapshot.Sensors)
}

// Registry returns the registry holding the catpoint collectors.
func (l *Listener) Registry() *prometheus.Registry {
	return l.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (l *Listener) Handler() http.Handler {
	return promhttp.HandlerFor(l.registry, promhttp.HandlerOpts{Registry: l.registry})
}

// AlarmStatusChanged moves the one-hot status gauge and counts the transition.
func (l *Listener) AlarmStatusChanged(_ context.Context, status domain.AlarmStatus) error {
	l.setAlarmStatus(status)
	l.transitions.WithLabelValues(status.String()).Inc()

	return nil
}

// SensorStatusChanged updates the sensor gauges.
func (l *Listener) SensorStatusChanged(_ context.Context, sensors []*domain.Sensor) error {
	l.setSensors(sensors)

	return nil
}

// CatDetected records the latest scan result.
func (l *Listener) CatDetected(_ context.Context, detected bool) error {
	if detected {
		l.catDetected.Set(1)
	} else {
		l.catDetected.Set(0)
	}

	return nil
}

func (l *Listener) setAlarmStatus(status domain.AlarmStatus) {
	for _, s := range []domain.AlarmStatus{domain.AlarmNone, domain.AlarmPending, domain.AlarmActive} {
		value := 0.0
		if s == status {
			value = 1
		}

		l.alarmStatus.WithLabelValues(s.String()).Set(value)
	}
}

func (l *Listener) setSensors(sensors []*domain.Sensor) {
	active := 0

	for _, s := range sensors {
		if s.Active {
			active++
		}
	}

	l.active.Set(float64(active))
	l.tracked.Set(float64(len(sensors)))
}
