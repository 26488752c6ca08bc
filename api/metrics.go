package api

import (
	"sync"
	"time"
)

// AlertType identifies the kind of anomaly detected.
type AlertType string

const (
	AlertLoginFailureSpike AlertType = "login_failure_spike"
	AlertAdminProbing      AlertType = "admin_probing"
)

// AlertEvent describes an anomaly that triggered an alert.
type AlertEvent struct {
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Threshold int       `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertFunc is the callback invoked when an anomaly is detected.
type AlertFunc func(AlertEvent)

// metricsCollector tracks sliding-window counters for anomaly detection.
type metricsCollector struct {
	mu sync.Mutex

	loginFailures  []time.Time
	loginWindow    time.Duration
	loginThreshold int

	adminDenials   []time.Time
	adminWindow    time.Duration
	adminThreshold int

	alertFn AlertFunc
}

const (
	defaultLoginFailureWindow    = 1 * time.Minute
	defaultLoginFailureThreshold = 50
	defaultAdminDenialWindow     = 5 * time.Minute
	defaultAdminDenialThreshold  = 10
)

func newMetricsCollector(alertFn AlertFunc) *metricsCollector {
	return &metricsCollector{
		loginWindow:    defaultLoginFailureWindow,
		loginThreshold: defaultLoginFailureThreshold,
		adminWindow:    defaultAdminDenialWindow,
		adminThreshold: defaultAdminDenialThreshold,
		alertFn:        alertFn,
	}
}

// recordEvent inspects an audit event and updates the relevant counters.
func (m *metricsCollector) recordEvent(event AuditEvent) {
	if m == nil || m.alertFn == nil {
		return
	}
	switch event {
	case AuditLoginFailure:
		m.recordLoginFailure()
	case AuditAdminDenied:
		m.recordAdminDenial()
	}
}

func (m *metricsCollector) recordLoginFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.loginFailures = append(m.loginFailures, now)
	m.loginFailures = trimWindow(m.loginFailures, now, m.loginWindow)

	if len(m.loginFailures) >= m.loginThreshold {
		m.alertFn(AlertEvent{
			Type:      AlertLoginFailureSpike,
			Message:   "login failure rate exceeds threshold",
			Count:     len(m.loginFailures),
			Threshold: m.loginThreshold,
			Timestamp: now,
		})
		m.loginFailures = nil
	}
}

func (m *metricsCollector) recordAdminDenial() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.adminDenials = append(m.adminDenials, now)
	m.adminDenials = trimWindow(m.adminDenials, now, m.adminWindow)

	if len(m.adminDenials) >= m.adminThreshold {
		m.alertFn(AlertEvent{
			Type:      AlertAdminProbing,
			Message:   "repeated admin secret failures",
			Count:     len(m.adminDenials),
			Threshold: m.adminThreshold,
			Timestamp: now,
		})
		m.adminDenials = nil
	}
}

// trimWindow drops timestamps older than the window, preserving order.
func trimWindow(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	i := 0
	for i < len(ts) && ts[i].Before(cutoff) {
		i++
	}
	return ts[i:]
}
