package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_LoginFailureSpike(t *testing.T) {
	var alerts []AlertEvent
	m := newMetricsCollector(func(e AlertEvent) { alerts = append(alerts, e) })
	m.loginThreshold = 3

	m.recordEvent(AuditLoginFailure)
	m.recordEvent(AuditLoginFailure)
	assert.Empty(t, alerts)

	m.recordEvent(AuditLoginFailure)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertLoginFailureSpike, alerts[0].Type)
	assert.Equal(t, 3, alerts[0].Count)

	// Counter resets after the alert fires.
	m.recordEvent(AuditLoginFailure)
	assert.Len(t, alerts, 1)
}

func TestMetrics_AdminProbing(t *testing.T) {
	var alerts []AlertEvent
	m := newMetricsCollector(func(e AlertEvent) { alerts = append(alerts, e) })
	m.adminThreshold = 2

	m.recordEvent(AuditAdminDenied)
	m.recordEvent(AuditAdminDenied)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertAdminProbing, alerts[0].Type)
}

func TestMetrics_WindowExpiry(t *testing.T) {
	var alerts []AlertEvent
	m := newMetricsCollector(func(e AlertEvent) { alerts = append(alerts, e) })
	m.loginThreshold = 2
	m.loginWindow = 10 * time.Millisecond

	m.recordEvent(AuditLoginFailure)
	time.Sleep(20 * time.Millisecond)
	m.recordEvent(AuditLoginFailure)
	assert.Empty(t, alerts, "failures outside the window do not count")
}

func TestMetrics_NilCollectorIsSafe(t *testing.T) {
	var m *metricsCollector
	m.recordEvent(AuditLoginFailure)

	m2 := newMetricsCollector(nil)
	m2.recordEvent(AuditLoginFailure)
}
