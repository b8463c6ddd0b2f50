package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// CommandsCreated counts issued device commands by type
	CommandsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "commands_created_total", Help: "Device commands created by type."},
		[]string{"command_type"},
	)
	// CommandsAcknowledged counts command acknowledgements by outcome
	CommandsAcknowledged = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "commands_acknowledged_total", Help: "Command acknowledgements by outcome."},
		[]string{"outcome"},
	)
	// AlertsRaised counts alerts raised by the anomaly detector by type and severity
	AlertsRaised = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "alerts_raised_total", Help: "Alerts raised by type and severity."},
		[]string{"alert_type", "severity"},
	)
	// SweepRuns counts anomaly sweep executions
	SweepRuns = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "anomaly_sweep_runs_total", Help: "Anomaly sweep executions."},
	)
	// SweepCheckErrors counts failed checks inside a sweep by check name
	SweepCheckErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "anomaly_sweep_check_errors_total", Help: "Failed anomaly checks by check name."},
		[]string{"check"},
	)
	// DeviceUpdates counts accepted device telemetry updates
	DeviceUpdates = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "device_updates_total", Help: "Accepted device telemetry updates."},
	)
)

// RegisterDefault registers collectors to the package registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(CommandsCreated)
		Registry.MustRegister(CommandsAcknowledged)
		Registry.MustRegister(AlertsRaised)
		Registry.MustRegister(SweepRuns)
		Registry.MustRegister(SweepCheckErrors)
		Registry.MustRegister(DeviceUpdates)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once

// RegisterWebsocketClients exposes the connected dashboard count as a gauge.
func RegisterWebsocketClients(count func() int) {
	Registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: "websocket_connected_clients", Help: "Connected dashboard websocket clients."},
		func() float64 { return float64(count()) },
	))
}
