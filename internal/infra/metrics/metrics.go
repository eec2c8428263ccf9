// Package metrics provides Prometheus metrics collection for the runtime.
package metrics

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wrt-go/wrt/internal/infra/runtime"
)

// Metrics holds all Prometheus collectors exposed by the runtime.
type Metrics struct {
	// Capability / provider metrics.
	CapabilityGrantsTotal    *prometheus.CounterVec
	CapabilityRejectedTotal  *prometheus.CounterVec
	ProviderBytesInUse       *prometheus.GaugeVec
	CapacityExceededTotal    *prometheus.CounterVec
	ChecksumFailuresTotal    *prometheus.CounterVec

	// Fuel / task metrics.
	FuelConsumedTotal     *prometheus.CounterVec
	TasksByState          *prometheus.GaugeVec
	TaskTransitionsTotal  *prometheus.CounterVec
	FuelExhaustedTotal    *prometheus.CounterVec
	PreemptionsTotal      *prometheus.CounterVec

	// Interpreter metrics.
	TrapsTotal              *prometheus.CounterVec
	InstructionsExecuted    *prometheus.CounterVec

	// Atomic memory model metrics.
	AtomicWaitTotal   *prometheus.CounterVec
	AtomicNotifyTotal *prometheus.CounterVec

	// Type registry metrics.
	TypeRegistrySize *prometheus.GaugeVec

	// Host/service health.
	ServiceUptime prometheus.Gauge
	ServiceInfo   *prometheus.GaugeVec
}

// New creates a Metrics instance registered against the default registerer.
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered against a custom registry.
func NewWithRegistry(serviceName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		CapabilityGrantsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "capability_grants_total", Help: "Total capability grants issued"},
			[]string{"crate"},
		),
		CapabilityRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "capability_grants_rejected_total", Help: "Total capability grants rejected"},
			[]string{"crate"},
		),
		ProviderBytesInUse: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "provider_bytes_in_use", Help: "Bytes currently granted per crate"},
			[]string{"crate"},
		),
		CapacityExceededTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "capacity_exceeded_total", Help: "Total CapacityExceeded errors"},
			[]string{"collection"},
		),
		ChecksumFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "checksum_failures_total", Help: "Total checksum verification failures"},
			[]string{"collection"},
		),
		FuelConsumedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "fuel_consumed_total", Help: "Total fuel units consumed"},
			[]string{"component"},
		),
		TasksByState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "tasks_by_state", Help: "Current number of tasks in each state"},
			[]string{"state"},
		),
		TaskTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "task_transitions_total", Help: "Total task state transitions"},
			[]string{"from", "to"},
		),
		FuelExhaustedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "fuel_exhausted_total", Help: "Total tasks that ended FuelExhausted"},
			[]string{"component"},
		),
		PreemptionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "preemptions_total", Help: "Total preemption events"},
			[]string{"reason"},
		),
		TrapsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "traps_total", Help: "Total interpreter traps"},
			[]string{"kind"},
		),
		InstructionsExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "instructions_executed_total", Help: "Total instructions dispatched"},
			[]string{"opcode"},
		),
		AtomicWaitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "atomic_wait_total", Help: "Total memory.atomic.wait calls"},
			[]string{"outcome"},
		),
		AtomicNotifyTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "atomic_notify_total", Help: "Total threads woken by memory.atomic.notify"},
			[]string{"address"},
		),
		TypeRegistrySize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "type_registry_size", Help: "Number of interned types per tier"},
			[]string{"tier"},
		),
		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "service_uptime_seconds", Help: "Runtime process uptime in seconds"},
		),
		ServiceInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "service_info", Help: "Runtime build information"},
			[]string{"service", "version", "environment"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.CapabilityGrantsTotal,
			m.CapabilityRejectedTotal,
			m.ProviderBytesInUse,
			m.CapacityExceededTotal,
			m.ChecksumFailuresTotal,
			m.FuelConsumedTotal,
			m.TasksByState,
			m.TaskTransitionsTotal,
			m.FuelExhaustedTotal,
			m.PreemptionsTotal,
			m.TrapsTotal,
			m.InstructionsExecuted,
			m.AtomicWaitTotal,
			m.AtomicNotifyTotal,
			m.TypeRegistrySize,
			m.ServiceUptime,
			m.ServiceInfo,
		)
	}

	m.ServiceInfo.WithLabelValues(serviceName, "0.1.0", getEnvironment()).Set(1)

	return m
}

// RecordCapabilityGrant records a grant outcome.
func (m *Metrics) RecordCapabilityGrant(crate string, bytesInUse int64, ok bool) {
	if ok {
		m.CapabilityGrantsTotal.WithLabelValues(crate).Inc()
		m.ProviderBytesInUse.WithLabelValues(crate).Set(float64(bytesInUse))
		return
	}
	m.CapabilityRejectedTotal.WithLabelValues(crate).Inc()
}

// RecordFuelConsumed records fuel consumption for a component.
func (m *Metrics) RecordFuelConsumed(component string, units int64) {
	m.FuelConsumedTotal.WithLabelValues(component).Add(float64(units))
}

// RecordTaskTransition records a task state transition.
func (m *Metrics) RecordTaskTransition(from, to string) {
	m.TaskTransitionsTotal.WithLabelValues(from, to).Inc()
}

// SetTasksByState sets the current gauge for a task state.
func (m *Metrics) SetTasksByState(state string, count int) {
	m.TasksByState.WithLabelValues(state).Set(float64(count))
}

// RecordTrap records an interpreter trap by kind.
func (m *Metrics) RecordTrap(kind string) {
	m.TrapsTotal.WithLabelValues(kind).Inc()
}

// RecordPreemption records a preemption event by reason (priority, deadline,
// fuel_quantum, system, voluntary).
func (m *Metrics) RecordPreemption(reason string) {
	m.PreemptionsTotal.WithLabelValues(reason).Inc()
}

// RecordAtomicWait records a memory.atomic.wait outcome (ok, mismatch,
// timed_out).
func (m *Metrics) RecordAtomicWait(outcome string) {
	m.AtomicWaitTotal.WithLabelValues(outcome).Inc()
}

// RecordAtomicNotify records threads woken by memory.atomic.notify at a
// given address.
func (m *Metrics) RecordAtomicNotify(address string, woken int) {
	m.AtomicNotifyTotal.WithLabelValues(address).Add(float64(woken))
}

// SetTypeRegistrySize sets the interned-type count gauge for one tier.
func (m *Metrics) SetTypeRegistrySize(tier string, size int) {
	m.TypeRegistrySize.WithLabelValues(tier).Set(float64(size))
}

// UpdateUptime updates the service uptime gauge.
func (m *Metrics) UpdateUptime(startTime time.Time) {
	m.ServiceUptime.Set(time.Since(startTime).Seconds())
}

func getEnvironment() string {
	return string(runtime.Env())
}

// Enabled returns whether Prometheus metrics should be exposed.
//
// Defaults:
// - production: disabled unless explicitly enabled via METRICS_ENABLED
// - non-production: enabled unless explicitly disabled via METRICS_ENABLED
func Enabled() bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_ENABLED")))
	if raw == "" {
		return !runtime.IsProduction()
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

var (
	globalMetrics *Metrics
	globalMu      sync.Mutex
)

// Init initializes the global metrics instance.
func Init(serviceName string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = New(serviceName)
	}
	return globalMetrics
}

// Global returns the global metrics instance.
func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = New("unknown")
	}
	return globalMetrics
}
