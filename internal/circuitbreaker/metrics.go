package circuitbreaker

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "widget_circuit_breaker_state",
			Help: "Current state of circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name", "service"},
	)

	breakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "service", "state", "result"},
	)

	breakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_circuit_breaker_state_changes_total",
			Help: "Total number of state changes in circuit breaker",
		},
		[]string{"name", "service", "from_state", "to_state"},
	)
)

// Collector tracks registered breakers so their state can be reported.
type Collector struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{
		breakers: make(map[string]*CircuitBreaker),
	}
}

// DefaultCollector is used by HTTPClient.
var DefaultCollector = NewCollector()

// Register starts exporting cb's state under service.
func (c *Collector) Register(service string, cb *CircuitBreaker) {
	c.mu.Lock()
	c.breakers[cb.Name()] = cb
	c.mu.Unlock()

	breakerState.WithLabelValues(cb.Name(), service).Set(float64(StateClosed))
	cb.OnStateChange(func(name string, from, to State) {
		breakerStateChanges.WithLabelValues(name, service, from.String(), to.String()).Inc()
		breakerState.WithLabelValues(name, service).Set(float64(to))
	})
}

// RecordRequest counts one call through a breaker.
func (c *Collector) RecordRequest(service, name string, state State, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	breakerRequests.WithLabelValues(name, service, state.String(), result).Inc()
}

// States reports the current state of every registered breaker by name.
func (c *Collector) States() map[string]State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]State, len(c.breakers))
	for name, cb := range c.breakers {
		out[name] = cb.State()
	}
	return out
}
