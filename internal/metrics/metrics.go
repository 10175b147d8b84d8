// Copyright 2025 The A2A Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics defines the Prometheus collectors reporting orchestration activity.
package metrics

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "a2a_orchestrator"

// Metrics groups the orchestrator collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	routingDecisions *prometheus.CounterVec
	routingFailures  *prometheus.CounterVec
	forwards         *prometheus.CounterVec
	hops             prometheus.Histogram
	activeTasks      prometheus.Gauge
	remoteDuration   *prometheus.HistogramVec
	completions      *prometheus.HistogramVec
	searches         *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns metrics registered with the global Prometheus registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = MustNew(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// MustNew creates the collectors and registers them with reg. Collectors which are already
// registered are reused. Any other registration error panics.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Metrics{
		routingDecisions: mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "decisions_total",
			Help:      "Number of routing decisions by target agent and strategy.",
		}, []string{"target", "strategy"})),
		routingFailures: mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "failures_total",
			Help:      "Number of router executions which ended with a failed task.",
		}, []string{"reason"})),
		forwards: mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "forwards_total",
			Help:      "Number of agent to agent handoffs.",
		}, []string{"from", "to"})),
		hops: mustRegister(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "hops",
			Help:      "Number of agent hops needed to finish a router execution.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		})),
		activeTasks: mustRegister(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "executions_active",
			Help:      "Number of router executions in progress.",
		})),
		remoteDuration: mustRegister(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "request_duration_seconds",
			Help:      "Duration of requests sent to remote agents.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"agent", "status"})),
		completions: mustRegister(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "completion_duration_seconds",
			Help:      "Duration of text completion calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "status"})),
		searches: mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Number of product searches by backend and outcome.",
		}, []string{"backend", "outcome"})),
	}
}

func mustRegister[C prometheus.Collector](reg prometheus.Registerer, collector C) C {
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return collector
}

// Handler exposes the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RoutingDecision counts a request routed to target.
func (m *Metrics) RoutingDecision(target, strategy string) {
	if m == nil {
		return
	}
	m.routingDecisions.WithLabelValues(target, strategy).Inc()
}

// RoutingFailure counts a router execution which failed for the provided reason.
func (m *Metrics) RoutingFailure(reason string) {
	if m == nil {
		return
	}
	m.routingFailures.WithLabelValues(reason).Inc()
}

// Forward counts a handoff between two agents.
func (m *Metrics) Forward(from, to string) {
	if m == nil {
		return
	}
	m.forwards.WithLabelValues(from, to).Inc()
}

// ExecutionStarted marks a router execution as active and returns a function which
// records the hop count and marks the execution as finished.
func (m *Metrics) ExecutionStarted() func(hops int) {
	if m == nil {
		return func(int) {}
	}
	m.activeTasks.Inc()
	return func(hops int) {
		m.activeTasks.Dec()
		m.hops.Observe(float64(hops))
	}
}

// ObserveRemoteRequest records the duration of a request sent to a remote agent.
func (m *Metrics) ObserveRemoteRequest(agent string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.remoteDuration.WithLabelValues(agent, status(err)).Observe(d.Seconds())
}

// ObserveCompletion records the duration of a completion call.
func (m *Metrics) ObserveCompletion(provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(provider, status(err)).Observe(d.Seconds())
}

// Search counts a product search. Outcome is one of "ok", "error", "cache_hit".
func (m *Metrics) Search(backend, outcome string) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(backend, outcome).Inc()
}
