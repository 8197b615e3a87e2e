// Package metrics collects sync counters and writes them as a Prometheus
// textfile for the node exporter.
package metrics

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Collector captures metrics for one invocation.
type Collector struct {
	registry      *prometheus.Registry
	resultsTotal  *prometheus.CounterVec
	casesTotal    *prometheus.CounterVec
	submitted     *prometheus.CounterVec
	requestsTotal *prometheus.CounterVec
	requestTime   *prometheus.HistogramVec
	stageDuration *prometheus.HistogramVec
}

// NewCollector initializes a new metrics registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	c := &Collector{
		registry: registry,
		resultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "karatesync_results_total", Help: "Parsed Karate results by status"},
			[]string{"status"},
		),
		casesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "karatesync_cases_total", Help: "Case sync outcomes by action"},
			[]string{"action"},
		),
		submitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "karatesync_submitted_total", Help: "Results by submission outcome"},
			[]string{"outcome"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "karatesync_registry_requests_total", Help: "TestRail API requests by operation and HTTP code"},
			[]string{"operation", "code"},
		),
		requestTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "karatesync_registry_request_duration_seconds",
				Help:    "TestRail API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "karatesync_stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
	}
	registry.MustRegister(c.resultsTotal, c.casesTotal, c.submitted, c.requestsTotal, c.requestTime, c.stageDuration)
	return c
}

// ObserveResult counts a parsed result.
func (c *Collector) ObserveResult(status string) {
	c.resultsTotal.WithLabelValues(status).Inc()
}

// ObserveCases adds n to the case counter for action.
func (c *Collector) ObserveCases(action string, n int) {
	c.casesTotal.WithLabelValues(action).Add(float64(n))
}

// ObserveSubmission adds n to the submission counter for outcome.
func (c *Collector) ObserveSubmission(outcome string, n int) {
	c.submitted.WithLabelValues(outcome).Add(float64(n))
}

// ObserveRequest records a TestRail API request. A zero code means the
// request never got a response.
func (c *Collector) ObserveRequest(operation string, statusCode int, elapsed time.Duration) {
	code := "error"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	c.requestsTotal.WithLabelValues(operation, code).Inc()
	c.requestTime.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveStage records how long a pipeline stage took.
func (c *Collector) ObserveStage(stage string, elapsed time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// Write writes all metrics to a Prometheus text file.
func (c *Collector) Write(path string) error {
	metricFamilies, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range metricFamilies {
		if err := enc.Encode(family); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write metrics %q: %w", path, err)
	}
	return nil
}
