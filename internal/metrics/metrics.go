// Package metrics exposes counters about sent magic packets.
package metrics

import (
	"strconv"

	"github.com/fgeck/magicpacket/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "magicpacket"

// Collector counts datagrams and wake outcomes on its own registry.
type Collector struct {
	registry         *prometheus.Registry
	datagramsSent    *prometheus.CounterVec
	datagramFailures *prometheus.CounterVec
	wakes            *prometheus.CounterVec
}

// New creates a Collector with all counters registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		datagramsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_sent_total",
			Help:      "Magic packet datagrams handed to the network stack, by UDP port.",
		}, []string{"port"}),
		datagramFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagram_failures_total",
			Help:      "Magic packet datagrams that failed to send, by UDP port.",
		}, []string{"port"}),
		wakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wakes_total",
			Help:      "Wake invocations, by outcome.",
		}, []string{"outcome"}),
	}

	c.registry.MustRegister(c.datagramsSent, c.datagramFailures, c.wakes)
	return c
}

// DatagramSent counts a datagram sent to port.
func (c *Collector) DatagramSent(port uint16) {
	c.datagramsSent.WithLabelValues(strconv.Itoa(int(port))).Inc()
}

// DatagramFailed counts a datagram to port that could not be sent.
func (c *Collector) DatagramFailed(port uint16) {
	c.datagramFailures.WithLabelValues(strconv.Itoa(int(port))).Inc()
}

// WakeFinished counts a finished wake invocation.
func (c *Collector) WakeFinished(outcome models.Outcome) {
	c.wakes.WithLabelValues(string(outcome)).Inc()
}

// Gatherer returns the registry holding the counters.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// WriteTextfile writes the counters in the text exposition format, for
// node_exporter's textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
