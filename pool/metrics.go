/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package pool

import "github.com/prometheus/client_golang/prometheus"

// metricsCollector tracks pool-engine shape for observability: how many
// connections sit in each state, and how deep the producer→engine channel
// currently is. Each Engine owns its own registry so that multiple Engines
// in the same process never collide on metric names.
type metricsCollector struct {
	registry    *prometheus.Registry
	connections *prometheus.GaugeVec
	channel     prometheus.Gauge
}

func newMetricsCollector(poolID string) *metricsCollector {
	reg := prometheus.NewRegistry()

	connections := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   "carbon",
		Subsystem:   "pool",
		Name:        "connections",
		Help:        "Number of connections currently in each lifecycle state.",
		ConstLabels: prometheus.Labels{"pool": poolID},
	}, []string{"state"})

	channel := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   "carbon",
		Subsystem:   "pool",
		Name:        "channel_buffered",
		Help:        "Number of metrics currently queued in the producer channel.",
		ConstLabels: prometheus.Labels{"pool": poolID},
	})

	reg.MustRegister(connections, channel)

	return &metricsCollector{
		registry:    reg,
		connections: connections,
		channel:     channel,
	}
}

// Registry exposes the engine's private Prometheus registry so a caller
// can gather it alongside its own metrics.
func (m *metricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

func (m *metricsCollector) observe(pending, normal, crowded, retired, failed, buffered int) {
	m.connections.WithLabelValues("pending").Set(float64(pending))
	m.connections.WithLabelValues("normal").Set(float64(normal))
	m.connections.WithLabelValues("crowded").Set(float64(crowded))
	m.connections.WithLabelValues("retired").Set(float64(retired))
	m.connections.WithLabelValues("failed").Set(float64(failed))
	m.channel.Set(float64(buffered))
}
