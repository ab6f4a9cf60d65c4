/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package stats

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var keyReplacer = strings.NewReplacer(" ", "_", ".", "_", "-", "_", "=", "_", "/", "_", ":", "_")

// PrometheusExporter republishes the JSON stats of a running poolclock as Prometheus gauges
type PrometheusExporter struct {
	registry   *prometheus.Registry
	listenPort int
	statsURL   string
	interval   time.Duration

	mu       sync.Mutex
	counters map[string]prometheus.Gauge
	sources  map[string]*prometheus.GaugeVec
}

// NewPrometheusExporter creates an exporter scraping the JSON stats server at statsURL every scrapeInterval
func NewPrometheusExporter(listenPort int, statsURL string, scrapeInterval time.Duration) *PrometheusExporter {
	e := &PrometheusExporter{
		registry:   prometheus.NewRegistry(),
		listenPort: listenPort,
		statsURL:   statsURL,
		interval:   scrapeInterval,
		counters:   map[string]prometheus.Gauge{},
		sources:    map[string]*prometheus.GaugeVec{},
	}
	for name, help := range map[string]string{
		"acquired":     "1 if the source has time",
		"pending_leap": "leap second announced by the source",
		"smearing":     "1 if the source smears the current leap second",
		"backoff":      "refresh rounds the source sits out",
		"offset_ns":    "clock offset measured by the last query",
		"rtt_ns":       "round trip time of the last query",
		"stratum":      "NTP stratum of the source",
	} {
		g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "poolclock",
			Subsystem: "source",
			Name:      name,
			Help:      help,
		}, []string{"source"})
		e.registry.MustRegister(g)
		e.sources[name] = g
	}
	return e
}

// Handler returns the /metrics handler
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Start scrapes in the background and serves /metrics. It only returns on listener failure
func (e *PrometheusExporter) Start() {
	go func() {
		for {
			if err := e.scrapeMetrics(); err != nil {
				log.Warningf("failed to fetch poolclock metrics: %v", err)
			}
			time.Sleep(e.interval)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	addr := fmt.Sprintf(":%d", e.listenPort)
	log.Infof("Starting prometheus exporter on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func (e *PrometheusExporter) scrapeMetrics() error {
	counters, err := FetchCounters(e.statsURL)
	if err != nil {
		return fmt.Errorf("fetching counters: %w", err)
	}
	sources, err := FetchSourceStats(e.statsURL)
	if err != nil {
		return fmt.Errorf("fetching sources: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.update(counters)
	e.updateSources(sources)
	return nil
}

// update sets one gauge per counter, registering it on first sight
func (e *PrometheusExporter) update(counters Counters) {
	for key, val := range counters {
		g, ok := e.counters[key]
		if !ok {
			g = prometheus.NewGauge(prometheus.GaugeOpts{
				Name: flattenKey(key),
				Help: key,
			})
			if err := e.registry.Register(g); err != nil {
				log.Errorf("failed to register metric %s: %v", key, err)
				continue
			}
			e.counters[key] = g
		}
		g.Set(float64(val))
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (e *PrometheusExporter) updateSources(sources SourceStats) {
	for _, g := range e.sources {
		g.Reset()
	}
	for _, s := range sources {
		e.sources["acquired"].WithLabelValues(s.Name).Set(boolGauge(s.Acquired))
		e.sources["pending_leap"].WithLabelValues(s.Name).Set(float64(s.PendingLeap))
		e.sources["smearing"].WithLabelValues(s.Name).Set(boolGauge(s.Smearing))
		e.sources["backoff"].WithLabelValues(s.Name).Set(float64(s.Backoff))
		e.sources["offset_ns"].WithLabelValues(s.Name).Set(s.Offset)
		e.sources["rtt_ns"].WithLabelValues(s.Name).Set(s.RTT)
		e.sources["stratum"].WithLabelValues(s.Name).Set(float64(s.Stratum))
	}
}

func flattenKey(key string) string {
	return keyReplacer.Replace(key)
}
