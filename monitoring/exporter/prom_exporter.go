package main

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromExporter collects metrics in Prometheus format from a hoot server.
type PromExporter struct {
	address   string
	timeout   time.Duration
	namespace string

	scraper *Scraper

	up                 *prometheus.Desc
	uptime             *prometheus.Desc
	goroutines         *prometheus.Desc
	topicsLive         *prometheus.Desc
	topicsTotal        *prometheus.Desc
	subscriptionsLive  *prometheus.Desc
	subscriptionsTotal *prometheus.Desc
	eventsPublished    *prometheus.Desc
	eventsDelivered    *prometheus.Desc
	eventsDropped      *prometheus.Desc
	malloced           *prometheus.Desc
}

// NewPromExporter returns an initialized Prometheus exporter.
func NewPromExporter(server, namespace string, timeout time.Duration, scraper *Scraper) *PromExporter {
	return &PromExporter{
		address:   server,
		timeout:   timeout,
		namespace: namespace,
		scraper:   scraper,
		up: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "up"),
			"If the hoot instance is reachable.",
			nil,
			nil,
		),
		uptime: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "uptime_seconds"),
			"Time since instance start.",
			nil,
			nil,
		),
		goroutines: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "goroutines"),
			"Number of live goroutines.",
			nil,
			nil,
		),
		topicsLive: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "topics_live_count"),
			"Number of currently active event topics.",
			nil,
			nil,
		),
		topicsTotal: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "topics_total"),
			"Total number of event topics used during instance lifetime.",
			nil,
			nil,
		),
		subscriptionsLive: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "subscriptions_live_count"),
			"Number of currently open subscriptions.",
			nil,
			nil,
		),
		subscriptionsTotal: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "subscriptions_total"),
			"Total number of subscriptions since instance start.",
			nil,
			nil,
		),
		eventsPublished: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "events_published_total"),
			"Total number of events published to the hub.",
			nil,
			nil,
		),
		eventsDelivered: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "events_delivered_total"),
			"Total number of events delivered to subscriptions.",
			nil,
			nil,
		),
		eventsDropped: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "events_dropped_total"),
			"Total number of events dropped due to slow subscribers.",
			nil,
			nil,
		),
		malloced: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "malloced_bytes"),
			"Number of bytes of memory allocated and in use.",
			nil,
			nil,
		),
	}
}

// Describe describes all the metrics exported by the hoot exporter. It
// implements prometheus.Collector.
func (e *PromExporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.up
	ch <- e.uptime
	ch <- e.goroutines
	ch <- e.topicsLive
	ch <- e.topicsTotal
	ch <- e.subscriptionsLive
	ch <- e.subscriptionsTotal
	ch <- e.eventsPublished
	ch <- e.eventsDelivered
	ch <- e.eventsDropped
	ch <- e.malloced
}

// Collect fetches statistics from the configured hoot instance and
// delivers them as Prometheus metrics. It implements prometheus.Collector.
func (e *PromExporter) Collect(ch chan<- prometheus.Metric) {
	up := float64(1)
	if stats, err := e.scraper.Scrape(); err != nil {
		log.Println("Failed to fetch or parse response", err)
		up = 0
	} else if err := e.parseStats(ch, stats); err != nil {
		up = 0
	}

	ch <- prometheus.MustNewConstMetric(e.up, prometheus.GaugeValue, up)
}

func (e *PromExporter) parseStats(ch chan<- prometheus.Metric, stats map[string]interface{}) error {
	err := firstError(
		e.parseAndUpdate(ch, e.uptime, prometheus.GaugeValue, stats, "Uptime"),
		e.parseAndUpdate(ch, e.goroutines, prometheus.GaugeValue, stats, "NumGoroutines"),
		e.parseAndUpdate(ch, e.topicsLive, prometheus.GaugeValue, stats, "LiveTopics"),
		e.parseAndUpdate(ch, e.topicsTotal, prometheus.CounterValue, stats, "TotalTopics"),
		e.parseAndUpdate(ch, e.subscriptionsLive, prometheus.GaugeValue, stats, "LiveSubscriptions"),
		e.parseAndUpdate(ch, e.subscriptionsTotal, prometheus.CounterValue, stats, "TotalSubscriptions"),
		e.parseAndUpdate(ch, e.eventsPublished, prometheus.CounterValue, stats, "EventsPublishedTotal"),
		e.parseAndUpdate(ch, e.eventsDelivered, prometheus.CounterValue, stats, "EventsDeliveredTotal"),
		e.parseAndUpdate(ch, e.eventsDropped, prometheus.CounterValue, stats, "EventsDroppedTotal"),
		e.parseAndUpdate(ch, e.malloced, prometheus.GaugeValue, stats, "memstats.Alloc"),
	)

	return err
}

func (e *PromExporter) parseAndUpdate(ch chan<- prometheus.Metric, desc *prometheus.Desc, valueType prometheus.ValueType,
	stats map[string]interface{}, key string) error {
	v, err := parseMetric(stats, key)
	if err != nil {
		return err
	}
	ch <- prometheus.MustNewConstMetric(desc, valueType, v)
	return nil
}

func firstError(errs ...error) error {
	for _, v := range errs {
		if v != nil {
			return v
		}
	}
	return nil
}
