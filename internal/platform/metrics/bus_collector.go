package metrics

import (
	"github.com/phrazzld/eventhost/internal/hosted"
	"github.com/prometheus/client_golang/prometheus"
)

var runnerStates = []hosted.State{
	hosted.StateCreated,
	hosted.StateRunning,
	hosted.StateStopping,
	hosted.StateStopped,
}

// busCollector reads a fresh Stats snapshot on every scrape.
type busCollector struct {
	stats  StatsSource
	runner StateSource

	published   *prometheus.Desc
	delivered   *prometheus.Desc
	failed      *prometheus.Desc
	rejected    *prometheus.Desc
	unrouted    *prometheus.Desc
	queued      *prometheus.Desc
	subscribers *prometheus.Desc
	state       *prometheus.Desc
}

func newBusCollector(stats StatsSource, runner StateSource) *busCollector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "bus", name), help, labels, nil)
	}
	return &busCollector{
		stats:       stats,
		runner:      runner,
		published:   desc("events_published_total", "Events accepted by the bus."),
		delivered:   desc("events_delivered_total", "Events dispatched with every handler succeeding."),
		failed:      desc("events_failed_total", "Events where at least one handler failed."),
		rejected:    desc("events_rejected_total", "Events refused because the queue was full."),
		unrouted:    desc("events_unrouted_total", "Events that matched no subscription."),
		queued:      desc("queue_depth", "Events waiting for dispatch."),
		subscribers: desc("subscribers", "Active subscriptions."),
		state: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "runner", "state"),
			"Hosted runner state; 1 for the current state.",
			[]string{"runner", "state"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *busCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.published
	ch <- c.delivered
	ch <- c.failed
	ch <- c.rejected
	ch <- c.unrouted
	ch <- c.queued
	ch <- c.subscribers
	ch <- c.state
}

// Collect implements prometheus.Collector.
func (c *busCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats.Stats()
	ch <- prometheus.MustNewConstMetric(c.published, prometheus.CounterValue, float64(s.Published))
	ch <- prometheus.MustNewConstMetric(c.delivered, prometheus.CounterValue, float64(s.Delivered))
	ch <- prometheus.MustNewConstMetric(c.failed, prometheus.CounterValue, float64(s.Failed))
	ch <- prometheus.MustNewConstMetric(c.rejected, prometheus.CounterValue, float64(s.Rejected))
	ch <- prometheus.MustNewConstMetric(c.unrouted, prometheus.CounterValue, float64(s.Unrouted))
	ch <- prometheus.MustNewConstMetric(c.queued, prometheus.GaugeValue, float64(s.Queued))
	ch <- prometheus.MustNewConstMetric(c.subscribers, prometheus.GaugeValue, float64(s.Subscribers))

	if c.runner == nil {
		return
	}
	current := c.runner.State()
	for _, st := range runnerStates {
		v := 0.0
		if st == current {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, v, c.runner.Name(), st.String())
	}
}
