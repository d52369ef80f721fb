package replayclient

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nmxmxh/fossilize/internal/model"
)

// Collector exposes a running Client's progress counters as Prometheus
// gauges, so an embedder that already scrapes Prometheus gets
// fossilize's progress for free without polling PollProgress itself
// (spec §9 domain stack wiring for prometheus/client_golang).
type Collector struct {
	client *Client

	pipelineGauge *prometheus.GaugeVec
	moduleGauge   *prometheus.GaugeVec
}

// NewCollector wraps client for Prometheus registration.
func NewCollector(client *Client) *Collector {
	return &Collector{
		client: client,
		pipelineGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fossilize",
			Name:      "pipeline_counter",
			Help:      "Per-pipeline-kind replay counters reported by the orchestrator's SharedControlBlock.",
		}, []string{"tag", "field"}),
		moduleGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fossilize",
			Name:      "module_counter",
			Help:      "Shader module replay counters reported by the orchestrator's SharedControlBlock.",
		}, []string{"field"}),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.pipelineGauge.Describe(ch)
	c.moduleGauge.Describe(ch)
}

// Collect implements prometheus.Collector, reading the latest
// SharedControlBlock snapshot on every scrape.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	progress, _ := c.client.PollProgress()
	for _, tag := range model.PipelineTags {
		c.pipelineGauge.WithLabelValues(tag.String(), "successes").Set(float64(progress.Successes[tag]))
		c.pipelineGauge.WithLabelValues(tag.String(), "skips").Set(float64(progress.Skips[tag]))
		c.pipelineGauge.WithLabelValues(tag.String(), "caches").Set(float64(progress.Caches[tag]))
		c.pipelineGauge.WithLabelValues(tag.String(), "parses").Set(float64(progress.Parses[tag]))
		c.pipelineGauge.WithLabelValues(tag.String(), "failures").Set(float64(progress.Failures[tag]))
	}
	c.moduleGauge.WithLabelValues("total").Set(float64(progress.ModulesTotal))
	c.moduleGauge.WithLabelValues("completed").Set(float64(progress.ModulesCompleted))
	c.moduleGauge.WithLabelValues("banned").Set(float64(progress.ModulesBanned))
	c.moduleGauge.WithLabelValues("validation_failed").Set(float64(progress.ModulesValidationFailed))

	c.pipelineGauge.Collect(ch)
	c.moduleGauge.Collect(ch)
}
