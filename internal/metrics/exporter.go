package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
)

const defaultMetricPrefix = "propview_gateway"

// PrometheusExporter renders a Metrics snapshot in the Prometheus text
// exposition format.
type PrometheusExporter struct {
	metrics *Metrics
	prefix  string
}

// NewPrometheusExporter creates an exporter for m.
func NewPrometheusExporter(m *Metrics) *PrometheusExporter {
	return &PrometheusExporter{metrics: m, prefix: defaultMetricPrefix}
}

// Export returns the exposition text.
func (p *PrometheusExporter) Export() string {
	s := p.metrics.GetSnapshot()

	var buf bytes.Buffer

	p.header(&buf, "requests_total", "Total number of backend requests", "counter")
	fmt.Fprintf(&buf, "%s_requests_total %d\n\n", p.prefix, s.Requests)

	outcomes := make([]string, 0, len(s.Outcomes))
	for o := range s.Outcomes {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)
	p.header(&buf, "outcomes_total", "Backend requests by outcome", "counter")
	for _, o := range outcomes {
		fmt.Fprintf(&buf, "%s_outcomes_total{outcome=%q} %d\n", p.prefix, o, s.Outcomes[Outcome(o)])
	}
	buf.WriteString("\n")

	p.header(&buf, "endpoint_requests_total", "Backend requests by endpoint", "counter")
	for _, e := range s.Endpoints {
		fmt.Fprintf(&buf, "%s_endpoint_requests_total{endpoint=%q} %d\n", p.prefix, e.Endpoint, e.Count)
	}
	buf.WriteString("\n")

	p.header(&buf, "latency_avg_seconds", "Average backend latency", "gauge")
	fmt.Fprintf(&buf, "%s_latency_avg_seconds %s\n\n", p.prefix, strconv.FormatFloat(s.AverageLatency.Seconds(), 'g', -1, 64))

	if h := s.Latency; h != nil {
		p.header(&buf, "latency_seconds", "Backend latency histogram", "histogram")
		var cumulative uint64
		for i, c := range h.Counts {
			cumulative += c
			fmt.Fprintf(&buf, "%s_latency_seconds_bucket{le=\"%s\"} %d\n", p.prefix, strconv.FormatFloat(h.Bounds[i], 'g', -1, 64), cumulative)
		}
		fmt.Fprintf(&buf, "%s_latency_seconds_bucket{le=\"+Inf\"} %d\n", p.prefix, h.Count)
		fmt.Fprintf(&buf, "%s_latency_seconds_sum %s\n", p.prefix, strconv.FormatFloat(h.Sum, 'g', -1, 64))
		fmt.Fprintf(&buf, "%s_latency_seconds_count %d\n\n", p.prefix, h.Count)
	}

	return buf.String()
}

func (p *PrometheusExporter) header(buf *bytes.Buffer, name, help, kind string) {
	fmt.Fprintf(buf, "# HELP %s_%s %s\n", p.prefix, name, help)
	fmt.Fprintf(buf, "# TYPE %s_%s %s\n", p.prefix, name, kind)
}

// ServeHTTP implements http.Handler.
func (p *PrometheusExporter) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	_, _ = w.Write([]byte(p.Export()))
}
