// Package metrics exposes the preprocessing counters as prometheus metrics.
package metrics

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/afero"

	"github.com/rdfio/rdfprep/blockoffsets"
	"github.com/rdfio/rdfprep/tuples"
)

const namespace = "rdfprep"

// Metrics owns a registry with every counter of a preprocessing run.
type Metrics struct {
	registry   *prometheus.Registry
	lines      prometheus.Counter
	emitted    prometheus.Counter
	parseFails prometheus.Counter
	rejected   *prometheus.CounterVec
	documents  *prometheus.GaugeVec
	resources  *prometheus.GaugeVec
	boundaries *prometheus.GaugeVec
	bits       *prometheus.GaugeVec
}

// New returns Metrics registered on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		lines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_total",
			Help:      "Non-empty input lines seen by the tuple mapper.",
		}),
		emitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tuples_emitted_total",
			Help:      "Tuples that passed parsing, filtering and validation.",
		}),
		parseFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_failures_total",
			Help:      "Lines whose first parse failed, whether or not the retry succeeded.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tuples_rejected_total",
			Help:      "Lines skipped, by reason.",
		}, []string{"reason"}),
		documents: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "documents",
			Help:      "Subject records in the by-subject store.",
		}, []string{"partition"}),
		resources: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resources",
			Help:      "Distinct resources in the all dictionary.",
		}, []string{"partition"}),
		boundaries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "block_boundaries",
			Help:      "Entries in the block offsets index.",
		}, []string{"partition"}),
		bits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_bits",
			Help:      "Compressed size of the by-subject store in bits.",
		}, []string{"partition"}),
	}
	m.registry.MustRegister(m.lines, m.emitted, m.parseFails, m.rejected,
		m.documents, m.resources, m.boundaries, m.bits)
	return m
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveMapper adds the counters of a finished mapper.
func (m *Metrics) ObserveMapper(c tuples.Counters) {
	m.lines.Add(float64(c.Lines))
	m.emitted.Add(float64(c.Emitted))
	m.parseFails.Add(float64(c.ParseFailures))
	for reason, n := range c.Rejections() {
		m.rejected.WithLabelValues(reason).Add(float64(n))
	}
}

// ObservePartition records the index of a closed partition.
func (m *Metrics) ObservePartition(partition int, o *blockoffsets.BlockOffsets) {
	label := strconv.Itoa(partition)
	m.documents.WithLabelValues(label).Set(float64(o.DocCount))
	m.resources.WithLabelValues(label).Set(float64(o.AllCount))
	m.boundaries.WithLabelValues(label).Set(float64(len(o.Boundaries)))
	m.bits.WithLabelValues(label).Set(float64(o.TotalBits))
}

// WriteTo writes every metric in the text exposition format.
func (m *Metrics) WriteTo(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return errors.Wrap(err, "gathering metrics")
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.Wrapf(err, "writing %s", mf.GetName())
		}
	}
	return nil
}

// WriteFile writes the metrics to path on fs for a node exporter textfile
// collector to pick up. The file is written under a temporary name and then
// renamed, so the collector never sees it half written.
func (m *Metrics) WriteFile(fs afero.Fs, path string) error {
	var buf bytes.Buffer
	if err := m.WriteTo(&buf); err != nil {
		return err
	}
	tmp := fmt.Sprintf("%s.%d.tmp", path, os.Getpid())
	if err := afero.WriteFile(fs, tmp, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "writing metrics file")
	}
	if err := fs.Rename(tmp, path); err != nil {
		fs.Remove(tmp)
		return errors.Wrap(err, "renaming metrics file")
	}
	return nil
}
