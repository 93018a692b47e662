// Package preprocess runs the whole preprocessing job on one machine: a
// flow-based map phase feeding per-partition sorted shuffles, followed by one
// concurrent reduce per partition writing dictionaries and a by-subject
// store.
package preprocess

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/flowbase/flowbase"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/rdfio/rdfprep/blockoffsets"
	"github.com/rdfio/rdfprep/components"
	"github.com/rdfio/rdfprep/internal/logs"
	"github.com/rdfio/rdfprep/metrics"
	"github.com/rdfio/rdfprep/resources"
	"github.com/rdfio/rdfprep/shuffle"
	"github.com/rdfio/rdfprep/tuples"
)

// PartitionReport summarizes one written partition.
type PartitionReport struct {
	Dir     string
	Offsets *blockoffsets.BlockOffsets
}

// Report summarizes a run.
type Report struct {
	Counters   tuples.Counters
	Partitions []PartitionReport
}

// PartitionDir is the output directory of partition i.
func PartitionDir(outputDir string, i int) string {
	return filepath.Join(outputDir, fmt.Sprintf("part-r-%05d", i))
}

// Run preprocesses cfg.Inputs from inFs into cfg.OutputDir on outFs.
func Run(ctx context.Context, inFs, outFs afero.Fs, cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for i := 0; i < cfg.Partitions; i++ {
		dir := PartitionDir(cfg.OutputDir, i)
		exists, err := afero.Exists(outFs, dir)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, errors.Wrap(resources.ErrOutputExists, dir)
		}
	}

	sorters, err := openSorters(cfg)
	if err != nil {
		return nil, err
	}
	defer closeSorters(sorters)

	counters, err := mapPhase(inFs, cfg, sorters)
	if err != nil {
		return nil, err
	}
	report := &Report{Counters: counters}

	parts, err := reducePhase(ctx, outFs, cfg, sorters)
	if err != nil {
		return nil, err
	}
	report.Partitions = parts

	if cfg.MetricsFile != "" {
		m := metrics.New()
		m.ObserveMapper(counters)
		for i, p := range parts {
			m.ObservePartition(i, p.Offsets)
		}
		if err := m.WriteFile(outFs, cfg.MetricsFile); err != nil {
			return report, errors.Wrap(err, "writing metrics")
		}
	}
	return report, nil
}

func openSorters(cfg Config) ([]*shuffle.Sorter, error) {
	sorters := make([]*shuffle.Sorter, cfg.Partitions)
	for i := range sorters {
		dir := ""
		if cfg.SpillDir != "" {
			dir = filepath.Join(cfg.SpillDir, fmt.Sprintf("shuffle-%05d", i))
		}
		s, err := shuffle.NewSorter(dir)
		if err != nil {
			closeSorters(sorters[:i])
			return nil, err
		}
		sorters[i] = s
	}
	return sorters, nil
}

func closeSorters(sorters []*shuffle.Sorter) {
	for _, s := range sorters {
		if err := s.Close(); err != nil {
			logs.Warningf("Closing shuffle store: %v\n", err)
		}
	}
}

// mapPhase reads, parses and partitions every input line into the sorters.
func mapPhase(inFs afero.Fs, cfg Config, sorters []*shuffle.Sorter) (tuples.Counters, error) {
	net := flowbase.NewNet()

	fileReader := components.NewFileReader(inFs)
	net.AddProcess(fileReader)

	tupleMapper, err := components.NewTupleMapper(shuffleLimits(cfg.Filter))
	if err != nil {
		return tuples.Counters{}, err
	}
	net.AddProcess(tupleMapper)

	partitioner := components.NewPartitioner(len(sorters))
	net.AddProcess(partitioner)

	doneSink := components.NewDoneSink()
	collectors := make([]*components.ShuffleCollector, len(sorters))
	for i, s := range sorters {
		collectors[i] = components.NewShuffleCollector(fmt.Sprintf("partition %d", i), s)
		net.AddProcess(collectors[i])
		collectors[i].In = partitioner.Out[i]
		doneSink.In = append(doneSink.In, collectors[i].OutDone)
	}
	net.AddProcess(doneSink)

	// Connect workflow dependency network
	tupleMapper.In = fileReader.OutLine
	partitioner.In = tupleMapper.Out

	go func() {
		defer close(fileReader.InFileName)
		for _, fileName := range cfg.Inputs {
			fileReader.InFileName <- fileName
		}
	}()

	net.Run()

	var result *multierror.Error
	if err := fileReader.Err(); err != nil {
		result = multierror.Append(result, err)
	}
	for _, c := range collectors {
		if err := c.Err(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	counters := tupleMapper.Counters()
	counters.OversizeLines = fileReader.OversizeLines()
	logs.Infof("Mapped %d lines into %d tuples\n", counters.Lines, counters.Emitted)
	return counters, result.ErrorOrNil()
}

// shuffleLimits caps the mapper limits at what a Sorter can store, so
// oversize tuples are rejected and counted instead of failing the shuffle.
func shuffleLimits(cfg tuples.Config) tuples.Config {
	if cfg.MaxResourceLength <= 0 || cfg.MaxResourceLength > shuffle.MaxKeyLength {
		cfg.MaxResourceLength = shuffle.MaxKeyLength
	}
	if cfg.MaxRelationLength <= 0 || cfg.MaxRelationLength > shuffle.MaxRelationLength {
		cfg.MaxRelationLength = shuffle.MaxRelationLength
	}
	return cfg
}

// reducePhase writes every partition concurrently.
func reducePhase(ctx context.Context, outFs afero.Fs, cfg Config, sorters []*shuffle.Sorter) ([]PartitionReport, error) {
	parts := make([]PartitionReport, len(sorters))
	g, ctx := errgroup.WithContext(ctx)
	for i, s := range sorters {
		i, s := i, s
		g.Go(func() error {
			dir := PartitionDir(cfg.OutputDir, i)
			offsets, err := reducePartition(ctx, outFs, dir, cfg.Output, s)
			if err != nil {
				return errors.Wrapf(err, "partition %d", i)
			}
			parts[i] = PartitionReport{Dir: dir, Offsets: offsets}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}

func reducePartition(ctx context.Context, outFs afero.Fs, dir string, opts resources.Options, s *shuffle.Sorter) (*blockoffsets.BlockOffsets, error) {
	w, err := resources.NewResourceRecordWriter(outFs, dir, opts)
	if err != nil {
		return nil, err
	}
	if err := shuffle.ReduceAll(ctx, s, shuffle.NewReducer(w)); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return w.Offsets(), nil
}
