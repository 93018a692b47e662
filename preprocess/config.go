package preprocess

import (
	"github.com/pkg/errors"

	"github.com/rdfio/rdfprep/resources"
	"github.com/rdfio/rdfprep/tuples"
)

// Config describes one preprocessing run.
type Config struct {
	// Inputs are N-Quad files, optionally gzipped.
	Inputs []string
	// OutputDir receives one part-r-NNNNN directory per partition.
	OutputDir string
	// SpillDir is where the shuffle keeps its sorted runs. Empty keeps them
	// in memory.
	SpillDir string
	// Partitions is the number of writers running side by side.
	Partitions int
	// Filter configures the tuple mapper.
	Filter tuples.Config
	// Output configures every partition writer.
	Output resources.Options
	// MetricsFile, if set, receives the run's counters in prometheus text
	// format.
	MetricsFile string
}

// DefaultConfig returns a single partition, in-memory configuration that
// includes contexts.
func DefaultConfig() Config {
	return Config{
		Partitions: 1,
		Filter:     tuples.Config{IncludeContexts: true},
		Output:     resources.DefaultOptions(),
	}
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	if len(c.Inputs) == 0 {
		return errors.New("no input files given")
	}
	if c.OutputDir == "" {
		return errors.New("no output directory given")
	}
	if c.Partitions < 1 {
		return errors.Errorf("partitions must be at least 1, got %d", c.Partitions)
	}
	if c.Output.BlockSize < 0 {
		return errors.Errorf("block size must not be negative, got %d", c.Output.BlockSize)
	}
	return nil
}
