// rdfprep prepares N-Quad dumps for indexing. The preprocess command writes,
// per partition, resource dictionaries and a block compressed by-subject
// store with a block offsets index. The lookup and offsets commands read that
// output back.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/flowbase/flowbase"
	"github.com/knakk/rdf"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"github.com/rdfio/rdfprep/bysubject"
	"github.com/rdfio/rdfprep/preprocess"
	"github.com/rdfio/rdfprep/resources"
	"github.com/rdfio/rdfprep/tuples"
)

func main() {
	flowbase.InitLogInfo()

	app := newApp(afero.NewOsFs(), os.Stdout)
	if err := app.Run(os.Args); err != nil {
		flowbase.Warning.Println(err)
		os.Exit(1)
	}
}

func newApp(fs afero.Fs, out io.Writer) *cli.App {
	return &cli.App{
		Name:      "rdfprep",
		Usage:     "preprocess RDF tuples into resource dictionaries and a by-subject store",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "log every rejected line",
				EnvVars: []string{"RDFPREP_DEBUG"},
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				flowbase.InitLogDebug()
			}
			return nil
		},
		Commands: []*cli.Command{
			preprocessCommand(fs, out),
			lookupCommand(fs, out),
			offsetsCommand(fs, out),
		},
	}
}

func preprocessCommand(fs afero.Fs, out io.Writer) *cli.Command {
	defaults := preprocess.DefaultConfig()
	return &cli.Command{
		Name:  "preprocess",
		Usage: "map, shuffle and write one or more N-Quad files",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "in",
				Aliases:  []string{"i"},
				Usage:    "input N-Quad file, optionally gzipped (repeatable)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "out",
				Aliases:  []string{"o"},
				Usage:    "output directory",
				EnvVars:  []string{"RDFPREP_OUT"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "spill-dir",
				Usage:   "directory for the on-disk shuffle; empty keeps it in memory",
				EnvVars: []string{"RDFPREP_SPILL_DIR"},
			},
			&cli.IntFlag{
				Name:    "partitions",
				Aliases: []string{"p"},
				Value:   defaults.Partitions,
				Usage:   "number of output partitions",
				EnvVars: []string{"RDFPREP_PARTITIONS"},
			},
			&cli.StringFlag{Name: "subject-regex", Usage: "keep tuples whose subject matches"},
			&cli.StringFlag{Name: "predicate-regex", Usage: "keep tuples whose predicate matches"},
			&cli.StringFlag{Name: "object-regex", Usage: "keep tuples whose object matches"},
			&cli.StringFlag{Name: "context-regex", Usage: "keep tuples whose context matches"},
			&cli.StringFlag{
				Name:  "conjunction",
				Value: "or",
				Usage: "how several filters combine: and, or",
			},
			&cli.BoolFlag{
				Name:  "no-contexts",
				Usage: "ignore the fourth node of each tuple",
			},
			&cli.StringFlag{
				Name:    "codec",
				Value:   defaults.Output.Codec.String(),
				Usage:   "dictionary compression: none, gzip, zstd",
				EnvVars: []string{"RDFPREP_CODEC"},
			},
			&cli.IntFlag{
				Name:  "block-size",
				Value: defaults.Output.BlockSize,
				Usage: "uncompressed bytes per by-subject block",
			},
			&cli.StringFlag{
				Name:    "metrics-file",
				Usage:   "write run counters in prometheus text format to this file",
				EnvVars: []string{"RDFPREP_METRICS_FILE"},
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := configFromFlags(c)
			if err != nil {
				return err
			}
			report, err := preprocess.Run(c.Context, fs, fs, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "lines: %d, emitted: %d\n", report.Counters.Lines, report.Counters.Emitted)
			for reason, n := range report.Counters.Rejections() {
				if n > 0 {
					fmt.Fprintf(out, "rejected (%s): %d\n", reason, n)
				}
			}
			for _, p := range report.Partitions {
				fmt.Fprintf(out, "%s: %d documents, %d resources\n", p.Dir, p.Offsets.DocCount, p.Offsets.AllCount)
			}
			return nil
		},
	}
}

func configFromFlags(c *cli.Context) (preprocess.Config, error) {
	cfg := preprocess.DefaultConfig()
	cfg.Inputs = c.StringSlice("in")
	cfg.OutputDir = c.String("out")
	cfg.SpillDir = c.String("spill-dir")
	cfg.Partitions = c.Int("partitions")
	cfg.MetricsFile = c.String("metrics-file")

	conj, err := tuples.ParseConjunction(c.String("conjunction"))
	if err != nil {
		return cfg, err
	}
	cfg.Filter = tuples.Config{
		SubjectRegex:    c.String("subject-regex"),
		PredicateRegex:  c.String("predicate-regex"),
		ObjectRegex:     c.String("object-regex"),
		ContextRegex:    c.String("context-regex"),
		Conjunction:     conj,
		IncludeContexts: !c.Bool("no-contexts"),
	}

	codec, err := resources.ParseCodec(c.String("codec"))
	if err != nil {
		return cfg, err
	}
	cfg.Output.Codec = codec
	cfg.Output.BlockSize = c.Int("block-size")
	return cfg, cfg.Validate()
}

func lookupCommand(fs afero.Fs, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "lookup",
		Usage: "print the record of one document from a partition",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Usage: "partition directory", Required: true},
			&cli.Int64Flag{Name: "doc", Usage: "document id", Required: true},
			&cli.BoolFlag{Name: "quads", Usage: "print the record as N-Quads"},
		},
		Action: func(c *cli.Context) error {
			r, err := bysubject.OpenReader(fs, c.String("dir"))
			if err != nil {
				return err
			}
			defer r.Close()

			rec, err := r.Get(c.Int64("doc"))
			if err != nil {
				return err
			}
			if !c.Bool("quads") {
				fmt.Fprintln(out, rec.String())
				return nil
			}
			quads, err := rec.Quads()
			if err != nil {
				return err
			}
			for _, q := range quads {
				if q.Ctx == nil {
					fmt.Fprintln(out, q.Triple.Serialize(rdf.NTriples))
					continue
				}
				fmt.Fprintln(out, q.Serialize(rdf.NQuads))
			}
			return nil
		},
	}
}

func offsetsCommand(fs afero.Fs, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "offsets",
		Usage: "print the block offsets index of a partition",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Usage: "partition directory", Required: true},
		},
		Action: func(c *cli.Context) error {
			r, err := bysubject.OpenReader(fs, c.String("dir"))
			if err != nil {
				return err
			}
			defer r.Close()
			r.Offsets().Print(out)
			return nil
		},
	}
}
