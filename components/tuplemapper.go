package components

import (
	"github.com/rdfio/rdfprep/shuffle"
	"github.com/rdfio/rdfprep/tuples"
)

// TupleMapper parses the lines it receives on In and sends the resulting
// role emissions and subject relations on Out. Rejected lines only show up
// in Counters.
type TupleMapper struct {
	In     chan string
	Out    chan shuffle.Emission
	mapper *tuples.Mapper
}

// NewTupleMapper returns a TupleMapper filtering with cfg.
func NewTupleMapper(cfg tuples.Config) (*TupleMapper, error) {
	m, err := tuples.NewMapper(cfg)
	if err != nil {
		return nil, err
	}
	return &TupleMapper{
		In:     make(chan string, BUFSIZE),
		Out:    make(chan shuffle.Emission, BUFSIZE),
		mapper: m,
	}, nil
}

// Run runs the TupleMapper process.
func (p *TupleMapper) Run() {
	defer close(p.Out)
	for line := range p.In {
		res, ok := p.mapper.Map(line)
		if !ok {
			continue
		}
		for _, e := range shuffle.FromResult(res) {
			p.Out <- e
		}
	}
}

// Counters returns the mapper counters. Only call it after Run has returned.
func (p *TupleMapper) Counters() tuples.Counters {
	return p.mapper.Counters()
}
