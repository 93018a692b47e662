package components

import (
	"github.com/rdfio/rdfprep/internal/logs"
	"github.com/rdfio/rdfprep/shuffle"
)

// ShuffleCollector adds every emission it receives to a Sorter, and signals on
// OutDone when In is closed. After a failed Add it keeps draining In so the
// upstream processes can finish.
type ShuffleCollector struct {
	errHolder
	In      chan shuffle.Emission
	OutDone chan DoneSignal
	sorter  *shuffle.Sorter
	name    string
}

// NewShuffleCollector returns a ShuffleCollector filling sorter.
func NewShuffleCollector(name string, sorter *shuffle.Sorter) *ShuffleCollector {
	return &ShuffleCollector{
		In:      make(chan shuffle.Emission, BUFSIZE),
		OutDone: make(chan DoneSignal, 1),
		sorter:  sorter,
		name:    name,
	}
}

// Run runs the ShuffleCollector process.
func (p *ShuffleCollector) Run() {
	defer close(p.OutDone)

	for e := range p.In {
		if p.err != nil {
			continue
		}
		if err := p.sorter.Add(e); err != nil {
			p.fail(err)
		}
	}

	logs.Debugf("Collected %d emissions in %s\n", p.sorter.Len(), p.name)
	p.OutDone <- DoneSignal{}
}

// DoneSink waits for a done signal on each of its In ports. Added last to a
// pipeline runner it keeps Run from returning before all collectors finished.
type DoneSink struct {
	In []chan DoneSignal
}

// NewDoneSink returns an empty DoneSink; connect ports by appending to In.
func NewDoneSink() *DoneSink {
	return &DoneSink{}
}

// Run runs the DoneSink process.
func (p *DoneSink) Run() {
	for _, inPort := range p.In {
		for range inPort {
		}
	}
}
