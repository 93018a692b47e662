package components

import (
	"github.com/rdfio/rdfprep/shuffle"
)

// Partitioner fans emissions out over its Out ports by hashing their key, so
// every emission for a key ends up in the same partition.
type Partitioner struct {
	In  chan shuffle.Emission
	Out []chan shuffle.Emission
}

// NewPartitioner creates a Partitioner with n out ports.
func NewPartitioner(n int) *Partitioner {
	if n < 1 {
		n = 1
	}
	p := &Partitioner{
		In:  make(chan shuffle.Emission, BUFSIZE),
		Out: make([]chan shuffle.Emission, n),
	}
	for i := range p.Out {
		p.Out[i] = make(chan shuffle.Emission, BUFSIZE)
	}
	return p
}

// Run runs the Partitioner process.
func (p *Partitioner) Run() {
	for _, outPort := range p.Out {
		defer close(outPort)
	}

	for e := range p.In {
		p.Out[shuffle.Partition(e.Key, len(p.Out))] <- e
	}
}
