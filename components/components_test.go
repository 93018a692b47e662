package components

import (
	"github.com/flowbase/flowbase"
)

var (
	_ flowbase.Process = (*FileReader)(nil)
	_ flowbase.Process = (*TupleMapper)(nil)
	_ flowbase.Process = (*Partitioner)(nil)
	_ flowbase.Process = (*ShuffleCollector)(nil)
	_ flowbase.Process = (*DoneSink)(nil)
)
