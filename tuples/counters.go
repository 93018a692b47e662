package tuples

// Counters tally what happened to the lines a Mapper has seen. They are for
// operational visibility only and never change control flow.
type Counters struct {
	Lines              int64
	Emitted            int64
	ParseFailures      int64
	ParseRetryFailures int64
	ShortTuples        int64
	LongTuples         int64
	InvalidResources   int64
	NonResourceKeys    int64
	Filtered           int64
	OversizeResources  int64
	OversizeRelations  int64
	// OversizeLines are lines dropped by the reader before reaching a
	// Mapper.
	OversizeLines int64
}

// Add accumulates o into c.
func (c *Counters) Add(o Counters) {
	c.Lines += o.Lines
	c.Emitted += o.Emitted
	c.ParseFailures += o.ParseFailures
	c.ParseRetryFailures += o.ParseRetryFailures
	c.ShortTuples += o.ShortTuples
	c.LongTuples += o.LongTuples
	c.InvalidResources += o.InvalidResources
	c.NonResourceKeys += o.NonResourceKeys
	c.Filtered += o.Filtered
	c.OversizeResources += o.OversizeResources
	c.OversizeRelations += o.OversizeRelations
	c.OversizeLines += o.OversizeLines
}

// Rejections maps each rejection reason to its count.
func (c Counters) Rejections() map[string]int64 {
	return map[string]int64{
		"parse_failure":     c.ParseRetryFailures,
		"short_tuple":       c.ShortTuples,
		"long_tuple":        c.LongTuples,
		"invalid_resource":  c.InvalidResources,
		"non_resource_key":  c.NonResourceKeys,
		"filtered":          c.Filtered,
		"oversize_resource": c.OversizeResources,
		"oversize_relation": c.OversizeRelations,
		"oversize_line":     c.OversizeLines,
	}
}
