package resources

import "fmt"

// Output is one of the fixed set of dictionary files a ResourceRecordWriter
// owns.
type Output int

const (
	All Output = iota
	Context
	Object
	Predicate
	Subject
	numOutputs
)

// Outputs lists every Output in file order.
var Outputs = [numOutputs]Output{All, Context, Object, Predicate, Subject}

var outputFiles = [numOutputs]struct {
	name          string
	includeCounts bool
}{
	All:       {"all", false},
	Context:   {"contexts", false},
	Object:    {"objects", false},
	Predicate: {"predicates", true},
	Subject:   {"subjects", false},
}

// FileName is the base name of the dictionary file for o.
func (o Output) FileName() string {
	return outputFiles[o].name
}

// IncludeCounts reports whether lines of this dictionary are prefixed with
// an occurrence count.
func (o Output) IncludeCounts() bool {
	return outputFiles[o].includeCounts
}

func (o Output) valid() bool {
	return o >= 0 && o < numOutputs
}

func (o Output) String() string {
	switch o {
	case All:
		return "ALL"
	case Context:
		return "CONTEXT"
	case Object:
		return "OBJECT"
	case Predicate:
		return "PREDICATE"
	case Subject:
		return "SUBJECT"
	}
	return fmt.Sprintf("Output(%d)", int(o))
}

// OutputCount routes a resource key to the dictionary of Output, with the
// number of times it was seen there.
type OutputCount struct {
	Output Output
	Count  int
}

func (c OutputCount) String() string {
	return fmt.Sprintf("%s(%d)", c.Output, c.Count)
}
