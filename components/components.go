// Package components holds the flow-based processes of the map phase. Each
// process has channel ports as fields and a Run method, which does not spawn
// its own go-routine.
package components

// BUFSIZE is the buffer size of every channel port.
const BUFSIZE = 128

// DoneSignal is sent on OutDone ports when a process has finished.
type DoneSignal struct{}

// errHolder keeps the first error a process ran into.
type errHolder struct {
	err error
}

func (h *errHolder) fail(err error) {
	if h.err == nil {
		h.err = err
	}
}

// Err returns the first error the process ran into, if any. Only call it
// after Run has returned.
func (h *errHolder) Err() error {
	return h.err
}
