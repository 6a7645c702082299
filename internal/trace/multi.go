package trace

// TeeTracer streams every event and keeps the tail in a ring as well, so a
// failing command can repeat its last events on stderr even when the stream
// goes to a file.
type TeeTracer struct {
	stream *StreamTracer
	ring   *RingTracer
}

func NewTeeTracer(stream *StreamTracer, ring *RingTracer) *TeeTracer {
	return &TeeTracer{stream: stream, ring: ring}
}

func (t *TeeTracer) Emit(ev *Event) {
	t.stream.Emit(ev)
	t.ring.Emit(ev)
}

// Flush and Close only reach the stream; the ring holds nothing to release.
func (t *TeeTracer) Flush() error { return t.stream.Flush() }
func (t *TeeTracer) Close() error { return t.stream.Close() }

func (t *TeeTracer) Level() Level  { return t.stream.Level() }
func (t *TeeTracer) Enabled() bool { return t.stream.Enabled() }
