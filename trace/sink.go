package trace

//go:generate mockgen -destination=tracemock/sink.go -package=tracemock . Sink

// Sink receives flushed trace data. Each call carries the whole content of
// one CPU ring: a sequence of complete records. p is only valid for the
// duration of the call. Sinks used with a flush parallelism above one must
// be safe for concurrent use.
type Sink interface {
	WriteBuf(channel uint32, p []byte) error
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(channel uint32, p []byte) error

// WriteBuf implements [Sink].
func (f SinkFunc) WriteBuf(channel uint32, p []byte) error { return f(channel, p) }
