// Package trace records kernel events into per-CPU rings and ships them to
// a [Sink].
//
// Every record is a packed 16-byte [Header] followed by at most
// [MaxDataSize] bytes of payload. Three kinds exist: strings, kernel events
// (context switch, preemption, timer tick and call, interrupt entry and
// exit) and opaque binary blobs.
//
//	log, err := trace.New(trace.Options{CPU: cpu, Sink: sink})
//	mgr.SetTracer(log)          // interrupt entry and exit
//	log.ContextSwitch(prev, next)
//	go log.Run(ctx)             // periodic flush
//
// [Decode] and [Print] read the flushed stream back; cmd/tracedump uses
// them. [Tracepoints] is an independent registry of named probe lists.
package trace
