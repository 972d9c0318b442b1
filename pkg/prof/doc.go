// Package prof wires runtime profiling into the devcore commands.
//
// Profiling is compiled in only with the "profile" build tag:
//
//	go build -tags profile ./cmd/devcore
//
// Without the tag every function is a no-op, so commands keep their
// profiling flags unconditionally.
//
//	stop, err := prof.Start(prof.Options{CPUProfile: "cpu.prof"})
//	if err != nil {
//	    return err
//	}
//	defer stop()
//
// [Serve] exposes the net/http/pprof handlers for live inspection of a
// running flush loop or receiver.
package prof
