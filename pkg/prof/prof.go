//go:build profile

package prof

import (
	"errors"
	"io"
	"net/http"
	"net/http/pprof"
	"os"
	"runtime"
	rpprof "runtime/pprof"
	"sync"
)

var (
	cpuMu     sync.Mutex
	cpuFile   *os.File
	cpuActive bool
)

// Enabled reports whether profiling is compiled in.
const Enabled = true

// Start applies opts and returns a function that stops CPU profiling and
// writes the heap profile.
func Start(opts Options) (stop func() error, err error) {
	runtime.SetBlockProfileRate(opts.BlockRate)
	runtime.SetMutexProfileFraction(opts.MutexFraction)
	if opts.CPUProfile != "" {
		if err := StartCPU(opts.CPUProfile); err != nil {
			return nil, err
		}
	}
	return func() error {
		StopCPU()
		if opts.HeapProfile == "" {
			return nil
		}
		runtime.GC()
		return Write(ProfileHeap, opts.HeapProfile)
	}, nil
}

// StartCPU starts CPU profiling into the file at path.
func StartCPU(path string) error {
	cpuMu.Lock()
	defer cpuMu.Unlock()
	if cpuActive {
		return ErrCPUProfileActive
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := rpprof.StartCPUProfile(f); err != nil {
		f.Close()
		return err
	}
	cpuFile, cpuActive = f, true
	return nil
}

// StopCPU stops CPU profiling. It does nothing when profiling is off.
func StopCPU() {
	cpuMu.Lock()
	defer cpuMu.Unlock()
	if !cpuActive {
		return
	}
	rpprof.StopCPUProfile()
	cpuFile.Close()
	cpuFile, cpuActive = nil, false
}

// CPUActive reports whether CPU profiling is running.
func CPUActive() bool {
	cpuMu.Lock()
	defer cpuMu.Unlock()
	return cpuActive
}

// Write writes a snapshot of profile p to the file at path.
func Write(p Profile, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return errors.Join(WriteTo(p, f, 0), f.Close())
}

// WriteTo writes a snapshot of profile p to w. Debug level 0 is the binary
// format read by go tool pprof, 1 is text.
func WriteTo(p Profile, w io.Writer, debug int) error {
	if p == ProfileCPU {
		return ErrInvalidProfile
	}
	prof := rpprof.Lookup(string(p))
	if prof == nil {
		return ErrInvalidProfile
	}
	return prof.WriteTo(w, debug)
}

// Serve exposes the pprof handlers under /debug/pprof/ on addr. It blocks
// like http.ListenAndServe.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return http.ListenAndServe(addr, mux)
}
