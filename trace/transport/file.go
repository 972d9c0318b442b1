package transport

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"

	"github.com/ardnew/devcore/pkg"
)

// FileSink writes a framed trace stream to a file or named pipe.
type FileSink struct {
	*Writer
	f *os.File
}

// CreateFile truncates or creates the regular file at path.
func CreateFile(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	pkg.LogInfo(pkg.ComponentTransport, "file sink", "path", path)
	return &FileSink{Writer: NewWriter(f), f: f}, nil
}

// CreateFIFO replaces whatever is at path with a named pipe and opens it
// for writing. The pipe is opened read-write so neither side has to wait
// for the other to appear.
func CreateFIFO(path string) (*FileSink, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("remove %s: %w", path, err)
	}
	if err := unix.Mkfifo(path, 0o666); err != nil {
		return nil, fmt.Errorf("mkfifo %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	pkg.LogInfo(pkg.ComponentTransport, "fifo sink", "path", path)
	return &FileSink{Writer: NewWriter(f), f: f}, nil
}

// Name returns the path of the underlying file.
func (s *FileSink) Name() string { return s.f.Name() }

// Close closes the file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
