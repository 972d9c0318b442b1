package main

import (
	"context"
	"io"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/ardnew/devcore/pkg"
)

// follower reads a growing file. At end of file it blocks until the file
// is written again, and reports io.EOF once ctx is done or the file is
// removed.
type follower struct {
	ctx context.Context
	f   *os.File
	w   *fsnotify.Watcher
}

func follow(ctx context.Context, path string) (*follower, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		f.Close()
		return nil, err
	}
	return &follower{ctx: ctx, f: f, w: w}, nil
}

func (r *follower) Read(p []byte) (int, error) {
	for {
		n, err := r.f.Read(p)
		if n > 0 || err != io.EOF {
			return n, err
		}
		if !r.wait() {
			return 0, io.EOF
		}
	}
}

// wait blocks until the file may have grown.
func (r *follower) wait() bool {
	for {
		select {
		case <-r.ctx.Done():
			return false
		case ev, ok := <-r.w.Events:
			if !ok {
				return false
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				pkg.LogInfo(component, "followed file went away", "path", ev.Name)
				return false
			}
			if ev.Has(fsnotify.Write) {
				return true
			}
		case err, ok := <-r.w.Errors:
			if !ok {
				return false
			}
			pkg.LogWarn(component, "watch error", "error", err)
		}
	}
}

func (r *follower) Close() error {
	werr := r.w.Close()
	if err := r.f.Close(); err != nil {
		return err
	}
	return werr
}
