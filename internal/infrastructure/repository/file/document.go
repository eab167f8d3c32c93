package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
)

// document is one JSON file that several processes may share, typically the
// API server and a one-shot reconcile run on the same data dir.
//
// Every mutation holds an exclusive lock on a sidecar ".lock" file, decodes
// the current file contents, applies the change to that fresh view and
// writes it back. The in-memory view only moves forward once the write has
// landed, so a failed persist leaves nothing behind that disk lacks.
type document[T any, S any] struct {
	mu       sync.Mutex
	path     string
	lockPath string
	build    func([]T) S
	list     func(context.Context, S) ([]T, error)
	write    func(path string, value any) error

	view  S
	stamp fileStamp
}

type fileStamp struct {
	exists  bool
	size    int64
	modNano int64
}

func openDocument[T any, S any](path string, build func([]T) S, list func(context.Context, S) ([]T, error)) (*document[T, S], error) {
	d := &document[T, S]{
		path:     path,
		lockPath: path + ".lock",
		build:    build,
		list:     list,
		write:    writeJSON,
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	unlock, err := lockFile(d.lockPath, false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	view, stamp, err := d.load()
	if err != nil {
		return nil, err
	}
	d.view, d.stamp = view, stamp
	return d, nil
}

// read returns the current view, reloading it when another writer has
// replaced the file since the last look.
func (d *document[T, S]) read() (S, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	stamp, err := statFile(d.path)
	if err != nil {
		var zero S
		return zero, err
	}
	if stamp == d.stamp {
		return d.view, nil
	}

	unlock, err := lockFile(d.lockPath, false)
	if err != nil {
		var zero S
		return zero, err
	}
	defer unlock()

	view, stamp, err := d.load()
	if err != nil {
		var zero S
		return zero, err
	}
	d.view, d.stamp = view, stamp
	return view, nil
}

// update applies fn to a fresh view under the exclusive lock. fn reports
// whether it wrote anything; only then is the file rewritten.
func (d *document[T, S]) update(ctx context.Context, fn func(S) (bool, error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	unlock, err := lockFile(d.lockPath, true)
	if err != nil {
		return err
	}
	defer unlock()

	fresh, stamp, err := d.load()
	if err != nil {
		return err
	}

	wrote, applyErr := fn(fresh)
	if applyErr != nil || !wrote {
		// Rejected writes leave fresh as it was on disk.
		d.view, d.stamp = fresh, stamp
		return applyErr
	}

	items, err := d.list(ctx, fresh)
	if err != nil {
		return err
	}
	if err := d.write(d.path, items); err != nil {
		return err
	}
	stamp, err = statFile(d.path)
	if err != nil {
		return err
	}
	d.view, d.stamp = fresh, stamp
	return nil
}

func (d *document[T, S]) load() (S, fileStamp, error) {
	var zero S
	stamp, err := statFile(d.path)
	if err != nil {
		return zero, fileStamp{}, err
	}
	var items []T
	if err := readJSON(d.path, &items); err != nil {
		return zero, fileStamp{}, err
	}
	return d.build(items), stamp, nil
}

func statFile(path string) (fileStamp, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fileStamp{}, nil
	}
	if err != nil {
		return fileStamp{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return fileStamp{exists: true, size: info.Size(), modNano: info.ModTime().UnixNano()}, nil
}
