package gen

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/dave/jennifer/jen"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"
)

// Writer formats generated files and writes them to a directory with a
// bounded number of workers. Files whose content did not change are left
// untouched.
type Writer struct {
	dir     string
	workers int

	mu      sync.Mutex
	metrics WriterMetrics
}

// WriterMetrics reports what a Writer did.
type WriterMetrics struct {
	// Written lists the files that were created or rewritten, sorted.
	Written []string
	// Unchanged counts the files that already had the generated content.
	Unchanged  int
	TotalBytes int64
}

// FilesGenerated returns the number of files written or already current.
func (m WriterMetrics) FilesGenerated() int {
	return len(m.Written) + m.Unchanged
}

// NewWriter returns a writer into dir using GOMAXPROCS workers.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, workers: runtime.GOMAXPROCS(0)}
}

// WithWorkers sets the number of workers. Non-positive values are ignored.
func (w *Writer) WithWorkers(n int) *Writer {
	if n > 0 {
		w.workers = n
	}
	return w
}

// Metrics returns a copy of the metrics collected so far.
func (w *Writer) Metrics() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	m := w.metrics
	m.Written = append([]string(nil), w.metrics.Written...)
	sort.Strings(m.Written)
	return m
}

type fileTask struct {
	name string
	file *jen.File
}

// WriteAll writes every file and returns the first failure.
func (w *Writer) WriteAll(ctx context.Context, files []fileTask) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return NewGenerationError("write", w.dir, "create output directory", err)
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(w.workers)
	for _, f := range files {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return w.write(f)
		})
	}
	return eg.Wait()
}

func (w *Writer) write(f fileTask) error {
	var raw bytes.Buffer
	if err := f.file.Render(&raw); err != nil {
		return NewGenerationError("render", f.name, "", err)
	}
	path := filepath.Join(w.dir, f.name)
	src, err := imports.Process(path, raw.Bytes(), nil)
	if err != nil {
		// The unformatted source is kept next to the target.
		dump := path + ".error"
		_ = os.WriteFile(dump, raw.Bytes(), 0o644)
		return NewGenerationError("format", f.name, "unformatted output written to "+dump, err)
	}
	current, err := os.ReadFile(path)
	switch {
	case err == nil && bytes.Equal(current, src):
		w.done(f.name, len(src), false)
		return nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return NewGenerationError("write", f.name, "read existing file", err)
	}
	if err := os.WriteFile(path, src, 0o644); err != nil {
		return NewGenerationError("write", f.name, "", err)
	}
	w.done(f.name, len(src), true)
	return nil
}

func (w *Writer) done(name string, size int, written bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if written {
		w.metrics.Written = append(w.metrics.Written, name)
	} else {
		w.metrics.Unchanged++
	}
	w.metrics.TotalBytes += int64(size)
}
