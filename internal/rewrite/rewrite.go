// Package rewrite copies a container into a new one, transforming selected
// entries on a bounded worker pool.
//
// The source reader and the destination writer are each a single shared
// resource behind its own mutex. Workers hold the source lock only while
// copying an entry's stored bytes out of the file and hold the destination
// lock only while appending a result; decoding and transforming run outside
// both locks. Entries land in the destination in completion order.
//
// A failed entry stops dispatch. Entries already written are kept and the
// destination is always sealed, so an interrupted run still yields a valid,
// smaller container.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/texpak/internal/provenance"
	"github.com/meigma/texpak/pak"
)

// ErrTransform wraps errors returned by a TransformFunc.
var ErrTransform = errors.New("rewrite: transform failed")

// Selector reports whether an entry should be transformed.
type Selector func(pak.Entry) bool

// TransformFunc produces the new payload of a selected entry from its
// decoded content.
type TransformFunc func(e pak.Entry, r io.Reader) ([]byte, error)

// Result summarizes a rewrite.
type Result struct {
	// Selected is the number of data entries scheduled for the output.
	Selected int

	// Processed is the number of data entries written.
	Processed int

	// BytesWritten is the payload size of the written entries before
	// destination compression.
	BytesWritten uint64
}

type job struct {
	entry     pak.Entry
	transform bool
}

type pipeline struct {
	cfg       *config
	transform TransformFunc

	srcMu sync.Mutex
	src   *pak.ArchiveReader

	dstMu sync.Mutex
	dst   *pak.FileWriter

	total     int
	processed atomic.Int64
	bytes     atomic.Uint64
}

// Rewrite reads sourcePath and writes a new container to outputPath.
//
// Entries accepted by selector are passed through transform. Other entries
// are copied verbatim in full-package mode and dropped otherwise. The output
// starts with a provenance record and is sized for the carried entries plus
// that record.
//
// On failure Rewrite still seals outputPath with the entries written so far,
// then returns the partial Result together with the first error.
func Rewrite(ctx context.Context, sourcePath, outputPath string, selector Selector, transform TransformFunc, opts ...Option) (Result, error) {
	cfg := newConfig(opts)
	log := cfg.log().With(slog.String("source", sourcePath), slog.String("output", outputPath))

	src, err := pak.Open(sourcePath)
	if err != nil {
		return Result{}, fmt.Errorf("rewrite: open source: %w", err)
	}
	defer src.Close()

	jobs := plan(src.Archive(), selector, cfg.fullPackage)
	dst, err := pak.Create(outputPath, len(jobs)+1, pak.WithLogger(cfg.logger))
	if err != nil {
		return Result{}, fmt.Errorf("rewrite: create output: %w", err)
	}
	if err := provenance.Write(dst.Writer, cfg.fullPackage); err != nil {
		_ = dst.Abort()
		return Result{}, fmt.Errorf("rewrite: %w", err)
	}

	p := &pipeline{
		cfg:       cfg,
		transform: transform,
		src:       src.Reader(),
		dst:       dst,
		total:     len(jobs),
	}

	log.Info("rewrite started",
		slog.Int("entries", src.Archive().Len()),
		slog.Int("selected", len(jobs)),
		slog.Bool("full_package", cfg.fullPackage),
		slog.Int("workers", cfg.workers))
	start := time.Now()

	runErr := p.run(ctx, jobs)
	finishErr := dst.Finish()

	res := Result{
		Selected:     len(jobs),
		Processed:    int(p.processed.Load()),
		BytesWritten: p.bytes.Load(),
	}
	if finishErr != nil {
		return res, errors.Join(runErr, fmt.Errorf("rewrite: finalize output: %w", finishErr))
	}
	if runErr != nil {
		log.Warn("rewrite stopped early; output keeps the entries written so far",
			slog.Int("processed", res.Processed),
			slog.Int("selected", res.Selected),
			slog.String("error", runErr.Error()))
		return res, runErr
	}
	log.Info("rewrite complete",
		slog.Int("processed", res.Processed),
		slog.Uint64("bytes", res.BytesWritten),
		slog.Duration("elapsed", time.Since(start)))
	return res, nil
}

// plan returns the entries to carry in source order. The source's own
// provenance record is never carried.
func plan(a *pak.Archive, selector Selector, fullPackage bool) []job {
	skip := provenance.Hash()
	var jobs []job
	for _, e := range a.Entries() {
		if e.Hash == skip {
			continue
		}
		selected := selector != nil && selector(e)
		if selected || fullPackage {
			jobs = append(jobs, job{entry: e, transform: selected})
		}
	}
	return jobs
}

func (p *pipeline) run(ctx context.Context, jobs []job) error {
	var (
		g       errgroup.Group
		stop    atomic.Bool
		firstMu sync.Mutex
		first   error
	)
	fail := func(err error) {
		if stop.CompareAndSwap(false, true) {
			firstMu.Lock()
			first = err
			firstMu.Unlock()
		}
	}
	g.SetLimit(p.cfg.workers)

	for _, j := range jobs {
		if stop.Load() {
			break
		}
		if err := ctx.Err(); err != nil {
			fail(err)
			break
		}
		g.Go(func() error {
			if stop.Load() {
				return nil
			}
			if err := p.process(j); err != nil {
				fail(err)
			}
			return nil
		})
	}
	_ = g.Wait()

	firstMu.Lock()
	defer firstMu.Unlock()
	return first
}

func (p *pipeline) process(j job) error {
	e := j.entry
	attr := uint64(0)
	if p.cfg.attrs == AttributesClone {
		attr = e.Attr
	}

	if !j.transform {
		p.srcMu.Lock()
		raw, err := p.src.RawEntry(e)
		p.srcMu.Unlock()
		if err != nil {
			return fmt.Errorf("rewrite: read %s: %w", e, err)
		}
		out := e
		out.Attr = attr

		p.dstMu.Lock()
		err = p.dst.WriteRaw(out, raw)
		p.dstMu.Unlock()
		if err != nil {
			return fmt.Errorf("rewrite: write %s: %w", e, err)
		}
		p.done(e.Size)
		return nil
	}

	p.srcMu.Lock()
	rc, err := p.src.OwnedEntryReader(e)
	p.srcMu.Unlock()
	if err != nil {
		return fmt.Errorf("rewrite: read %s: %w", e, err)
	}
	data, err := p.transform(e, rc)
	_ = rc.Close()
	if err != nil {
		return fmt.Errorf("%w: entry %s: %w", ErrTransform, e, err)
	}

	opts := pak.DefaultEntryOptions().WithCompression(p.cfg.compression).WithAttr(attr)
	p.dstMu.Lock()
	err = p.write(e.Hash, opts, data)
	p.dstMu.Unlock()
	if err != nil {
		return fmt.Errorf("rewrite: write %s: %w", e, err)
	}
	p.done(uint64(len(data)))
	return nil
}

// write must be called with dstMu held.
func (p *pipeline) write(hash uint64, opts pak.EntryOptions, data []byte) error {
	if err := p.dst.StartEntryHash(hash, opts); err != nil {
		return err
	}
	if _, err := p.dst.Write(data); err != nil {
		p.dst.DiscardEntry()
		return err
	}
	return nil
}

func (p *pipeline) done(n uint64) {
	processed := p.processed.Add(1)
	written := p.bytes.Add(n)
	if p.cfg.progress != nil {
		p.cfg.progress(int(processed), p.total, written)
	}
}
