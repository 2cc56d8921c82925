// Package repack drives the automatic and manual modes: it picks inputs,
// names outputs and moves files around the rewrite pipeline.
package repack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/meigma/texpak/internal/chunk"
	"github.com/meigma/texpak/internal/filelist"
	"github.com/meigma/texpak/internal/patchchain"
	"github.com/meigma/texpak/internal/provenance"
	"github.com/meigma/texpak/internal/restore"
	"github.com/meigma/texpak/internal/rewrite"
	"github.com/meigma/texpak/internal/tex"
	"github.com/meigma/texpak/pak"
)

// TempSuffix is appended to a container path for replace-mode scratch output.
const TempSuffix = ".temp"

// ManualSuffix replaces the .pak extension of a manual-mode output.
const ManualSuffix = ".uncompressed.pak"

// Mode selects how automatic mode publishes its output.
type Mode int

const (
	// ModePatch writes the textures as the next patch of each chunk.
	ModePatch Mode = iota

	// ModeReplace rewrites each chunk in full and swaps it with the
	// original, which is kept as a backup.
	ModeReplace
)

func (m Mode) String() string {
	if m == ModeReplace {
		return "replace"
	}
	return "patch"
}

// ParseMode parses "patch" or "replace".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "patch":
		return ModePatch, nil
	case "replace":
		return ModeReplace, nil
	default:
		return ModePatch, fmt.Errorf("repack: unknown mode %q", s)
	}
}

// ErrUnknownChunk is returned when a selected chunk is not in the directory.
var ErrUnknownChunk = errors.New("repack: chunk not found")

// ChunkResult reports the processing of one input.
type ChunkResult struct {
	Source string
	Output string
	Result rewrite.Result
}

// Repacker runs the texture transform over chunk files.
type Repacker struct {
	table       *filelist.Table
	workers     int
	compression pak.Compression
	logger      *slog.Logger
	progress    func(path string) rewrite.ProgressFunc
}

// Option configures a Repacker.
type Option func(*Repacker)

// WithWorkers bounds the workers per rewrite. Values <= 0 use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(r *Repacker) {
		r.workers = n
	}
}

// WithCompression sets the compression of transformed entries.
func WithCompression(c pak.Compression) Option {
	return func(r *Repacker) {
		r.compression = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repacker) {
		r.logger = l
	}
}

// WithProgress sets a factory called once per input file.
func WithProgress(fn func(path string) rewrite.ProgressFunc) Option {
	return func(r *Repacker) {
		r.progress = fn
	}
}

// New returns a Repacker that selects entries with table.
func New(table *filelist.Table, opts ...Option) *Repacker {
	r := &Repacker{table: table}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repacker) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}

func transform(_ pak.Entry, rd io.Reader) ([]byte, error) {
	return tex.Decompress(rd)
}

func (r *Repacker) rewrite(ctx context.Context, src, out string, full, clone bool) (rewrite.Result, error) {
	policy := rewrite.AttributesDefault
	if clone {
		policy = rewrite.AttributesClone
	}
	opts := []rewrite.Option{
		rewrite.WithFullPackage(full),
		rewrite.WithAttributePolicy(policy),
		rewrite.WithWorkers(r.workers),
		rewrite.WithCompression(r.compression),
		rewrite.WithLogger(r.logger),
	}
	if r.progress != nil {
		opts = append(opts, rewrite.WithProgress(r.progress(src)))
	}
	return rewrite.Rewrite(ctx, src, out, r.table.Selector(), transform, opts...)
}

// Auto processes the selected chunks of dir under the directory lock.
//
// In patch mode each chunk gets a new patch file holding only its
// decompressed textures; a failed rewrite keeps the partial patch and stops
// the run. In replace mode each chunk is rewritten in full to a temporary
// file, the original is moved to its backup path and the temporary file
// takes its place; a failed rewrite discards the temporary file and leaves
// the original untouched. Replacing a chunk again rewrites it from its
// backup.
func (r *Repacker) Auto(ctx context.Context, dir string, selected []chunk.Name, mode Mode) ([]ChunkResult, error) {
	unlock, err := LockDir(dir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	inv, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	chain := patchchain.New(inv.Names...)
	log := r.log().With(slog.String("mode", mode.String()))

	results := make([]ChunkResult, 0, len(selected))
	for _, name := range selected {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if !inv.Contains(name) {
			return results, fmt.Errorf("%w: %s", ErrUnknownChunk, name)
		}
		src := inv.Path(name)

		var res ChunkResult
		if mode == ModePatch {
			res, err = r.patch(ctx, inv, chain, name)
		} else {
			res, err = r.replace(ctx, src)
		}
		if err != nil {
			return results, err
		}
		log.Info("chunk processed",
			slog.String("source", res.Source),
			slog.String("output", res.Output),
			slog.Int("entries", res.Result.Processed))
		results = append(results, res)
	}
	return results, nil
}

func (r *Repacker) patch(ctx context.Context, inv *Inventory, chain *patchchain.Chain, name chunk.Name) (ChunkResult, error) {
	src := inv.Path(name)
	outName := chain.Allocate(name)
	out := inv.Path(outName)
	res, err := r.rewrite(ctx, src, out, false, true)
	cr := ChunkResult{Source: src, Output: out, Result: res}
	if err != nil {
		return cr, fmt.Errorf("repack: %s: %w", name, err)
	}
	return cr, nil
}

// replace rewrites src in full and swaps it in, keeping the original as
// src.backup. When src is already a full-package output the backup is the
// original, so it is rewritten from the backup and the backup is kept.
func (r *Repacker) replace(ctx context.Context, src string) (ChunkResult, error) {
	backup := restore.BackupPath(src)
	input := src
	rec, ok, err := provenance.ReadFile(src)
	if err == nil && ok && rec.IsFullPackage {
		if _, err := os.Stat(backup); err != nil {
			return ChunkResult{Source: src, Output: src}, fmt.Errorf("repack: %s is already replaced: %w", src, restore.ErrBackupMissing)
		}
		r.log().Info("already replaced, rewriting from backup", slog.String("path", src))
		input = backup
	}

	tmp := src + TempSuffix
	res, err := r.rewrite(ctx, input, tmp, true, true)
	cr := ChunkResult{Source: input, Output: src, Result: res}
	if err != nil {
		_ = os.Remove(tmp)
		return cr, fmt.Errorf("repack: %s: %w", src, err)
	}

	if input == src {
		if err := os.Remove(backup); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cr, err
		}
		if err := os.Rename(src, backup); err != nil {
			return cr, err
		}
	}
	if err := os.Rename(tmp, src); err != nil {
		return cr, err
	}
	return cr, nil
}

// ManualOutput returns the manual-mode output path for input.
func ManualOutput(input string) string {
	return strings.TrimSuffix(input, "."+chunk.Extension) + ManualSuffix
}

// Manual rewrites a single container next to itself as
// <stem>.uncompressed.pak.
func (r *Repacker) Manual(ctx context.Context, input string, fullPackage, cloneAttrs bool) (ChunkResult, error) {
	fi, err := os.Stat(input)
	if err != nil {
		return ChunkResult{}, err
	}
	if !fi.Mode().IsRegular() {
		return ChunkResult{}, fmt.Errorf("repack: %s is not a file", input)
	}
	out := ManualOutput(input)
	res, err := r.rewrite(ctx, input, out, fullPackage, cloneAttrs)
	return ChunkResult{Source: input, Output: out, Result: res}, err
}
