// Package restore reverses the outputs of earlier runs in a chunk directory.
//
// A scan classifies every container that carries a provenance record.
// Full-package outputs are swapped back with their backup; filtered patch
// outputs are removed highest ordinal first, leaving an empty placeholder
// wherever a higher patch still needs the ordinal.
package restore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/meigma/texpak/internal/chunk"
	"github.com/meigma/texpak/internal/patchchain"
	"github.com/meigma/texpak/internal/provenance"
	"github.com/meigma/texpak/internal/rewrite"
)

// BackupSuffix is appended to a container path to name its backup.
const BackupSuffix = ".backup"

// ErrBackupMissing is reported when a full-package output has no backup.
var ErrBackupMissing = errors.New("restore: backup missing")

// Target is the restore action class of a candidate.
type Target int

const (
	// FullRestore swaps a full-package output with its backup.
	FullRestore Target = iota

	// PatchRemoval removes a filtered patch output.
	PatchRemoval
)

func (t Target) String() string {
	if t == FullRestore {
		return "full-restore"
	}
	return "patch-removal"
}

// Candidate is a tool-generated container found by Scan.
type Candidate struct {
	Path   string
	Name   chunk.Name
	Record provenance.Record
	Target Target
}

// Skipped is a file Scan could not classify.
type Skipped struct {
	Path string
	Err  error
}

// Scan is the classified content of a directory.
type Scan struct {
	Dir        string
	Backups    []string
	Candidates []Candidate
	Skipped    []Skipped
	Chain      *patchchain.Chain
}

// Action is what Apply did to a candidate.
type Action int

const (
	ActionRestored Action = iota
	ActionDeleted
	ActionPlaceholder
	ActionSkipped
)

func (a Action) String() string {
	switch a {
	case ActionRestored:
		return "restored"
	case ActionDeleted:
		return "deleted"
	case ActionPlaceholder:
		return "placeholder"
	default:
		return "skipped"
	}
}

// Outcome records the result for one candidate.
type Outcome struct {
	Path   string
	Target Target
	Action Action
	Err    error
}

// Report summarizes Apply.
type Report struct {
	Outcomes []Outcome
	Warnings []error
}

// Count returns the number of outcomes with action a.
func (r Report) Count(a Action) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Action == a {
			n++
		}
	}
	return n
}

// Engine scans and restores directories.
type Engine struct {
	logger      *slog.Logger
	placeholder func(path string) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithPlaceholderWriter replaces the function that writes placeholder
// containers. Defaults to rewrite.WritePlaceholder.
func WithPlaceholderWriter(fn func(path string) error) Option {
	return func(e *Engine) {
		e.placeholder = fn
	}
}

// New returns an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{placeholder: rewrite.WritePlaceholder}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) log() *slog.Logger {
	if e.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.logger
}

// BackupPath returns the backup path of a container.
func BackupPath(path string) string {
	return path + BackupSuffix
}

// Restore scans dir and applies the result.
func (e *Engine) Restore(ctx context.Context, dir string) (Report, error) {
	scan, err := e.Scan(ctx, dir)
	if err != nil {
		return Report{}, err
	}
	return e.Apply(ctx, scan)
}

// Scan classifies the files of dir. Unreadable or foreign containers are
// not candidates; malformed names are recorded in Skipped. Only failing to
// list dir is an error.
func (e *Engine) Scan(ctx context.Context, dir string) (*Scan, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("restore: scan: %w", err)
	}
	log := e.log()
	s := &Scan{Dir: dir, Chain: patchchain.New()}

	for _, de := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !de.Type().IsRegular() {
			continue
		}
		file := de.Name()
		path := filepath.Join(dir, file)

		if strings.HasSuffix(file, "."+chunk.Extension+BackupSuffix) {
			s.Backups = append(s.Backups, path)
			continue
		}
		if !chunk.LooksLikeChunk(file) {
			continue
		}

		name, nameErr := chunk.Parse(file)
		if nameErr == nil {
			s.Chain.Register(name)
		}

		rec, ok, err := provenance.ReadFile(path)
		if err != nil {
			log.Debug("not a readable container", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		if !ok {
			continue
		}

		if nameErr != nil {
			log.Warn("skipping output with malformed name", slog.String("path", path), slog.String("error", nameErr.Error()))
			s.Skipped = append(s.Skipped, Skipped{Path: path, Err: nameErr})
			continue
		}
		c := Candidate{Path: path, Name: name, Record: rec, Target: PatchRemoval}
		if rec.IsFullPackage {
			c.Target = FullRestore
		}
		s.Candidates = append(s.Candidates, c)
	}

	slices.SortFunc(s.Candidates, func(a, b Candidate) int { return cmp.Compare(a.Path, b.Path) })
	log.Info("scan complete",
		slog.String("dir", dir),
		slog.Int("candidates", len(s.Candidates)),
		slog.Int("backups", len(s.Backups)))
	return s, nil
}

// Apply executes a scan: full restores first, then patch removals in
// descending ordinal order against the scan's chain.
//
// A missing backup is a warning. A failed remove, rename or placeholder
// write stops the run; the returned report covers what was done before it.
func (e *Engine) Apply(ctx context.Context, s *Scan) (Report, error) {
	var (
		report  Report
		patches []Candidate
	)
	log := e.log()

	for _, c := range s.Candidates {
		if c.Target == PatchRemoval {
			patches = append(patches, c)
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		backup := BackupPath(c.Path)
		if _, err := os.Stat(backup); err != nil {
			warn := fmt.Errorf("%w: %s", ErrBackupMissing, backup)
			log.Warn("backup not found; leaving file in place", slog.String("path", c.Path))
			report.Warnings = append(report.Warnings, warn)
			report.Outcomes = append(report.Outcomes, Outcome{Path: c.Path, Target: c.Target, Action: ActionSkipped, Err: warn})
			continue
		}
		if err := os.Remove(c.Path); err != nil {
			return report, err
		}
		if err := os.Rename(backup, c.Path); err != nil {
			return report, err
		}
		log.Info("restored backup", slog.String("path", c.Path))
		report.Outcomes = append(report.Outcomes, Outcome{Path: c.Path, Target: c.Target, Action: ActionRestored})
	}

	byName := make(map[string]Candidate, len(patches))
	names := make([]chunk.Name, 0, len(patches))
	for _, c := range patches {
		byName[c.Name.String()] = c
		names = append(names, c.Name)
	}
	patchchain.SortDescending(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		c := byName[name.String()]
		switch s.Chain.PlanRemoval(name) {
		case patchchain.DeleteFinal:
			if err := os.Remove(c.Path); err != nil {
				return report, err
			}
			s.Chain.Remove(name)
			log.Info("removed patch", slog.String("path", c.Path))
			report.Outcomes = append(report.Outcomes, Outcome{Path: c.Path, Target: c.Target, Action: ActionDeleted})
		case patchchain.DeletePlaceholder:
			if err := e.placeholder(c.Path); err != nil {
				return report, err
			}
			log.Info("replaced patch with placeholder", slog.String("path", c.Path))
			report.Outcomes = append(report.Outcomes, Outcome{Path: c.Path, Target: c.Target, Action: ActionPlaceholder})
		}
	}
	return report, nil
}
