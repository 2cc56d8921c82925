package main

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/meigma/texpak/internal/rewrite"
)

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// progressFactory returns a per-file progress callback drawing on w, or nil
// when w is not a terminal.
func progressFactory(w io.Writer) func(path string) rewrite.ProgressFunc {
	if !isTerminal(w) {
		return nil
	}
	return func(path string) rewrite.ProgressFunc {
		var (
			once sync.Once
			bar  *progressbar.ProgressBar
		)
		return func(done, total int, _ uint64) {
			once.Do(func() {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetWriter(w),
					progressbar.OptionSetDescription(filepath.Base(path)),
					progressbar.OptionShowCount(),
					progressbar.OptionSetWidth(30),
					progressbar.OptionClearOnFinish(),
				)
			})
			_ = bar.Set(done)
		}
	}
}
