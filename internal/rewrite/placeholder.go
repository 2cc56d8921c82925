package rewrite

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/meigma/texpak/internal/provenance"
	"github.com/meigma/texpak/pak"
)

// WritePlaceholder replaces path with an empty patch container that holds
// only a provenance record marking a filtered output. The file is written
// next to path and renamed into place.
func WritePlaceholder(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".texpak-*")
	if err != nil {
		return fmt.Errorf("rewrite: placeholder: %w", err)
	}
	tmpPath := tmp.Name()

	if err := writePlaceholder(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("rewrite: placeholder: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rewrite: placeholder: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func writePlaceholder(f *os.File) error {
	buf := bufio.NewWriter(f)
	w, err := pak.NewWriter(buf, 1)
	if err != nil {
		return err
	}
	if err := provenance.Write(w, false); err != nil {
		return err
	}
	if err := w.Finish(); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	return f.Sync()
}
