package pak

import (
	"bufio"
	"errors"
	"fmt"
	"os"
)

// File is an open container on disk.
type File struct {
	f       *os.File
	archive *Archive
	reader  *ArchiveReader
}

// Open opens the container at path and reads its TOC.
func Open(path string, opts ...ReaderOption) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	a, err := ReadArchive(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &File{f: f, archive: a, reader: NewArchiveReader(f, a, opts...)}, nil
}

// Archive returns the parsed TOC.
func (f *File) Archive() *Archive {
	return f.archive
}

// Reader returns the entry reader bound to the file handle.
// Like every ArchiveReader it is not safe for concurrent use.
func (f *File) Reader() *ArchiveReader {
	return f.reader
}

// Name returns the file path.
func (f *File) Name() string {
	return f.f.Name()
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}

// FileWriter is a Writer backed by a file it owns.
type FileWriter struct {
	*Writer
	f   *os.File
	buf *bufio.Writer
}

// Create creates or truncates path and returns a writer for a container
// holding at most capacity entries.
func Create(path string, capacity int, opts ...WriterOption) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriterSize(f, 256<<10)
	w, err := NewWriter(buf, capacity, opts...)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	return &FileWriter{Writer: w, f: f, buf: buf}, nil
}

// Name returns the file path.
func (fw *FileWriter) Name() string {
	return fw.f.Name()
}

// Finish seals the container, flushes and closes the file.
func (fw *FileWriter) Finish() error {
	err := fw.Writer.Finish()
	if err == nil {
		err = fw.buf.Flush()
	}
	if err == nil {
		err = fw.f.Sync()
	}
	return errors.Join(err, fw.f.Close())
}

// Abort closes the file without sealing it and removes it.
func (fw *FileWriter) Abort() error {
	fw.Writer.finished = true
	return errors.Join(fw.f.Close(), os.Remove(fw.f.Name()))
}
