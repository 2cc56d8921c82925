package pak

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEntry struct {
	name string
	data []byte
	opts EntryOptions
}

func buildContainer(t *testing.T, capacity int, entries []testEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, capacity)
	require.NoError(t, err)
	for _, e := range entries {
		require.NoError(t, w.StartEntry(e.name, e.opts))
		_, err := w.Write(e.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Finish())
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	for _, c := range []Compression{CompressionNone, CompressionDeflate, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			t.Parallel()

			entries := []testEntry{
				{name: "natives/stm/a.tex", data: bytes.Repeat([]byte("a"), 4096), opts: DefaultEntryOptions().WithCompression(c)},
				{name: "natives/stm/b.mesh", data: []byte("mesh"), opts: DefaultEntryOptions().WithCompression(c).WithAttr(7)},
				{name: "natives/stm/empty", data: nil, opts: DefaultEntryOptions().WithCompression(c)},
			}
			data := buildContainer(t, len(entries), entries)

			r := bytes.NewReader(data)
			a, err := ReadArchive(r)
			require.NoError(t, err)
			assert.Equal(t, 3, a.Len())
			assert.Equal(t, 3, a.Capacity())
			assert.Equal(t, FormatVersion, a.Version())

			ar := NewArchiveReader(r, a)
			for i, want := range entries {
				e, ok := a.LookupName(want.name)
				require.True(t, ok, want.name)
				assert.Equal(t, a.Entries()[i], e, "entries keep write order")
				assert.Equal(t, c, e.Compression)
				assert.Equal(t, want.opts.Attr, e.Attr)
				assert.Equal(t, uint64(len(want.data)), e.Size)

				got, err := ar.ReadEntry(e)
				require.NoError(t, err)
				assert.Equal(t, len(want.data), len(got))
				if len(want.data) > 0 {
					assert.Equal(t, want.data, got)
				}
			}
			require.NoError(t, a.VerifyData(r))
		})
	}
}

func TestLookupIndependentOfOrder(t *testing.T) {
	t.Parallel()

	forward := buildContainer(t, 2, []testEntry{
		{name: "x", data: []byte("one")},
		{name: "y", data: []byte("two")},
	})
	backward := buildContainer(t, 2, []testEntry{
		{name: "y", data: []byte("two")},
		{name: "x", data: []byte("one")},
	})

	for _, data := range [][]byte{forward, backward} {
		r := bytes.NewReader(data)
		a, err := ReadArchive(r)
		require.NoError(t, err)
		ar := NewArchiveReader(r, a)
		for name, want := range map[string]string{"x": "one", "y": "two"} {
			e, ok := a.Lookup(HashName(name))
			require.True(t, ok)
			got, err := ar.ReadEntry(e)
			require.NoError(t, err)
			assert.Equal(t, want, string(got))
		}
	}
}

func TestHashNameNormalizes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, HashName("natives/STM/a.tex"), HashName(`natives\stm\A.TEX`))
	assert.NotEqual(t, HashName("a"), HashName("b"))
}

func TestWriter_Errors(t *testing.T) {
	t.Parallel()

	t.Run("capacity", func(t *testing.T) {
		t.Parallel()
		w, err := NewWriter(io.Discard, 1)
		require.NoError(t, err)
		require.NoError(t, w.StartEntry("a", DefaultEntryOptions()))
		err = w.StartEntry("b", DefaultEntryOptions())
		assert.ErrorIs(t, err, ErrCapacityExceeded)
	})

	t.Run("duplicate", func(t *testing.T) {
		t.Parallel()
		w, err := NewWriter(io.Discard, 2)
		require.NoError(t, err)
		require.NoError(t, w.StartEntry("a", DefaultEntryOptions()))
		err = w.StartEntry("A", DefaultEntryOptions())
		assert.ErrorIs(t, err, ErrDuplicateEntry)
	})

	t.Run("no entry", func(t *testing.T) {
		t.Parallel()
		w, err := NewWriter(io.Discard, 1)
		require.NoError(t, err)
		_, err = w.Write([]byte("x"))
		assert.ErrorIs(t, err, ErrNoEntry)
	})

	t.Run("finished", func(t *testing.T) {
		t.Parallel()
		w, err := NewWriter(io.Discard, 1)
		require.NoError(t, err)
		require.NoError(t, w.Finish())
		assert.ErrorIs(t, w.Finish(), ErrWriterClosed)
		assert.ErrorIs(t, w.StartEntry("a", DefaultEntryOptions()), ErrWriterClosed)
	})
}

func TestReadArchive_Unfinished(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := NewWriter(&buf, 1)
	require.NoError(t, err)
	require.NoError(t, w.StartEntry("a", DefaultEntryOptions()))
	_, err = w.Write(bytes.Repeat([]byte("z"), 128))
	require.NoError(t, err)

	_, err = ReadArchive(bytes.NewReader(buf.Bytes()))
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = ReadArchive(bytes.NewReader([]byte("not a container")))
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestReadEntry_Corruption(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("payload"), 64)
	data := buildContainer(t, 1, []testEntry{{name: "a", data: payload}})

	// Flip a byte inside the stored payload.
	data[headerSize+10] ^= 0xff

	r := bytes.NewReader(data)
	a, err := ReadArchive(r)
	require.NoError(t, err)
	e, ok := a.LookupName("a")
	require.True(t, ok)

	_, err = NewArchiveReader(r, a).ReadEntry(e)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
	assert.ErrorIs(t, a.VerifyData(r), ErrDigestMismatch)
}

type flakyWriter struct {
	bytes.Buffer
	fail bool
}

func (f *flakyWriter) Write(p []byte) (int, error) {
	if f.fail {
		return 0, errors.New("disk full")
	}
	return f.Buffer.Write(p)
}

func TestWriter_DiscardEntry(t *testing.T) {
	t.Parallel()

	for _, c := range []Compression{CompressionNone, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			t.Parallel()

			var out flakyWriter
			w, err := NewWriter(&out, 3)
			require.NoError(t, err)
			opts := DefaultEntryOptions().WithCompression(c)

			require.NoError(t, w.StartEntry("kept", opts))
			_, err = w.Write([]byte("kept payload"))
			require.NoError(t, err)

			require.NoError(t, w.StartEntry("dropped", DefaultEntryOptions()))
			_, err = w.Write([]byte("partial"))
			require.NoError(t, err)
			out.fail = true
			_, err = w.Write([]byte("rest"))
			require.Error(t, err)
			w.DiscardEntry()
			out.fail = false
			assert.Equal(t, 1, w.Len())

			require.NoError(t, w.StartEntry("after", opts))
			_, err = w.Write([]byte("after payload"))
			require.NoError(t, err)
			require.NoError(t, w.Finish())

			r := bytes.NewReader(out.Bytes())
			a, err := ReadArchive(r)
			require.NoError(t, err)
			assert.Equal(t, 2, a.Len())
			_, ok := a.LookupName("dropped")
			assert.False(t, ok)

			ar := NewArchiveReader(r, a)
			for name, want := range map[string]string{"kept": "kept payload", "after": "after payload"} {
				e, ok := a.LookupName(name)
				require.True(t, ok, name)
				got, err := ar.ReadEntry(e)
				require.NoError(t, err, name)
				assert.Equal(t, []byte(want), got)
			}
		})
	}
}

func TestWriteRaw(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("raw"), 300)
	src := buildContainer(t, 1, []testEntry{{
		name: "a",
		data: payload,
		opts: DefaultEntryOptions().WithCompression(CompressionZstd).WithAttr(3),
	}})
	sr := bytes.NewReader(src)
	sa, err := ReadArchive(sr)
	require.NoError(t, err)
	se, _ := sa.LookupName("a")
	raw, err := NewArchiveReader(sr, sa).RawEntry(se)
	require.NoError(t, err)

	var buf bytes.Buffer
	w, err := NewWriter(&buf, 2)
	require.NoError(t, err)
	require.NoError(t, w.StartEntry("first", DefaultEntryOptions()))
	_, err = w.Write([]byte("shift offsets"))
	require.NoError(t, err)
	require.NoError(t, w.WriteRaw(se, raw))
	require.NoError(t, w.Finish())

	dr := bytes.NewReader(buf.Bytes())
	da, err := ReadArchive(dr)
	require.NoError(t, err)
	de, ok := da.LookupName("a")
	require.True(t, ok)
	assert.NotEqual(t, se.Offset, de.Offset)
	assert.Equal(t, se.Checksum, de.Checksum)
	assert.Equal(t, uint64(3), de.Attr)

	got, err := NewArchiveReader(dr, da).ReadEntry(de)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestCreateOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "re_chunk_000.pak")
	fw, err := Create(path, 4)
	require.NoError(t, err)
	for i := range 4 {
		require.NoError(t, fw.StartEntry(fmt.Sprintf("entry/%d", i), DefaultEntryOptions().WithCompression(CompressionZstd)))
		_, err := fw.Write(bytes.Repeat([]byte{byte(i)}, 1000))
		require.NoError(t, err)
	}
	require.NoError(t, fw.Finish())

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, 4, f.Archive().Len())
	e, ok := f.Archive().LookupName("entry/2")
	require.True(t, ok)
	got, err := f.Reader().ReadEntry(e)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{2}, 1000), got)
}

func TestFileWriter_Abort(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.pak")
	fw, err := Create(path, 1)
	require.NoError(t, err)
	require.NoError(t, fw.Abort())
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestOpen_Missing(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "missing.pak"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
