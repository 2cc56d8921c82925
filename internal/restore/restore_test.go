package restore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/texpak/internal/provenance"
	"github.com/meigma/texpak/internal/testutil"
)

var (
	fullRecord  = &provenance.Record{Version: 1, IsFullPackage: true}
	patchRecord = &provenance.Record{Version: 1, IsFullPackage: false}
)

func writeTool(t *testing.T, dir, name string, rec *provenance.Record) string {
	t.Helper()
	path := filepath.Join(dir, name)
	testutil.WriteContainer(t, path, testutil.Container{
		Provenance: rec,
		Entries:    []testutil.Entry{{Name: "data/" + name, Data: []byte(name)}},
	})
	return path
}

func writeForeign(t *testing.T, dir, name string) string {
	t.Helper()
	return writeTool(t, dir, name, nil)
}

func TestRestore_FullPackage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeTool(t, dir, "re_chunk_000.pak.sub_000.pak", fullRecord)
	original := []byte("original container bytes")
	backup := testutil.WriteFile(t, dir, "re_chunk_000.pak.sub_000.pak.backup", original)

	report, err := New().Restore(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(ActionRestored))
	assert.Empty(t, report.Warnings)

	_, err = os.Stat(backup)
	assert.True(t, os.IsNotExist(err), "backup consumed")
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestRestore_MissingBackup(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeTool(t, dir, "re_chunk_000.pak.sub_000.pak", fullRecord)
	other := writeTool(t, dir, "re_chunk_000.pak.sub_001.pak", fullRecord)
	testutil.WriteFile(t, dir, "re_chunk_000.pak.sub_001.pak.backup", []byte("orig"))

	report, err := New().Restore(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, report.Warnings, 1)
	assert.ErrorIs(t, report.Warnings[0], ErrBackupMissing)
	assert.Equal(t, 1, report.Count(ActionSkipped))
	assert.Equal(t, 1, report.Count(ActionRestored), "remaining targets still processed")

	_, err = os.Stat(path)
	assert.NoError(t, err, "file without backup left in place")
	got, err := os.ReadFile(other)
	require.NoError(t, err)
	assert.Equal(t, []byte("orig"), got)
}

func TestRestore_PatchRemoval(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeForeign(t, dir, "re_chunk_000.pak.sub_000.pak")
	writeForeign(t, dir, "re_chunk_000.pak.sub_000.pak.patch_001.pak")
	p2 := writeTool(t, dir, "re_chunk_000.pak.sub_000.pak.patch_002.pak", patchRecord)
	p3 := writeTool(t, dir, "re_chunk_000.pak.sub_000.pak.patch_003.pak", patchRecord)

	report, err := New().Restore(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(ActionDeleted))
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, p3, report.Outcomes[0].Path, "highest ordinal first")

	for _, p := range []string{p2, p3} {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), p)
	}
	_, err = os.Stat(filepath.Join(dir, "re_chunk_000.pak.sub_000.pak.patch_001.pak"))
	assert.NoError(t, err)
}

func TestRestore_PlaceholderKeepsSequence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p1 := writeTool(t, dir, "re_chunk_000.pak.sub_000.pak.patch_001.pak", patchRecord)
	p2 := writeTool(t, dir, "re_chunk_000.pak.sub_000.pak.patch_002.pak", patchRecord)
	writeForeign(t, dir, "re_chunk_000.pak.sub_000.pak.patch_003.pak")

	report, err := New().Restore(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(ActionPlaceholder))

	for _, p := range []string{p1, p2} {
		rec, ok, err := provenance.ReadFile(p)
		require.NoError(t, err)
		require.True(t, ok, p)
		assert.False(t, rec.IsFullPackage)
		assert.Len(t, testutil.ReadContainer(t, p), 1, "placeholder holds only provenance")
	}
}

func TestScan_Classification(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTool(t, dir, "re_chunk_000.pak.sub_000.pak", fullRecord)
	writeTool(t, dir, "re_chunk_000.pak.sub_001.pak.patch_001.pak", patchRecord)
	writeForeign(t, dir, "re_chunk_000.pak")
	testutil.WriteFile(t, dir, "re_chunk_001.pak", []byte("not a container"))
	testutil.WriteFile(t, dir, "re_chunk_000.pak.sub_000.pak.backup", []byte("b"))
	testutil.WriteFile(t, dir, "notes.txt", []byte("x"))
	writeTool(t, dir, "re_chunk_bad.pak.patch_001.pak", patchRecord)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "re_chunk_009.pak"), 0o750))

	s, err := New().Scan(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, s.Candidates, 2)
	assert.Equal(t, FullRestore, s.Candidates[0].Target)
	assert.Equal(t, PatchRemoval, s.Candidates[1].Target)
	assert.Len(t, s.Backups, 1)
	require.Len(t, s.Skipped, 1)
	assert.Contains(t, s.Skipped[0].Path, "re_chunk_bad")
	assert.Equal(t, 4, s.Chain.Len())
}

func TestRestore_IgnoresManualFullOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manual := writeTool(t, dir, "re_chunk_000.pak.sub_000.uncompressed.pak", fullRecord)

	s, err := New().Scan(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, s.Candidates)
	require.Len(t, s.Skipped, 1)
	assert.Equal(t, manual, s.Skipped[0].Path)

	report, err := New().Restore(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, report.Outcomes)
	assert.Empty(t, report.Warnings)
	assert.FileExists(t, manual)
}

func TestApply_IOErrorStopsRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTool(t, dir, "re_chunk_000.pak.sub_000.pak.patch_001.pak", patchRecord)
	writeTool(t, dir, "re_chunk_000.pak.sub_000.pak.patch_002.pak", patchRecord)
	writeForeign(t, dir, "re_chunk_000.pak.sub_000.pak.patch_003.pak")

	diskFull := errors.New("no space left on device")
	calls := 0
	e := New(WithPlaceholderWriter(func(string) error {
		calls++
		return diskFull
	}))
	report, err := e.Restore(context.Background(), dir)
	require.ErrorIs(t, err, diskFull)
	assert.Equal(t, 1, calls)
	assert.Empty(t, report.Outcomes)
}

func TestScan_MissingDir(t *testing.T) {
	t.Parallel()

	_, err := New().Scan(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
