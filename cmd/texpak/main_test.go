package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/texpak/internal/config"
	"github.com/meigma/texpak/internal/provenance"
	"github.com/meigma/texpak/internal/testutil"
	"github.com/meigma/texpak/pak"
)

type cliEnv struct {
	dir        string
	configPath string
	fileList   string
	texture    []byte
}

func setupCLIEnv(t *testing.T) cliEnv {
	t.Helper()

	base := t.TempDir()
	dir := filepath.Join(base, "game")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	compressed, decompressed := testutil.CompressedTexture(t, 3)
	texName := testutil.TexturePath(1)
	entries := []testutil.Entry{
		{Name: texName, Data: compressed, Attr: 5},
		{Name: "natives/stm/b.mesh", Data: []byte("mesh"), Compression: pak.CompressionZstd},
	}
	for _, name := range []string{
		"re_chunk_000.pak",
		"re_chunk_000.pak.sub_000.pak",
		"re_chunk_000.pak.sub_000.pak.patch_001.pak",
		"re_chunk_000.pak.sub_001.pak",
	} {
		testutil.WriteContainer(t, filepath.Join(dir, name), testutil.Container{Entries: entries})
	}
	list := testutil.WriteFile(t, base, "files.list", []byte(texName+"\nnatives/stm/b.mesh\n"))

	return cliEnv{
		dir:        dir,
		configPath: filepath.Join(base, "texpak.toml"),
		fileList:   list,
		texture:    decompressed,
	}
}

func runCLI(t *testing.T, env cliEnv, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".pak") || strings.HasSuffix(e.Name(), ".backup") {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestAutoPatchAndRestore(t *testing.T) {
	t.Parallel()

	env := setupCLIEnv(t)
	before := listDir(t, env.dir)

	out, _, err := runCLI(t, env, "auto", "--dir", env.dir, "--all", "--file-list", env.fileList)
	require.NoError(t, err)
	assert.Contains(t, out, "re_chunk_000.pak.sub_000.pak.patch_002.pak")
	assert.Contains(t, out, "re_chunk_000.pak.sub_001.pak.patch_001.pak")

	patch := filepath.Join(env.dir, "re_chunk_000.pak.sub_001.pak.patch_001.pak")
	rec, ok, err := provenance.ReadFile(patch)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, rec.IsFullPackage)

	got := testutil.ReadContainer(t, patch)
	assert.Equal(t, env.texture, got[pak.HashName(testutil.TexturePath(1))])
	assert.NotContains(t, got, pak.HashName("natives/stm/b.mesh"))

	out, _, err = runCLI(t, env, "restore", "--dir", env.dir)
	require.NoError(t, err)
	assert.Contains(t, out, "removed 2")
	assert.Equal(t, before, listDir(t, env.dir))
}

func TestAutoReplaceAndRestore(t *testing.T) {
	t.Parallel()

	env := setupCLIEnv(t)
	src := filepath.Join(env.dir, "re_chunk_000.pak.sub_001.pak")
	original, err := os.ReadFile(src)
	require.NoError(t, err)

	out, _, err := runCLI(t, env, "auto", "--dir", env.dir, "--mode", "replace",
		"--chunk", "re_chunk_000.pak.sub_001.pak", "--file-list", env.fileList)
	require.NoError(t, err)
	assert.Contains(t, out, ".backup")
	assert.FileExists(t, src+".backup")

	rec, ok, err := provenance.ReadFile(src)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, rec.IsFullPackage)

	_, _, err = runCLI(t, env, "restore", "--dir", env.dir)
	require.NoError(t, err)
	restored, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
	assert.NoFileExists(t, src+".backup")
}

func TestAutoUnknownChunk(t *testing.T) {
	t.Parallel()

	env := setupCLIEnv(t)
	_, _, err := runCLI(t, env, "auto", "--dir", env.dir,
		"--chunk", "re_chunk_009.pak.sub_000.pak", "--file-list", env.fileList)
	require.Error(t, err)
}

func TestAutoNothingSelected(t *testing.T) {
	t.Parallel()

	env := setupCLIEnv(t)
	out, _, err := runCLI(t, env, "auto", "--dir", env.dir, "--file-list", env.fileList)
	require.NoError(t, err)
	assert.Contains(t, out, "No chunks selected.")
}

func TestManual(t *testing.T) {
	t.Parallel()

	env := setupCLIEnv(t)
	input := filepath.Join(env.dir, "re_chunk_000.pak")

	_, _, err := runCLI(t, env, "manual", "--full", "--file-list", env.fileList, input)
	require.NoError(t, err)

	output := filepath.Join(env.dir, "re_chunk_000.uncompressed.pak")
	got := testutil.ReadContainer(t, output)
	assert.Equal(t, env.texture, got[pak.HashName(testutil.TexturePath(1))])
	assert.Equal(t, []byte("mesh"), got[pak.HashName("natives/stm/b.mesh")])
}

func TestOutputCompression(t *testing.T) {
	t.Parallel()

	comp, err := outputCompression(&config.Config{Repack: config.Repack{Compression: "zstd"}})
	require.NoError(t, err)
	assert.Equal(t, pak.CompressionZstd, comp)

	_, err = outputCompression(&config.Config{Repack: config.Repack{Compression: "lz4"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"lz4"`)
}

func TestList(t *testing.T) {
	t.Parallel()

	env := setupCLIEnv(t)
	out, _, err := runCLI(t, env, "list", "--dir", env.dir)
	require.NoError(t, err)
	assert.Contains(t, out, "re_chunk_000.pak.sub_001.pak")
	assert.Contains(t, out, "sub patch")
	assert.Contains(t, out, "game")
}

func TestInspectVerify(t *testing.T) {
	t.Parallel()

	env := setupCLIEnv(t)
	out, _, err := runCLI(t, env, "inspect", "--verify", "--file-list", env.fileList,
		filepath.Join(env.dir, "re_chunk_000.pak"))
	require.NoError(t, err)
	assert.Contains(t, out, "Entries:   2 of 2")
	assert.Contains(t, out, testutil.TexturePath(1))
	assert.Contains(t, out, "Verification passed.")
}

func TestConfigInitAndShow(t *testing.T) {
	t.Parallel()

	env := setupCLIEnv(t)
	out, _, err := runCLI(t, env, "config", "init", "--path", env.configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote sample configuration")

	_, _, err = runCLI(t, env, "config", "init", "--path", env.configPath)
	require.Error(t, err)

	out, _, err = runCLI(t, env, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, env.configPath)
	assert.Contains(t, out, "[repack]")
	assert.Contains(t, out, "patch")
}

func TestInvalidLogLevel(t *testing.T) {
	t.Parallel()

	env := setupCLIEnv(t)
	_, _, err := runCLI(t, env, "--log-level", "verbose", "list", "--dir", env.dir)
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	t.Parallel()

	env := setupCLIEnv(t)
	out, _, err := runCLI(t, env, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "texpak "+version)
}
