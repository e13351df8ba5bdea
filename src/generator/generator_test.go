package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmdp_instances/src/mmdp"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs(append(args, "--silent"))
	err := root.Execute()
	return out.String(), err
}

func TestGenerateWritesReferenceFiles(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "generate", "4", "--out", dir, "--trials", "2")
	require.NoError(t, err)

	paths := strings.Fields(out)
	require.Equal(t, []string{filepath.Join(dir, "II_4_1.txt"), filepath.Join(dir, "II_4_2.txt")}, paths)

	for _, name := range []string{"II_4_1.txt", "II_4_2.txt"} {
		want, err := os.ReadFile(filepath.Join("..", "mmdp", "testdata", name))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got))
	}
}

func TestGenerateVariantsJSON(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "generate", "4", "--variant", "mmdpi", "--out", dir, "--trials", "1", "--json")
	require.NoError(t, err)

	var res struct {
		Variant string `json:"variant"`
		N       int    `json:"n"`
		Seed    uint64 `json:"seed"`
		Mode    string `json:"mode"`
		Files   []struct {
			Trial  int    `json:"trial"`
			Path   string `json:"path"`
			Lines  int    `json:"lines"`
			SHA256 string `json:"sha256"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "MMDPI", res.Variant)
	assert.Equal(t, 4, res.N)
	assert.Equal(t, uint64(10000), res.Seed)
	assert.Equal(t, "overwrite", res.Mode)
	require.Len(t, res.Files, 1)
	assert.Equal(t, filepath.Join(dir, "MDPI1_4.txt"), res.Files[0].Path)
	assert.Equal(t, 6, res.Files[0].Lines)
	assert.Len(t, res.Files[0].SHA256, 64)
}

func TestGenerateRejectsBadSize(t *testing.T) {
	for _, arg := range []string{"0", "-1", "ten"} {
		_, err := execute(t, "generate", arg, "--out", t.TempDir())
		assert.Error(t, err, arg)
	}
	_, err := execute(t, "generate")
	assert.Error(t, err)
}

func TestGenerateParallelNeedsIndependentTrials(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "generate", "5", "--out", dir, "--workers", "2")
	require.Error(t, err)

	out, err := execute(t, "generate", "5", "--out", dir, "--workers", "2", "--independent-trials", "--trials", "4")
	require.NoError(t, err)
	assert.Len(t, strings.Fields(out), 4)
}

func TestInspectAndCatalog(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "catalog.db")
	_, err := execute(t, "generate", "4", "--variant", "iv", "--out", dir, "--trials", "2", "--catalog", db)
	require.NoError(t, err)

	out, err := execute(t, "inspect", filepath.Join(dir, "IV_4_1.txt"), "--json")
	require.NoError(t, err)
	var reports []struct {
		Lines      int `json:"lines"`
		HeaderN    int `json:"header_n"`
		Duplicates int `json:"duplicate_pairs"`
		Summary    struct {
			Negative int `json:"negative_pairs"`
			Zero     int `json:"zero_pairs"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, 11, reports[0].Lines)
	assert.Equal(t, 4, reports[0].HeaderN)
	assert.Equal(t, 0, reports[0].Duplicates)
	assert.Equal(t, 1, reports[0].Summary.Negative)
	assert.Equal(t, 4, reports[0].Summary.Zero)

	out, err = execute(t, "catalog", "--catalog", db, "--variant", "fixed")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "VARIANT")
	assert.Contains(t, lines[1], "IV_4_1.txt")
	assert.Contains(t, lines[2], "IV_4_2.txt")

	out, err = execute(t, "catalog", "--catalog", db, "--n", "5")
	require.NoError(t, err)
	assert.Equal(t, 1, len(strings.Split(strings.TrimSpace(out), "\n")))
}

func TestInspectMissingFile(t *testing.T) {
	_, err := execute(t, "inspect", filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "mmdpgen version "+version+"\n", out)
}

func TestRootTakesSize(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MMDPGEN_OUT_DIR", dir)
	out, err := execute(t, "4")
	require.NoError(t, err)
	assert.Len(t, strings.Fields(out), 10)

	want, err := os.ReadFile(filepath.Join("..", "mmdp", "testdata", "II_4_1.txt"))
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(dir, "II_4_1.txt"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	_, err = execute(t, "four")
	assert.Error(t, err)

	out, err = execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
}

func TestInspectRejectsOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.txt")
	require.NoError(t, os.WriteFile(path, []byte("1 50000 5.00\n"), 0644))
	_, err := execute(t, "inspect", path)
	require.ErrorIs(t, err, mmdp.ErrResourceLimit)
}
