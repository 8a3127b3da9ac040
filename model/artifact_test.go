package model

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtharp/reimburse/formula"
	"github.com/mtharp/reimburse/neural"
	"github.com/mtharp/reimburse/rules"
	"github.com/mtharp/reimburse/trip"
)

var sample = trip.Case{Days: 5, Miles: 250, Receipts: 100}

func TestBuiltin(t *testing.T) {
	for _, kind := range []string{KindPaths, KindProfile, KindRules} {
		m, err := Builtin(kind)
		require.NoError(t, err, kind)
		assert.Greater(t, m.Reimburse(sample), 0.0, kind)
	}
	for _, kind := range []string{KindTiered, KindMLP, KindDeep} {
		_, err := Builtin(kind)
		assert.ErrorIs(t, err, ErrNeedsArtifact, kind)
	}
	_, err := Builtin("oracle")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestSaveLoadRules(t *testing.T) {
	path := Path(t.TempDir(), KindRules)
	a := New(KindRules)
	a.Chromosome = rules.Genesis()
	a.MAE = 123.45
	require.NoError(t, Save(path, a))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, a.ID, back.ID)
	assert.True(t, a.Created.Equal(back.Created))
	assert.Empty(t, cmp.Diff(a.Chromosome, back.Chromosome))

	m, err := back.Model()
	require.NoError(t, err)
	assert.Equal(t, rules.Genesis().Reimburse(sample), m.Reimburse(sample))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestSaveLoadTable(t *testing.T) {
	path := Path(t.TempDir(), KindProfile)
	a := New(KindProfile)
	a.Table = formula.DefaultProfile()
	require.NoError(t, Save(path, a))
	back, err := Load(path)
	require.NoError(t, err)
	m, err := back.Model()
	require.NoError(t, err)
	want, err := Builtin(KindProfile)
	require.NoError(t, err)
	assert.Equal(t, want.Reimburse(sample), m.Reimburse(sample))
}

func TestSaveLoadNetwork(t *testing.T) {
	examples := []trip.Example{
		{Input: trip.Case{Days: 1, Miles: 10, Receipts: 5}, Expected: 120},
		{Input: trip.Case{Days: 4, Miles: 300, Receipts: 500}, Expected: 900},
		{Input: trip.Case{Days: 9, Miles: 800, Receipts: 1500}, Expected: 1900},
	}
	cfg := neural.DefaultTrainConfig()
	cfg.Epochs = 5
	reg, err := neural.Train(context.Background(), cfg, examples, nil)
	require.NoError(t, err)

	path := Path(t.TempDir(), KindMLP)
	a := New(KindMLP)
	a.Network = reg.Snapshot()
	require.NoError(t, Save(path, a))
	back, err := Load(path)
	require.NoError(t, err)
	m, err := back.Model()
	require.NoError(t, err)
	assert.Equal(t, reg.Reimburse(sample), m.Reimburse(sample))
}

func TestModelErrors(t *testing.T) {
	_, err := (&Artifact{Kind: KindPaths}).Model()
	assert.Error(t, err)
	_, err = (&Artifact{Kind: KindRules}).Model()
	assert.Error(t, err)
	_, err = (&Artifact{Kind: KindDeep}).Model()
	assert.Error(t, err)
	_, err = (&Artifact{Kind: "oracle"}).Model()
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestBest(t *testing.T) {
	dir := t.TempDir()
	for i, mae := range []float64{80, 40, 60} {
		a := New(KindRules)
		a.Chromosome = rules.Genesis()
		a.MAE = mae
		require.NoError(t, Save(filepath.Join(dir, []string{"a", "b", "c"}[i]+".json"), a))
	}
	other := New(KindPaths)
	other.Table = formula.DefaultPaths()
	other.MAE = 1
	require.NoError(t, Save(filepath.Join(dir, "paths.json"), other))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.json"), []byte("{"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	best, err := Best(dir, KindRules, nil)
	require.NoError(t, err)
	assert.Equal(t, 40.0, best.MAE)

	_, err = Best(dir, KindDeep, nil)
	assert.ErrorIs(t, err, ErrNoArtifacts)
	_, err = Best(filepath.Join(dir, "nope"), KindRules, nil)
	assert.ErrorIs(t, err, ErrNoArtifacts)
}

func TestTieredArtifact(t *testing.T) {
	a := New(KindTiered)
	a.Table = formula.DefaultTiered()
	path := Path(t.TempDir(), KindTiered)
	require.NoError(t, Save(path, a))
	back, err := Load(path)
	require.NoError(t, err)
	m, err := back.Model()
	require.NoError(t, err)
	assert.InDelta(t, 758.0, m.Reimburse(sample), 0.001)
}
