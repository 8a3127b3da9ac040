package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "public_cases.json", cfg.Cases.Path)
	assert.Equal(t, 100, cfg.GA.Population)
	assert.Equal(t, 250, cfg.GA.Generations)
	assert.Equal(t, 10, cfg.GA.Elite)
	assert.Equal(t, 0.1, cfg.GA.MutationRate)
	assert.Equal(t, 16, cfg.NN.Hidden)
	assert.Equal(t, 30000, cfg.NN.Epochs)
	assert.Equal(t, "mlp", cfg.NN.Backend)
	assert.Equal(t, "models", cfg.Output.Dir)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reimburse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cases:
  path: data/cases.json
ga:
  population: 20
  elite: 2
nn:
  backend: deep
  epochs: 500
log:
  level: debug
`), 0644))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "data/cases.json", cfg.Cases.Path)
	assert.Equal(t, 20, cfg.GA.Population)
	assert.Equal(t, 2, cfg.GA.Elite)
	assert.Equal(t, 250, cfg.GA.Generations)
	assert.Equal(t, "deep", cfg.Train().Backend)
	assert.Equal(t, 500, cfg.Train().Epochs)
	assert.Equal(t, 20, cfg.Evolve().Population)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("REIMBURSE_GA_GENERATIONS", "7")
	cfg, err := Load(viper.New(), writeEmpty(t))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.GA.Generations)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reimburse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ga:\n  elite: 500\n"), 0644))
	_, err := Load(viper.New(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "elite")
}

func TestValidate(t *testing.T) {
	v := viper.New()
	cfg, err := Load(v, writeEmpty(t))
	require.NoError(t, err)

	bad := *cfg
	bad.Log.Level = "loud"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.NN.Backend = "svm"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Cases.Path = ""
	assert.Error(t, bad.Validate())
	bad.Cases.DBURL = "postgres://localhost/cases"
	assert.NoError(t, bad.Validate())

	bad = *cfg
	bad.Output.Dir = ""
	assert.Error(t, bad.Validate())
}

func writeEmpty(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reimburse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0644))
	return path
}
