// Package config loads reimburse settings from file, environment and flags.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/mtharp/reimburse/evolve"
	"github.com/mtharp/reimburse/neural"
)

type Cases struct {
	Path  string `mapstructure:"path"`
	DBURL string `mapstructure:"db_url"`
	Table string `mapstructure:"table"`
}

type GA struct {
	Population      int     `mapstructure:"population"`
	Generations     int     `mapstructure:"generations"`
	Elite           int     `mapstructure:"elite"`
	MutationRate    float64 `mapstructure:"mutation_rate"`
	InitialMutation float64 `mapstructure:"initial_mutation"`
	Workers         int     `mapstructure:"workers"`
	Seed            int64   `mapstructure:"seed"`
}

type NN struct {
	Backend      string  `mapstructure:"backend"`
	Hidden       int     `mapstructure:"hidden"`
	LearningRate float64 `mapstructure:"learning_rate"`
	Epochs       int     `mapstructure:"epochs"`
	ReportEvery  int     `mapstructure:"report_every"`
	Seed         int64   `mapstructure:"seed"`
}

type Output struct {
	Dir string `mapstructure:"dir"`
}

type Log struct {
	Level string `mapstructure:"level"`
	Dev   bool   `mapstructure:"dev"`
}

type Progress struct {
	Listen string `mapstructure:"listen"`
}

type Config struct {
	Cases    Cases    `mapstructure:"cases"`
	GA       GA       `mapstructure:"ga"`
	NN       NN       `mapstructure:"nn"`
	Output   Output   `mapstructure:"output"`
	Log      Log      `mapstructure:"log"`
	Progress Progress `mapstructure:"progress"`
}

// SetDefaults registers every knob on v so environment variables can
// override keys that appear in no file.
func SetDefaults(v *viper.Viper) {
	ga := evolve.DefaultConfig()
	nn := neural.DefaultTrainConfig()

	v.SetDefault("cases.path", "public_cases.json")
	v.SetDefault("cases.db_url", "")
	v.SetDefault("cases.table", "cases")

	v.SetDefault("ga.population", ga.Population)
	v.SetDefault("ga.generations", ga.Generations)
	v.SetDefault("ga.elite", ga.Elite)
	v.SetDefault("ga.mutation_rate", ga.MutationRate)
	v.SetDefault("ga.initial_mutation", ga.InitialMutation)
	v.SetDefault("ga.workers", 0)
	v.SetDefault("ga.seed", ga.Seed)

	v.SetDefault("nn.backend", nn.Backend)
	v.SetDefault("nn.hidden", nn.Hidden)
	v.SetDefault("nn.learning_rate", nn.LearningRate)
	v.SetDefault("nn.epochs", nn.Epochs)
	v.SetDefault("nn.report_every", nn.ReportEvery)
	v.SetDefault("nn.seed", nn.Seed)

	v.SetDefault("output.dir", "models")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.dev", false)
	v.SetDefault("progress.listen", "")
}

// Load reads the config file at path, or reimburse.{yaml,json,toml} in the
// working directory when path is empty. A missing default file is not an
// error; a missing explicit one is.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix("reimburse")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("reimburse")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, errors.Wrap(err, "read config")
		}
	}
	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Cases.Path == "" && c.Cases.DBURL == "" {
		return errors.New("cases.path or cases.db_url must be set")
	}
	if c.Output.Dir == "" {
		return errors.New("output.dir must be set")
	}
	ga := c.Evolve()
	if err := ga.Validate(); err != nil {
		return errors.Wrap(err, "ga")
	}
	nn := c.Train()
	if err := nn.Validate(); err != nil {
		return errors.Wrap(err, "nn")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("log.level must be debug, info, warn or error (got %q)", c.Log.Level)
	}
	return nil
}

// Evolve converts the ga section for the evolve package.
func (c *Config) Evolve() evolve.Config {
	return evolve.Config{
		Population:      c.GA.Population,
		Generations:     c.GA.Generations,
		Elite:           c.GA.Elite,
		MutationRate:    c.GA.MutationRate,
		InitialMutation: c.GA.InitialMutation,
		Workers:         c.GA.Workers,
		Seed:            c.GA.Seed,
	}
}

// Train converts the nn section for the neural package.
func (c *Config) Train() neural.TrainConfig {
	return neural.TrainConfig{
		Backend:      c.NN.Backend,
		Hidden:       c.NN.Hidden,
		LearningRate: c.NN.LearningRate,
		Epochs:       c.NN.Epochs,
		ReportEvery:  c.NN.ReportEvery,
		Seed:         c.NN.Seed,
	}
}
