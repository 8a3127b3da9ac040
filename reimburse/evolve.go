package main

import (
	"context"
	"math"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mtharp/reimburse/evolve"
	"github.com/mtharp/reimburse/formula"
	"github.com/mtharp/reimburse/model"
	"github.com/mtharp/reimburse/progress"
	"github.com/mtharp/reimburse/rules"
	"github.com/mtharp/reimburse/trip"
)

var evolveFlags struct {
	seedFile   string
	exportYAML string
	kind       string
}

var evolveCmd = &cobra.Command{
	Use:   "evolve",
	Short: "Search model parameters with a genetic algorithm",
}

var evolveRulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Evolve an ordered rule set, starting from the genesis rules or --seed-file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		seed := rules.Genesis()
		if evolveFlags.seedFile != "" {
			var err error
			if seed, err = rules.LoadYAML(evolveFlags.seedFile); err != nil {
				return err
			}
		}
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		score := func(ch rules.Chromosome) float64 {
			return trip.Fitness(trip.MAE(ch, s.examples))
		}
		best, err := runGA(cmd.Context(), s, model.KindRules, seed, rules.Ops{}, score)
		if err != nil {
			return err
		}
		a := model.New(model.KindRules)
		a.Chromosome = best
		if err := s.finish(cmd.Context(), a); err != nil {
			return err
		}
		if evolveFlags.exportYAML != "" {
			return exportRules(evolveFlags.exportYAML, best)
		}
		return nil
	},
}

var evolveTableCmd = &cobra.Command{
	Use:   "table",
	Short: "Evolve the coefficient table of a hand-written formula",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := evolveFlags.kind
		seed, err := formula.Default(kind)
		if err != nil {
			return err
		}
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		score := func(t formula.Table) float64 {
			m, err := formula.New(kind, t)
			if err != nil {
				return math.NaN()
			}
			return trip.Fitness(trip.MAE(m, s.examples))
		}
		best, err := runGA(cmd.Context(), s, kind, seed, formula.TableOps{}, score)
		if err != nil {
			return err
		}
		a := model.New(kind)
		a.Table = best
		return s.finish(cmd.Context(), a)
	},
}

func init() {
	evolveRulesCmd.Flags().StringVar(&evolveFlags.seedFile, "seed-file", "", "YAML rule set to start from")
	evolveRulesCmd.Flags().StringVar(&evolveFlags.exportYAML, "export-yaml", "", "also write the evolved rules as YAML")
	evolveTableCmd.Flags().StringVar(&evolveFlags.kind, "kind", formula.KindProfile, "formula to tune: paths, profile or tiered")
	for _, c := range []*cobra.Command{evolveRulesCmd, evolveTableCmd} {
		f := c.Flags()
		f.Int("population", 0, "population size")
		f.Int("generations", 0, "number of generations")
		f.Int("elite", 0, "individuals carried over unchanged")
		f.Float64("mutation-rate", 0, "per-gene mutation probability")
		f.Int64("seed", 0, "random seed")
		f.Int("workers", 0, "parallel fitness evaluations (0: GOMAXPROCS)")
	}
	evolveCmd.AddCommand(evolveRulesCmd, evolveTableCmd)
	evolveCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return bindFlags(cmd, map[string]string{
			"population":    "ga.population",
			"generations":   "ga.generations",
			"elite":         "ga.elite",
			"mutation-rate": "ga.mutation_rate",
			"seed":          "ga.seed",
			"workers":       "ga.workers",
		})
	}
}

// runGA evolves seed and logs each generation the way the trainer always
// has: generation number and the best mean absolute error.
func runGA[G any](ctx context.Context, s *session, kind string, seed G, ops evolve.Ops[G], score evolve.Score[G]) (G, error) {
	cfg := s.cfg.Evolve()
	cfg.Log = logger
	logger.Info("starting genetic search",
		zap.String("kind", kind),
		zap.Int("population", cfg.Population),
		zap.Int("generations", cfg.Generations),
		zap.Float64("seed_mae", trip.MAEFromFitness(score(seed))))
	res, err := evolve.Run(ctx, cfg, seed, ops, score, func(g evolve.Generation) {
		mae := trip.MAEFromFitness(g.Best)
		logger.Info("generation", zap.Int("gen", g.Index), zap.Int("of", g.Total), zap.Float64("best_mae", mae))
		s.publish(progress.Event{Kind: kind, Step: g.Index, Total: g.Total, MAE: mae})
	})
	if errors.Cause(err) == context.Canceled {
		logger.Warn("interrupted, keeping best so far", zap.Int("generations", res.Generations))
		return res.Best, nil
	}
	return res.Best, err
}

func exportRules(path string, ch rules.Chromosome) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "export rules")
	}
	if err := rules.WriteYAML(f, ch); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
