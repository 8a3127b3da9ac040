// Package evolve runs an elitist genetic algorithm over any genome type.
package evolve

import (
	"context"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Ops knows how to breed genomes of type G.
type Ops[G any] interface {
	Cross(rng *rand.Rand, a, b G) G
	Mutate(rng *rand.Rand, g G, rate float64) G
}

// Score returns a fitness, higher is better.
type Score[G any] func(g G) float64

type Config struct {
	Population      int
	Generations     int
	Elite           int
	MutationRate    float64
	InitialMutation float64
	Workers         int
	Seed            int64
	Log             *zap.Logger
}

// DefaultConfig mirrors the settings the rule trainer was tuned with.
func DefaultConfig() Config {
	return Config{
		Population:      100,
		Generations:     250,
		Elite:           10,
		MutationRate:    0.1,
		InitialMutation: 0.7,
		Seed:            1,
	}
}

func (c *Config) Validate() error {
	if c.Population < 2 {
		return errors.Errorf("population must be >= 2 (got %d)", c.Population)
	}
	if c.Generations < 1 {
		return errors.Errorf("generations must be >= 1 (got %d)", c.Generations)
	}
	if c.Elite < 0 || c.Elite > c.Population {
		return errors.Errorf("elite must be within [0, %d] (got %d)", c.Population, c.Elite)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return errors.Errorf("mutation rate must be within [0, 1] (got %f)", c.MutationRate)
	}
	if c.InitialMutation < 0 || c.InitialMutation > 1 {
		return errors.Errorf("initial mutation must be within [0, 1] (got %f)", c.InitialMutation)
	}
	return nil
}

// Generation is reported once per generation after scoring.
type Generation struct {
	Index  int
	Total  int
	Best   float64
	Median float64
}

type scored[G any] struct {
	g     G
	score float64
}

// Result is the fittest genome seen by the run.
type Result[G any] struct {
	Best        G
	Fitness     float64
	Generations int
}

// Run evolves a population seeded from mutations of seed. report, if not nil,
// is called from the calling goroutine after each generation is scored. If ctx
// is cancelled the best genome so far is returned along with ctx.Err().
func Run[G any](ctx context.Context, cfg Config, seed G, ops Ops[G], score Score[G], report func(Generation)) (Result[G], error) {
	if err := cfg.Validate(); err != nil {
		return Result[G]{}, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	pop := make([]G, cfg.Population)
	for i := range pop {
		pop[i] = ops.Mutate(rng, seed, cfg.InitialMutation)
	}

	var best scored[G]
	haveBest := false
	for gen := 0; gen < cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return finish(best, haveBest, seed, gen), err
		}
		scores, err := scoreAll(ctx, pop, score, cfg.Workers)
		if err != nil {
			return finish(best, haveBest, seed, gen), err
		}
		if !haveBest || scores[0].score > best.score {
			best = scores[0]
			haveBest = true
		}
		if report != nil {
			report(Generation{
				Index:  gen + 1,
				Total:  cfg.Generations,
				Best:   scores[0].score,
				Median: scores[len(scores)/2].score,
			})
		}
		log.Debug("generation scored",
			zap.Int("generation", gen+1),
			zap.Float64("best", scores[0].score),
			zap.Float64("worst", scores[len(scores)-1].score))

		next := make([]G, 0, cfg.Population)
		for i := 0; i < cfg.Elite; i++ {
			next = append(next, scores[i].g)
		}
		// parents come from the top half, uniformly
		parents := scores[:max(cfg.Population/2, 1)]
		for len(next) < cfg.Population {
			p1 := parents[rng.Intn(len(parents))].g
			p2 := parents[rng.Intn(len(parents))].g
			child := ops.Cross(rng, p1, p2)
			next = append(next, ops.Mutate(rng, child, cfg.MutationRate))
		}
		pop = next
	}

	// the last generation's children have not been scored yet
	scores, err := scoreAll(ctx, pop, score, cfg.Workers)
	if err != nil {
		return finish(best, haveBest, seed, cfg.Generations), err
	}
	if scores[0].score > best.score {
		best = scores[0]
	}
	return finish(best, true, seed, cfg.Generations), nil
}

func finish[G any](best scored[G], ok bool, seed G, gens int) Result[G] {
	if !ok {
		return Result[G]{Best: seed, Fitness: math.Inf(-1), Generations: gens}
	}
	return Result[G]{Best: best.g, Fitness: best.score, Generations: gens}
}

// scoreAll evaluates every genome in parallel and returns them highest
// first. Ties keep population order so runs are reproducible.
func scoreAll[G any](ctx context.Context, pop []G, score Score[G], workers int) ([]scored[G], error) {
	out := make([]scored[G], len(pop))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, g := range pop {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s := score(g)
			if math.IsNaN(s) {
				s = -1e6
			}
			out[i] = scored[G]{g, s}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		// highest first
		return out[i].score > out[j].score
	})
	return out, nil
}
