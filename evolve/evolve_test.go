package evolve

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtharp/reimburse/formula"
	"github.com/mtharp/reimburse/rules"
	"github.com/mtharp/reimburse/trip"
)

// point is a toy genome: a pair of coordinates searched toward a target.
type point [2]float64

type pointOps struct{}

func (pointOps) Cross(rng *rand.Rand, a, b point) point {
	var c point
	for i := range c {
		if rng.Float64() < 0.5 {
			c[i] = a[i]
		} else {
			c[i] = b[i]
		}
	}
	return c
}

func (pointOps) Mutate(rng *rand.Rand, p point, rate float64) point {
	for i := range p {
		if rng.Float64() < rate {
			p[i] += rng.NormFloat64() * 2
		}
	}
	return p
}

func distance(p point) float64 {
	return math.Hypot(p[0]-3, p[1]+4)
}

func pointScore(p point) float64 {
	return trip.Fitness(distance(p))
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Population = 40
	cfg.Generations = 60
	cfg.Elite = 4
	cfg.MutationRate = 0.3
	cfg.InitialMutation = 1
	return cfg
}

func TestRunConverges(t *testing.T) {
	var reports []Generation
	res, err := Run(context.Background(), smallConfig(), point{}, pointOps{}, pointScore, func(g Generation) {
		reports = append(reports, g)
	})
	require.NoError(t, err)
	require.Len(t, reports, 60)
	assert.Less(t, distance(res.Best), distance(point{}))
	assert.Less(t, distance(res.Best), 1.5)
	assert.Equal(t, 60, res.Generations)

	// elitism keeps the best score from ever going down
	for i := 1; i < len(reports); i++ {
		assert.GreaterOrEqual(t, reports[i].Best, reports[i-1].Best)
		assert.GreaterOrEqual(t, reports[i].Best, reports[i].Median)
	}
	assert.GreaterOrEqual(t, res.Fitness, reports[len(reports)-1].Best)
}

func TestRunDeterministicAcrossWorkers(t *testing.T) {
	cfg := smallConfig()
	cfg.Workers = 1
	a, err := Run(context.Background(), cfg, point{}, pointOps{}, pointScore, nil)
	require.NoError(t, err)
	cfg.Workers = 8
	b, err := Run(context.Background(), cfg, point{}, pointOps{}, pointScore, nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := smallConfig()
	res, err := Run(ctx, cfg, point{}, pointOps{}, pointScore, func(g Generation) {
		if g.Index == 3 {
			cancel()
		}
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, res.Generations)
	assert.False(t, math.IsInf(res.Fitness, -1))
}

func TestRunNaNScores(t *testing.T) {
	cfg := smallConfig()
	cfg.Generations = 2
	res, err := Run(context.Background(), cfg, point{}, pointOps{}, func(point) float64 { return math.NaN() }, nil)
	require.NoError(t, err)
	assert.Equal(t, -1e6, res.Fitness)
}

func TestValidate(t *testing.T) {
	bad := []func(*Config){
		func(c *Config) { c.Population = 1 },
		func(c *Config) { c.Generations = 0 },
		func(c *Config) { c.Elite = c.Population + 1 },
		func(c *Config) { c.Elite = -1 },
		func(c *Config) { c.MutationRate = 1.5 },
		func(c *Config) { c.InitialMutation = -0.1 },
	}
	for i, mod := range bad {
		cfg := DefaultConfig()
		mod(&cfg)
		assert.Error(t, cfg.Validate(), "case %d", i)
	}
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestRunRulesImproves(t *testing.T) {
	// examples generated from a known rule set the genesis chromosome differs from
	target := rules.Genesis()
	target[0].Amount = 80
	target[3].Amount = 0.6
	var examples []trip.Example
	for d := 1; d <= 10; d++ {
		for _, m := range []float64{40, 150, 600} {
			c := trip.Case{Days: d, Miles: m, Receipts: float64(d) * 55}
			examples = append(examples, trip.Example{Input: c, Expected: target.Reimburse(c)})
		}
	}
	score := func(ch rules.Chromosome) float64 { return trip.Fitness(trip.MAE(ch, examples)) }

	cfg := smallConfig()
	cfg.Population = 30
	cfg.Generations = 25
	cfg.InitialMutation = 0.7
	cfg.MutationRate = 0.1
	res, err := Run(context.Background(), cfg, rules.Genesis(), rules.Ops{}, score, nil)
	require.NoError(t, err)
	require.NoError(t, res.Best.Validate())
	assert.Less(t, trip.MAE(res.Best, examples), trip.MAE(rules.Genesis(), examples))
}

func TestRunTableImproves(t *testing.T) {
	target := formula.DefaultPaths()
	target["local_per_diem_rate"] = 90
	target["std_per_diem_rate"] = 105
	truth, err := formula.NewPaths(target)
	require.NoError(t, err)
	var examples []trip.Example
	for d := 1; d <= 12; d++ {
		c := trip.Case{Days: d, Miles: float64(d) * 60, Receipts: float64(d) * 40}
		examples = append(examples, trip.Example{Input: c, Expected: truth.Reimburse(c)})
	}
	score := func(tbl formula.Table) float64 {
		m, err := formula.NewPaths(tbl)
		if err != nil {
			return math.NaN()
		}
		return trip.Fitness(trip.MAE(m, examples))
	}
	cfg := smallConfig()
	cfg.Generations = 30
	cfg.InitialMutation = 0.5
	cfg.MutationRate = 0.1
	res, err := Run(context.Background(), cfg, formula.DefaultPaths(), formula.TableOps{}, score, nil)
	require.NoError(t, err)
	assert.Greater(t, res.Fitness, score(formula.DefaultPaths()))
}
