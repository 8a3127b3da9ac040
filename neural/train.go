package neural

import (
	"context"
	"math"
	"math/rand"

	deep "github.com/patrikeh/go-deep"
	"github.com/patrikeh/go-deep/training"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mtharp/reimburse/trip"
)

const (
	BackendManual = "mlp"
	BackendDeep   = "deep"
)

type TrainConfig struct {
	Backend      string
	Hidden       int
	LearningRate float64
	Epochs       int
	ReportEvery  int
	Seed         int64
	Log          *zap.Logger
}

func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Backend:      BackendManual,
		Hidden:       16,
		LearningRate: 0.1,
		Epochs:       30000,
		ReportEvery:  1000,
		Seed:         1,
	}
}

func (c *TrainConfig) Validate() error {
	switch c.Backend {
	case BackendManual, BackendDeep:
	default:
		return errors.Errorf("unknown backend %q", c.Backend)
	}
	if c.Hidden <= 0 {
		return errors.Errorf("hidden must be > 0 (got %d)", c.Hidden)
	}
	if c.LearningRate <= 0 {
		return errors.Errorf("learning rate must be > 0 (got %f)", c.LearningRate)
	}
	if c.Epochs <= 0 {
		return errors.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.ReportEvery <= 0 {
		c.ReportEvery = 1000
	}
	return nil
}

// Epoch is reported every ReportEvery epochs. RMSE is in dollars.
type Epoch struct {
	Index int
	Total int
	RMSE  float64
}

type sample struct {
	x []float64
	y float64
}

func prepare(examples []trip.Example) (Scaler, Range, []sample) {
	raw := make([][]float64, len(examples))
	ys := make([]float64, len(examples))
	for i, ex := range examples {
		raw[i] = Features(ex.Input)
		ys[i] = ex.Expected
	}
	scaler := FitScaler(raw)
	target := FitRange(ys)
	set := make([]sample, len(examples))
	for i := range examples {
		set[i] = sample{x: scaler.Apply(raw[i]), y: target.Scale(ys[i])}
	}
	return scaler, target, set
}

// Train fits a network to examples. On cancellation the partially trained
// regressor is returned together with ctx.Err().
func Train(ctx context.Context, cfg TrainConfig, examples []trip.Example, report func(Epoch)) (*Regressor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(examples) == 0 {
		return nil, errors.New("no examples to train on")
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	scaler, target, set := prepare(examples)
	log.Info("data prepared",
		zap.Int("examples", len(set)),
		zap.Float64("target_min", target.Min),
		zap.Float64("target_max", target.Max))

	if cfg.Backend == BackendDeep {
		return trainDeep(ctx, cfg, scaler, target, set, report)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	net := NewNetwork(len(Names), cfg.Hidden, rng)
	reg := &Regressor{Scaler: scaler, Target: target, Net: net}
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return reg, err
		}
		var sq float64
		for _, s := range set {
			sq += net.Step(s.x, s.y, cfg.LearningRate)
		}
		if epoch%cfg.ReportEvery == 0 || epoch == cfg.Epochs {
			rmse := math.Sqrt(sq/float64(len(set))) * target.Span()
			if report != nil {
				report(Epoch{Index: epoch, Total: cfg.Epochs, RMSE: rmse})
			}
		}
	}
	return reg, nil
}

// trainDeep trains a go-deep network over the same scaled data, in chunks of
// ReportEvery epochs so progress can be reported and cancellation observed.
// go-deep draws initial weights and shuffles from the global source, so runs
// are not reproducible by seed.
func trainDeep(ctx context.Context, cfg TrainConfig, scaler Scaler, target Range, set []sample, report func(Epoch)) (*Regressor, error) {
	nn := deep.NewNeural(&deep.Config{
		Inputs:     len(Names),
		Layout:     []int{cfg.Hidden, 1},
		Activation: deep.ActivationReLU,
		Mode:       deep.ModeRegression,
		Weight:     deep.NewUniform(0.1, 0.0),
	})
	examples := make(training.Examples, len(set))
	for i, s := range set {
		examples[i] = training.Example{Input: s.x, Response: []float64{s.y}}
	}
	trainer := training.NewTrainer(training.NewSGD(cfg.LearningRate, 0, 0, false), 0)

	for done := 0; done < cfg.Epochs; {
		if err := ctx.Err(); err != nil {
			return &Regressor{Scaler: scaler, Target: target, Net: newDeepNet(nn.Dump())}, err
		}
		chunk := cfg.ReportEvery
		if done+chunk > cfg.Epochs {
			chunk = cfg.Epochs - done
		}
		trainer.Train(nn, examples, nil, chunk)
		done += chunk
		if report != nil {
			var sq float64
			for _, s := range set {
				e := nn.Predict(s.x)[0] - s.y
				sq += e * e
			}
			report(Epoch{Index: done, Total: cfg.Epochs, RMSE: math.Sqrt(sq/float64(len(set))) * target.Span()})
		}
	}
	return &Regressor{Scaler: scaler, Target: target, Net: newDeepNet(nn.Dump())}, nil
}
