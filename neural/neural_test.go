package neural

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtharp/reimburse/trip"
)

func TestFeatures(t *testing.T) {
	f := Features(trip.Case{Days: 5, Miles: 2500, Receipts: 20})
	require.Len(t, f, len(Names))
	named := map[string]float64{}
	for i, n := range Names {
		named[n] = f[i]
	}
	assert.Equal(t, 500.0, named["daily_miles"])
	assert.Equal(t, 4.0, named["daily_spend"])
	assert.Equal(t, 25.0, named["days_sq"])
	assert.Equal(t, 12500.0, named["miles_x_days"])
	assert.Equal(t, 1.0, named["is_5_day_trip"])
	assert.Equal(t, 0.0, named["is_long_trip"])
	assert.Equal(t, 0.0, named["is_short_trip"])
	assert.Equal(t, 1.0, named["is_hyper_efficient"])
	assert.Equal(t, 0.0, named["is_high_spend"])
	assert.Equal(t, 1.0, named["has_small_receipts"])
	assert.Equal(t, 1.0, named["bias"])

	zero := Features(trip.Case{Days: 0, Miles: 10, Receipts: 0})
	assert.Equal(t, 0.0, zero[3])
	assert.Equal(t, 0.0, zero[15], "zero receipts are not small receipts")
}

func TestScaler(t *testing.T) {
	s := FitScaler([][]float64{{1, 10, 7}, {3, 20, 7}, {2, 15, 7}})
	assert.Equal(t, []float64{1, 10, 7}, s.Min)
	assert.Equal(t, []float64{3, 20, 7}, s.Max)
	assert.Equal(t, []float64{0.5, 0.5, 0}, s.Apply([]float64{2, 15, 7}))
	assert.Equal(t, []float64{1.5, 0, 0}, s.Apply([]float64{4, 10, 9}))
	assert.Equal(t, Scaler{}, FitScaler(nil))
}

func TestRange(t *testing.T) {
	r := FitRange([]float64{100, 300, 200})
	assert.Equal(t, Range{Min: 100, Max: 300}, r)
	assert.Equal(t, 0.5, r.Scale(200))
	assert.Equal(t, 250.0, r.Invert(0.75))

	flat := FitRange([]float64{5, 5})
	assert.Equal(t, 0.0, flat.Scale(5))
	assert.Equal(t, 5.0, flat.Invert(0.3))
}

func TestNetworkStepReducesError(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	net := NewNetwork(3, 4, rng)
	for _, row := range net.W1 {
		for _, w := range row {
			assert.True(t, w >= -0.1 && w < 0.1)
		}
	}
	// make every unit active so the gradient flows
	for i := range net.W1 {
		for j := range net.W1[i] {
			net.W1[i][j] = math.Abs(net.W1[i][j]) + 0.01
		}
	}
	x := []float64{0.2, 0.5, 1}
	first := net.Step(x, 0.8, 0.1)
	var last float64
	for i := 0; i < 50; i++ {
		last = net.Step(x, 0.8, 0.1)
	}
	assert.Less(t, last, first)
}

func TestNetworkStepInactiveUnits(t *testing.T) {
	net := &Network{
		W1: [][]float64{{-1, 1}},
		W2: []float64{0.5, 0.5},
	}
	net.Step([]float64{1}, 0, 0.1)
	// unit 0 has negative pre-activation and must stay untouched
	assert.Equal(t, -1.0, net.W1[0][0])
	assert.Equal(t, 0.5, net.W2[0])
	// unit 1: out = 0.5, e = 0.5, dW2 = 0.1*1*0.5, dW1 = 0.1*1*(0.5*0.5)
	assert.InDelta(t, 0.45, net.W2[1], 1e-12)
	assert.InDelta(t, 0.975, net.W1[0][1], 1e-12)
}

func linearExamples() []trip.Example {
	var examples []trip.Example
	for d := 1; d <= 8; d++ {
		for _, m := range []float64{20, 120, 400} {
			for _, r := range []float64{15, 200, 900} {
				c := trip.Case{Days: d, Miles: m, Receipts: r}
				examples = append(examples, trip.Example{Input: c, Expected: 100*float64(d) + 0.5*m + 0.4*r})
			}
		}
	}
	return examples
}

func TestTrainManual(t *testing.T) {
	examples := linearExamples()
	cfg := DefaultTrainConfig()
	cfg.Epochs = 400
	cfg.ReportEvery = 100
	cfg.LearningRate = 0.05
	var reports []Epoch
	reg, err := Train(context.Background(), cfg, examples, func(e Epoch) { reports = append(reports, e) })
	require.NoError(t, err)
	require.Len(t, reports, 4)
	assert.Equal(t, 400, reports[3].Index)
	assert.Less(t, reports[3].RMSE, reports[0].RMSE)

	baseline := trip.MAE(trip.ModelFunc(func(trip.Case) float64 { return reg.Target.Invert(0.5) }), examples)
	assert.Less(t, trip.MAE(reg, examples), baseline)
	assert.Equal(t, 0.0, reg.Reimburse(trip.Case{Days: 0}))
}

func TestTrainDeterministic(t *testing.T) {
	cfg := DefaultTrainConfig()
	cfg.Epochs = 20
	a, err := Train(context.Background(), cfg, linearExamples(), nil)
	require.NoError(t, err)
	b, err := Train(context.Background(), cfg, linearExamples(), nil)
	require.NoError(t, err)
	assert.Equal(t, a.Net, b.Net)
}

func TestTrainCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reg, err := Train(ctx, DefaultTrainConfig(), linearExamples(), nil)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, reg)
}

func TestTrainRejectsBadConfig(t *testing.T) {
	cfg := DefaultTrainConfig()
	cfg.Backend = "transformer"
	_, err := Train(context.Background(), cfg, linearExamples(), nil)
	assert.Error(t, err)

	_, err = Train(context.Background(), DefaultTrainConfig(), nil, nil)
	assert.Error(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	cfg := DefaultTrainConfig()
	cfg.Epochs = 10
	examples := linearExamples()
	reg, err := Train(context.Background(), cfg, examples, nil)
	require.NoError(t, err)

	blob, err := json.Marshal(reg.Snapshot())
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(blob, &snap))
	back, err := FromSnapshot(&snap)
	require.NoError(t, err)
	for _, ex := range examples {
		assert.Equal(t, reg.Reimburse(ex.Input), back.Reimburse(ex.Input))
	}
}

func TestFromSnapshotRejects(t *testing.T) {
	_, err := FromSnapshot(nil)
	assert.Error(t, err)

	cfg := DefaultTrainConfig()
	cfg.Epochs = 1
	reg, err := Train(context.Background(), cfg, linearExamples(), nil)
	require.NoError(t, err)

	snap := reg.Snapshot()
	snap.Features = snap.Features[1:]
	_, err = FromSnapshot(snap)
	assert.Error(t, err)

	snap = reg.Snapshot()
	snap.Features[0] = "weekday"
	_, err = FromSnapshot(snap)
	assert.Error(t, err)

	snap = reg.Snapshot()
	snap.Net = nil
	_, err = FromSnapshot(snap)
	assert.Error(t, err)
}

func TestTrainDeep(t *testing.T) {
	cfg := DefaultTrainConfig()
	cfg.Backend = BackendDeep
	cfg.Epochs = 30
	cfg.ReportEvery = 10
	cfg.LearningRate = 0.01
	examples := linearExamples()
	var reports []Epoch
	reg, err := Train(context.Background(), cfg, examples, func(e Epoch) { reports = append(reports, e) })
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, 30, reports[2].Index)

	snap := reg.Snapshot()
	require.NotNil(t, snap.Deep)
	assert.Nil(t, snap.Net)
	back, err := FromSnapshot(snap)
	require.NoError(t, err)
	c := examples[5].Input
	assert.Equal(t, reg.Reimburse(c), back.Reimburse(c))
}
