package trip

import "math"

const (
	exactTolerance = 0.01
	closeTolerance = 1.00
)

// Stats summarises how far a model is from the expected outputs.
type Stats struct {
	Count    int
	MAE      float64
	RMSE     float64
	MaxError float64
	Exact    int
	Close    int
	Worst    Example
}

func Evaluate(m Model, examples []Example) Stats {
	var st Stats
	if len(examples) == 0 {
		return st
	}
	var absSum, sqSum float64
	for _, ex := range examples {
		diff := math.Abs(m.Reimburse(ex.Input) - ex.Expected)
		absSum += diff
		sqSum += diff * diff
		if diff <= exactTolerance {
			st.Exact++
		}
		if diff <= closeTolerance {
			st.Close++
		}
		if diff > st.MaxError || st.Count == 0 {
			st.MaxError = diff
			st.Worst = ex
		}
		st.Count++
	}
	st.MAE = absSum / float64(st.Count)
	st.RMSE = math.Sqrt(sqSum / float64(st.Count))
	return st
}

// MAE is Evaluate without the bookkeeping, for hot loops.
func MAE(m Model, examples []Example) float64 {
	if len(examples) == 0 {
		return 0
	}
	var sum float64
	for _, ex := range examples {
		sum += math.Abs(m.Reimburse(ex.Input) - ex.Expected)
	}
	return sum / float64(len(examples))
}

// Fitness maps a mean absolute error onto (0, 1], higher is better.
func Fitness(mae float64) float64 {
	return 1 / (mae + 1)
}

func MAEFromFitness(fitness float64) float64 {
	if fitness <= 0 {
		return math.Inf(1)
	}
	return 1/fitness - 1
}
