package rules

import (
	"math/rand"
)

type mutation int

const (
	mutateValue mutation = iota
	mutateAmount
	mutateOperator
	mutateEnabled
)

// Ops evolves chromosomes of equal length.
type Ops struct{}

// Cross takes each gene whole from one parent or the other, so a gene's
// feature and action always stay paired.
func (Ops) Cross(rng *rand.Rand, a, b Chromosome) Chromosome {
	child := make(Chromosome, len(a))
	for i := range a {
		if i < len(b) && rng.Float64() >= 0.5 {
			child[i] = b[i]
		} else {
			child[i] = a[i]
		}
	}
	return child
}

// Mutate returns a copy of ch where each gene, with probability rate, has
// one of its fields perturbed.
func (Ops) Mutate(rng *rand.Rand, ch Chromosome, rate float64) Chromosome {
	out := ch.Clone()
	for i := range out {
		if rng.Float64() >= rate {
			continue
		}
		g := &out[i]
		choices := []mutation{mutateValue, mutateAmount}
		if g.Op == OpGreater || g.Op == OpLess {
			choices = append(choices, mutateOperator)
		}
		choices = append(choices, mutateEnabled)

		switch choices[rng.Intn(len(choices))] {
		case mutateValue:
			g.Value *= nudge(rng)
		case mutateAmount:
			g.Amount *= nudge(rng)
		case mutateOperator:
			if g.Op == OpGreater {
				g.Op = OpLess
			} else {
				g.Op = OpGreater
			}
		case mutateEnabled:
			g.Enabled = !g.Enabled
		}
	}
	return out
}

func nudge(rng *rand.Rand) float64 {
	return 0.8 + rng.Float64()*0.4
}
