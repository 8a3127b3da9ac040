package formula

import (
	"math"
	"math/rand"
	"sort"

	"github.com/pkg/errors"
)

// Table is a named set of scalar coefficients for one formula.
type Table map[string]float64

func (t Table) Clone() Table {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

func (t Table) Validate(required []string) error {
	for _, key := range required {
		if _, ok := t[key]; !ok {
			return errors.Errorf("missing coefficient %q", key)
		}
	}
	return nil
}

// Keys returns the table keys in sorted order.
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// switches are 0/1 coefficients that select a branch rather than scale one
var switches = map[string]bool{
	"trip_profile": true,
}

// counts are whole numbers compared for equality; they move by one step
var counts = map[string]bool{
	"std_bonus_5_day_duration": true,
}

// TableOps evolves coefficient tables.
type TableOps struct{}

// Cross picks each coefficient from one of the parents at random.
func (TableOps) Cross(rng *rand.Rand, a, b Table) Table {
	child := make(Table, len(a))
	for _, k := range a.Keys() {
		if v, ok := b[k]; ok && rng.Float64() < 0.5 {
			child[k] = v
		} else {
			child[k] = a[k]
		}
	}
	return child
}

// Mutate nudges each coefficient by up to 20% with probability rate.
func (TableOps) Mutate(rng *rand.Rand, t Table, rate float64) Table {
	out := t.Clone()
	for _, k := range out.Keys() {
		if rng.Float64() >= rate {
			continue
		}
		if switches[k] {
			out[k] = 1 - out[k]
			continue
		}
		if counts[k] {
			step := 1.0
			if rng.Float64() < 0.5 {
				step = -1
			}
			out[k] = math.Max(1, math.Round(out[k])+step)
			continue
		}
		out[k] *= 0.8 + rng.Float64()*0.4
	}
	return out
}
