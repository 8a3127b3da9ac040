// Package rules implements an ordered rule engine whose rules (genes) are
// evolved by the genetic trainer.
package rules

import (
	"github.com/pkg/errors"

	"github.com/mtharp/reimburse/trip"
)

// Features a gene can test.
const (
	FeatureDays        = "days"
	FeatureMiles       = "miles"
	FeatureReceipts    = "receipts"
	FeatureDailySpend  = "daily_spend"
	FeatureMilesPerDay = "miles_per_day"
)

// Comparison operators.
const (
	OpGreater = ">"
	OpLess    = "<"
	OpEqual   = "=="
)

// Actions applied when a gene's condition holds.
const (
	ActionSetBase     = "set_base"
	ActionAddAmount   = "add_amount"
	ActionMultFeature = "mult_feature"
	ActionAddPerDay   = "add_per_day"
	ActionAddPerMile  = "add_per_mile"
)

// Gene is one conditional rule: when Feature Op Value holds, apply Action
// with Amount.
type Gene struct {
	Feature string  `json:"feature" yaml:"feature"`
	Op      string  `json:"op" yaml:"op"`
	Value   float64 `json:"value" yaml:"value"`
	Action  string  `json:"action" yaml:"action"`
	Amount  float64 `json:"amount" yaml:"amount"`
	Enabled bool    `json:"enabled" yaml:"enabled"`
}

func (g Gene) feature(c trip.Case) float64 {
	switch g.Feature {
	case FeatureDays:
		return float64(c.Days)
	case FeatureMiles:
		return c.Miles
	case FeatureReceipts:
		return c.Receipts
	case FeatureDailySpend:
		return c.DailySpend()
	case FeatureMilesPerDay:
		return c.MilesPerDay()
	}
	return 0
}

func (g Gene) matches(v float64) bool {
	switch g.Op {
	case OpGreater:
		return v > g.Value
	case OpLess:
		return v < g.Value
	case OpEqual:
		return v == g.Value
	}
	return false
}

func (g Gene) apply(r, v float64, c trip.Case) float64 {
	switch g.Action {
	case ActionSetBase:
		return g.Amount
	case ActionAddAmount:
		return r + g.Amount
	case ActionMultFeature:
		return r + v*g.Amount
	case ActionAddPerDay:
		return r + float64(c.Days)*g.Amount
	case ActionAddPerMile:
		return r + c.Miles*g.Amount
	}
	return r
}

func (g Gene) validate() error {
	switch g.Feature {
	case FeatureDays, FeatureMiles, FeatureReceipts, FeatureDailySpend, FeatureMilesPerDay:
	default:
		return errors.Errorf("unknown feature %q", g.Feature)
	}
	switch g.Op {
	case OpGreater, OpLess, OpEqual:
	default:
		return errors.Errorf("unknown operator %q", g.Op)
	}
	switch g.Action {
	case ActionSetBase, ActionAddAmount, ActionMultFeature, ActionAddPerDay, ActionAddPerMile:
	default:
		return errors.Errorf("unknown action %q", g.Action)
	}
	return nil
}

// Chromosome is an ordered rule set. Rules run in order, each seeing the
// running total left by the ones before it.
type Chromosome []Gene

func (ch Chromosome) Reimburse(c trip.Case) float64 {
	if c.Days <= 0 {
		return 0
	}
	var r float64
	for _, g := range ch {
		if !g.Enabled {
			continue
		}
		v := g.feature(c)
		if g.matches(v) {
			r = g.apply(r, v, c)
		}
	}
	return trip.Clamp(r)
}

func (ch Chromosome) Validate() error {
	if len(ch) == 0 {
		return errors.New("empty chromosome")
	}
	for i, g := range ch {
		if err := g.validate(); err != nil {
			return errors.Wrapf(err, "gene %d", i)
		}
	}
	return nil
}

func (ch Chromosome) Clone() Chromosome {
	out := make(Chromosome, len(ch))
	copy(out, ch)
	return out
}

// Genesis is the hand-built starting rule set the trainer evolves from.
func Genesis() Chromosome {
	return Chromosome{
		// per diem and mileage
		{Feature: FeatureDays, Op: OpGreater, Value: 0, Action: ActionAddPerDay, Amount: 100, Enabled: true},
		{Feature: FeatureMiles, Op: OpGreater, Value: 100, Action: ActionAddPerMile, Amount: 0.5, Enabled: true},
		{Feature: FeatureMiles, Op: OpLess, Value: 101, Action: ActionAddPerMile, Amount: 0.7, Enabled: true},
		// receipts
		{Feature: FeatureReceipts, Op: OpGreater, Value: 0, Action: ActionMultFeature, Amount: 0.85, Enabled: true},
		// penalties
		{Feature: FeatureDailySpend, Op: OpGreater, Value: 300, Action: ActionAddAmount, Amount: -500, Enabled: true},
		{Feature: FeatureMilesPerDay, Op: OpGreater, Value: 600, Action: ActionAddAmount, Amount: -300, Enabled: true},
		// bonuses
		{Feature: FeatureDays, Op: OpEqual, Value: 5, Action: ActionAddAmount, Amount: 75, Enabled: true},
		{Feature: FeatureMilesPerDay, Op: OpGreater, Value: 200, Action: ActionAddAmount, Amount: 50, Enabled: true},
		{Feature: FeatureMilesPerDay, Op: OpLess, Value: 50, Action: ActionAddAmount, Amount: -100, Enabled: true},
	}
}
