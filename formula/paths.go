package formula

import (
	"github.com/mtharp/reimburse/trip"
)

var pathsKeys = []string{
	"local_per_diem_rate", "local_mileage_rate", "local_receipt_mult",
	"local_receipt_penalty_threshold", "local_receipt_penalty_amount",
	"std_per_diem_rate", "std_mileage_rate_tier_1", "std_mileage_rate_tier_2",
	"std_mileage_tier_1_cutoff", "std_receipt_mult", "std_bonus_5_day_duration",
	"std_bonus_5_day_amount",
	"long_per_diem_rate", "long_mileage_rate", "long_receipt_mult_normal",
	"long_receipt_spend_penalty_threshold", "long_receipt_mult_penalty",
	"hyper_per_diem_rate", "hyper_mileage_rate", "hyper_receipt_mult",
	"global_offset",
}

// DefaultPaths is the hand-tuned coefficient table for Paths.
func DefaultPaths() Table {
	return Table{
		"local_per_diem_rate": 100.0, "local_mileage_rate": 0.7, "local_receipt_mult": 0.7,
		"local_receipt_penalty_threshold": 20.0, "local_receipt_penalty_amount": -15.0,
		"std_per_diem_rate": 120.0, "std_mileage_rate_tier_1": 0.58, "std_mileage_rate_tier_2": 0.45,
		"std_mileage_tier_1_cutoff": 100, "std_receipt_mult": 0.85, "std_bonus_5_day_duration": 5,
		"std_bonus_5_day_amount": 55.0,
		"long_per_diem_rate": 150.0, "long_mileage_rate": 0.55, "long_receipt_mult_normal": 0.8,
		"long_receipt_spend_penalty_threshold": 90.0, "long_receipt_mult_penalty": 0.3,
		"hyper_per_diem_rate": 50.0, "hyper_mileage_rate": 0.25, "hyper_receipt_mult": 0.15,
		"global_offset": 0.0,
	}
}

// Paths routes a trip to one of four calculation paths: hyper-efficient
// short trips, long hauls, standard business trips and local trips.
type Paths struct {
	T Table
}

func NewPaths(t Table) (*Paths, error) {
	if err := t.Validate(pathsKeys); err != nil {
		return nil, err
	}
	return &Paths{T: t}, nil
}

func (p *Paths) Reimburse(c trip.Case) float64 {
	if c.Days <= 0 {
		return 0
	}
	var r float64
	switch {
	case c.Days <= 3 && c.MilesPerDay() > 400:
		r = p.hyperEfficient(c)
	case c.Days >= 8:
		r = p.longHaul(c)
	case c.Days >= 4 && c.Days <= 7:
		r = p.standard(c)
	default:
		r = p.local(c)
	}
	return trip.Clamp(r + p.T["global_offset"])
}

func (p *Paths) hyperEfficient(c trip.Case) float64 {
	t := p.T
	return float64(c.Days)*t["hyper_per_diem_rate"] +
		c.Miles*t["hyper_mileage_rate"] +
		c.Receipts*t["hyper_receipt_mult"]
}

func (p *Paths) longHaul(c trip.Case) float64 {
	t := p.T
	mult := t["long_receipt_mult_normal"]
	if c.DailySpend() > t["long_receipt_spend_penalty_threshold"] {
		mult = t["long_receipt_mult_penalty"]
	}
	return float64(c.Days)*t["long_per_diem_rate"] + c.Miles*t["long_mileage_rate"] + c.Receipts*mult
}

func (p *Paths) standard(c trip.Case) float64 {
	t := p.T
	perDiem := float64(c.Days) * t["std_per_diem_rate"]
	var mileage float64
	if c.Miles > 0 {
		cutoff := t["std_mileage_tier_1_cutoff"]
		if c.Miles <= cutoff {
			mileage = c.Miles * t["std_mileage_rate_tier_1"]
		} else {
			mileage = cutoff*t["std_mileage_rate_tier_1"] + (c.Miles-cutoff)*t["std_mileage_rate_tier_2"]
		}
	}
	var bonus float64
	if float64(c.Days) == t["std_bonus_5_day_duration"] {
		bonus = t["std_bonus_5_day_amount"]
	}
	return perDiem + mileage + c.Receipts*t["std_receipt_mult"] + bonus
}

func (p *Paths) local(c trip.Case) float64 {
	t := p.T
	receipts := c.Receipts * t["local_receipt_mult"]
	if c.Receipts > 0 && c.Receipts < t["local_receipt_penalty_threshold"] {
		receipts = t["local_receipt_penalty_amount"]
	}
	return float64(c.Days)*t["local_per_diem_rate"] + c.Miles*t["local_mileage_rate"] + receipts
}
