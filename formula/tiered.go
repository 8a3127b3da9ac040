package formula

import (
	"math"

	"github.com/mtharp/reimburse/trip"
)

var tieredKeys = []string{
	"p1_spend_threshold", "p1_super_ultra_miles_threshold", "p1_ultra_miles_threshold",
	"p1_per_diem_a", "p1_mileage_rate_a", "p1_receipt_rate_a",
	"p1_per_diem_b", "p1_mileage_rate_b", "p1_receipt_rate_b",
	"p1_receipt_cap_c", "p1_per_diem_c", "p1_mileage_rate_c", "p1_receipt_rate_c",
	"p2_spend_threshold", "p2_miles_per_day_threshold", "p2_daily_receipt_cap",
	"p2_per_diem", "p2_mileage_rate", "p2_receipt_rate",
	"p3_spend_threshold", "p3_per_diem_rate", "p3_mileage_rate", "p3_receipt_rate",
	"p4_spend_threshold", "p4_miles_per_day_threshold", "p4_per_diem_flat", "p4_mileage_rate", "p4_receipt_rate",
	"p5_spend_threshold", "p5_daily_receipt_cap", "p5_per_diem_rate", "p5_mileage_rate", "p5_receipt_rate",
	"def_per_diem_rate", "def_mileage_tier1_cutoff", "def_mileage_rate_t1",
	"def_mileage_tier2_cutoff", "def_mileage_rate_t2", "def_mileage_rate_t3",
	"def_small_receipt_threshold", "def_small_receipt_penalty", "def_receipt_rate",
	"p_all_bonus_5_day", "p_all_eff_bonus_min", "p_all_eff_bonus_max", "p_all_eff_bonus_amount",
	"p_all_rounding_bug_bonus",
}

// DefaultTiered is a starting point for evolving Tiered, not a fit. Each
// pattern starts close to the default path so the search begins from a sane
// curve.
func DefaultTiered() Table {
	return Table{
		"p1_spend_threshold": 100, "p1_super_ultra_miles_threshold": 1000, "p1_ultra_miles_threshold": 600,
		"p1_per_diem_a": 300, "p1_mileage_rate_a": 0.3, "p1_receipt_rate_a": 0.4,
		"p1_per_diem_b": 250, "p1_mileage_rate_b": 0.45, "p1_receipt_rate_b": 0.45,
		"p1_receipt_cap_c": 1500, "p1_per_diem_c": 150, "p1_mileage_rate_c": 0.5, "p1_receipt_rate_c": 0.5,
		"p2_spend_threshold": 150, "p2_miles_per_day_threshold": 100, "p2_daily_receipt_cap": 300,
		"p2_per_diem": 200, "p2_mileage_rate": 0.5, "p2_receipt_rate": 0.55,
		"p3_spend_threshold": 100, "p3_per_diem_rate": 95, "p3_mileage_rate": 0.5, "p3_receipt_rate": 0.6,
		"p4_spend_threshold": 60, "p4_miles_per_day_threshold": 60, "p4_per_diem_flat": 1200,
		"p4_mileage_rate": 0.5, "p4_receipt_rate": 0.7,
		"p5_spend_threshold": 120, "p5_daily_receipt_cap": 150, "p5_per_diem_rate": 90,
		"p5_mileage_rate": 0.45, "p5_receipt_rate": 0.5,
		"def_per_diem_rate": 100, "def_mileage_tier1_cutoff": 100, "def_mileage_rate_t1": 0.58,
		"def_mileage_tier2_cutoff": 500, "def_mileage_rate_t2": 0.5, "def_mileage_rate_t3": 0.35,
		"def_small_receipt_threshold": 20, "def_small_receipt_penalty": -10, "def_receipt_rate": 0.75,
		"p_all_bonus_5_day": 50, "p_all_eff_bonus_min": 180, "p_all_eff_bonus_max": 220,
		"p_all_eff_bonus_amount": 30, "p_all_rounding_bug_bonus": 5,
	}
}

// Tiered matches a trip against five spending patterns in order and falls
// back to a three-tier mileage formula.
//
//	p1  one day, high daily spend; split again by miles per day
//	p2  2-4 days, high spend, little driving; receipts capped per day
//	p3  2-7 days, high spend
//	p4  12+ days, frugal and little driving; flat per diem
//	p5  8+ days, high spend; receipts capped per day
type Tiered struct {
	T Table
}

func NewTiered(t Table) (*Tiered, error) {
	if err := t.Validate(tieredKeys); err != nil {
		return nil, err
	}
	return &Tiered{T: t}, nil
}

func (p *Tiered) Reimburse(c trip.Case) float64 {
	if c.Days <= 0 {
		return 0
	}
	t := p.T
	days := float64(c.Days)
	spend := c.DailySpend()
	mpd := c.MilesPerDay()

	switch {
	case c.Days == 1 && spend > t["p1_spend_threshold"]:
		switch {
		case mpd >= t["p1_super_ultra_miles_threshold"]:
			return trip.Clamp(t["p1_per_diem_a"] + c.Miles*t["p1_mileage_rate_a"] + c.Receipts*t["p1_receipt_rate_a"])
		case mpd >= t["p1_ultra_miles_threshold"]:
			return trip.Clamp(t["p1_per_diem_b"] + c.Miles*t["p1_mileage_rate_b"] + c.Receipts*t["p1_receipt_rate_b"])
		}
		receipts := math.Min(c.Receipts, t["p1_receipt_cap_c"])
		return trip.Clamp(t["p1_per_diem_c"] + c.Miles*t["p1_mileage_rate_c"] + receipts*t["p1_receipt_rate_c"])

	case c.Days >= 2 && c.Days <= 4 && spend > t["p2_spend_threshold"] && mpd < t["p2_miles_per_day_threshold"]:
		receipts := math.Min(c.Receipts, days*t["p2_daily_receipt_cap"])
		return trip.Clamp(t["p2_per_diem"] + c.Miles*t["p2_mileage_rate"] + receipts*t["p2_receipt_rate"])

	case c.Days >= 2 && c.Days <= 7 && spend > t["p3_spend_threshold"]:
		r := days*t["p3_per_diem_rate"] + c.Miles*t["p3_mileage_rate"] + c.Receipts*t["p3_receipt_rate"]
		return trip.Clamp(r + p.bonuses(c))

	case c.Days >= 12 && spend < t["p4_spend_threshold"] && mpd < t["p4_miles_per_day_threshold"]:
		return trip.Clamp(t["p4_per_diem_flat"] + c.Miles*t["p4_mileage_rate"] + c.Receipts*t["p4_receipt_rate"])

	case c.Days >= 8 && spend > t["p5_spend_threshold"]:
		receipts := math.Min(c.Receipts, days*t["p5_daily_receipt_cap"])
		return trip.Clamp(days*t["p5_per_diem_rate"] + c.Miles*t["p5_mileage_rate"] + receipts*t["p5_receipt_rate"])
	}

	t1, t2 := t["def_mileage_tier1_cutoff"], t["def_mileage_tier2_cutoff"]
	mileage := math.Min(c.Miles, t1) * t["def_mileage_rate_t1"]
	if c.Miles > t1 {
		mileage += math.Min(c.Miles-t1, t2-t1) * t["def_mileage_rate_t2"]
	}
	if c.Miles > t2 {
		mileage += (c.Miles - t2) * t["def_mileage_rate_t3"]
	}

	receipts := c.Receipts * t["def_receipt_rate"]
	if c.Receipts < t["def_small_receipt_threshold"] && c.Days > 1 {
		receipts = t["def_small_receipt_penalty"]
	}
	return trip.Clamp(days*t["def_per_diem_rate"] + mileage + receipts + p.bonuses(c))
}

// bonuses are shared by p3 and the default path.
func (p *Tiered) bonuses(c trip.Case) float64 {
	t := p.T
	var b float64
	if c.Days == 5 {
		b += t["p_all_bonus_5_day"]
	}
	if mpd := c.MilesPerDay(); mpd > t["p_all_eff_bonus_min"] && mpd < t["p_all_eff_bonus_max"] {
		b += t["p_all_eff_bonus_amount"]
	}
	if cents := c.ReceiptCents(); cents == 49 || cents == 99 {
		b += t["p_all_rounding_bug_bonus"]
	}
	return b
}
