package formula

import (
	"github.com/mtharp/reimburse/trip"
)

var profileKeys = []string{
	"base_per_diem_rate", "long_trip_days_cutoff",
	"short_mileage_tier_cutoff", "short_mileage_rate_t1", "short_mileage_rate_t2", "long_mileage_rate",
	"small_receipt_penalty_threshold", "small_receipt_penalty_amount",
	"receipt_mult_default", "receipt_mult_generous", "receipt_generous_spend_threshold",
	"trip_profile", "efficiency_bonus_min_miles_per_day", "efficiency_bonus_rate",
	"long_trip_spend_penalty_threshold", "long_trip_spend_penalty_rate",
	"bonus_5_day_amount", "bonus_8_10_day_amount", "bonus_rounding_bug_amount",
}

// DefaultProfile holds the fitted coefficients for Profile. Several sit outside
// their intuitive range (negative cutoffs, a long-trip cutoff no trip reaches).
func DefaultProfile() Table {
	return Table{
		"base_per_diem_rate":                 49.14278259156015,
		"long_trip_days_cutoff":              38.34697362593889,
		"short_mileage_tier_cutoff":          -285.02840294993973,
		"short_mileage_rate_t1":              -0.28625989213057657,
		"short_mileage_rate_t2":              0.4395186601606763,
		"long_mileage_rate":                  -1.7320189369392007,
		"small_receipt_penalty_threshold":    18.314213135058637,
		"small_receipt_penalty_amount":       -120.83467527584385,
		"receipt_mult_default":               0.4072234007176816,
		"receipt_mult_generous":              1.6373892048646406,
		"receipt_generous_spend_threshold":   -175.7447700852244,
		"trip_profile":                       0,
		"efficiency_bonus_min_miles_per_day": 467.78018623977454,
		"efficiency_bonus_rate":              1.7681198173445467,
		"long_trip_spend_penalty_threshold":  192.94795706596307,
		"long_trip_spend_penalty_rate":       21.852518796502462,
		"bonus_5_day_amount":                 101.3638638781631,
		"bonus_8_10_day_amount":              117.32544973383474,
		"bonus_rounding_bug_amount":          -216.4711050792443,
	}
}

// Profile is per diem plus tiered mileage plus a receipt allowance, with
// trip-shape adjustments on top.
type Profile struct {
	T Table
}

func NewProfile(t Table) (*Profile, error) {
	if err := t.Validate(profileKeys); err != nil {
		return nil, err
	}
	return &Profile{T: t}, nil
}

func (p *Profile) Reimburse(c trip.Case) float64 {
	if c.Days <= 0 {
		return 0
	}
	t := p.T
	days := float64(c.Days)
	spend := c.DailySpend()
	mpd := c.MilesPerDay()
	longTrip := days >= t["long_trip_days_cutoff"]

	perDiem := t["base_per_diem_rate"] * days

	var mileage float64
	if !longTrip {
		cutoff := t["short_mileage_tier_cutoff"]
		if c.Miles <= cutoff {
			mileage = c.Miles * t["short_mileage_rate_t1"]
		} else {
			mileage = cutoff*t["short_mileage_rate_t1"] + (c.Miles-cutoff)*t["short_mileage_rate_t2"]
		}
	} else {
		mileage = c.Miles * t["long_mileage_rate"]
	}

	var receipts float64
	if c.Receipts > 0 && c.Receipts < t["small_receipt_penalty_threshold"] {
		receipts = t["small_receipt_penalty_amount"]
	} else {
		mult := t["receipt_mult_default"]
		if spend < t["receipt_generous_spend_threshold"] {
			mult = t["receipt_mult_generous"]
		}
		receipts = c.Receipts * mult
	}

	var adj float64
	if t["trip_profile"] == 1 && !longTrip && mpd > t["efficiency_bonus_min_miles_per_day"] {
		adj += (mpd - t["efficiency_bonus_min_miles_per_day"]) * t["efficiency_bonus_rate"]
	}
	if longTrip && spend > t["long_trip_spend_penalty_threshold"] {
		adj -= (spend - t["long_trip_spend_penalty_threshold"]) * t["long_trip_spend_penalty_rate"]
	}
	if c.Days == 5 {
		adj += t["bonus_5_day_amount"]
	}
	if c.Days >= 8 && c.Days <= 10 && spend <= t["long_trip_spend_penalty_threshold"] {
		adj += t["bonus_8_10_day_amount"]
	}
	if cents := c.ReceiptCents(); cents == 49 || cents == 99 {
		adj += t["bonus_rounding_bug_amount"]
	}

	return trip.Clamp(perDiem + mileage + receipts + adj)
}
