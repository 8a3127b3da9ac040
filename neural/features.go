package neural

import "github.com/mtharp/reimburse/trip"

// Names lists the raw features in the order Features returns them.
var Names = []string{
	"days", "miles", "receipts",
	"daily_miles", "daily_spend",
	"days_sq", "miles_sq", "receipts_sq",
	"miles_x_days", "receipts_x_days",
	"is_long_trip", "is_short_trip", "is_5_day_trip",
	"is_hyper_efficient", "is_high_spend", "has_small_receipts",
	"bias",
}

// Features computes the unscaled feature vector for c.
func Features(c trip.Case) []float64 {
	days := float64(c.Days)
	dailyMiles := c.MilesPerDay()
	dailySpend := c.DailySpend()
	return []float64{
		days, c.Miles, c.Receipts,
		dailyMiles, dailySpend,
		days * days, c.Miles * c.Miles, c.Receipts * c.Receipts,
		c.Miles * days, c.Receipts * days,
		flag(c.Days >= 8), flag(c.Days <= 3), flag(c.Days == 5),
		flag(dailyMiles > 400), flag(dailySpend > 150), flag(c.Receipts > 0 && c.Receipts < 25),
		1,
	}
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
