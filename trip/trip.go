package trip

import (
	"encoding/json"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Case is one trip as submitted for reimbursement.
type Case struct {
	Days     int     `json:"trip_duration_days"`
	Miles    float64 `json:"miles_traveled"`
	Receipts float64 `json:"total_receipts_amount"`
}

func (c Case) Valid() bool {
	return c.Days > 0
}

func (c Case) MilesPerDay() float64 {
	if c.Days <= 0 {
		return 0
	}
	return c.Miles / float64(c.Days)
}

func (c Case) DailySpend() float64 {
	if c.Days <= 0 {
		return 0
	}
	return c.Receipts / float64(c.Days)
}

// ReceiptCents returns the cents part of the receipt total, always in
// [0, 100) so -0.01 has 99 cents.
func (c Case) ReceiptCents() int {
	if math.IsNaN(c.Receipts) || math.IsInf(c.Receipts, 0) {
		return 0
	}
	cents := decimal.NewFromFloat(c.Receipts).Shift(2).Round(0).IntPart()
	return int((cents%100 + 100) % 100)
}

// Example pairs a case with the amount the legacy system paid for it.
type Example struct {
	Input    Case    `json:"input"`
	Expected float64 `json:"expected_output"`
}

// Model computes a reimbursement for a single case.
type Model interface {
	Reimburse(c Case) float64
}

// ModelFunc adapts a plain function to Model.
type ModelFunc func(c Case) float64

func (f ModelFunc) Reimburse(c Case) float64 {
	return f(c)
}

func LoadExamples(path string) ([]Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open examples")
	}
	defer f.Close()
	examples, err := ReadExamples(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read examples from %s", path)
	}
	return examples, nil
}

func ReadExamples(r io.Reader) ([]Example, error) {
	var examples []Example
	if err := json.NewDecoder(r).Decode(&examples); err != nil {
		return nil, errors.Wrap(err, "decode examples")
	}
	return examples, nil
}

// Round rounds an amount to cents, half away from zero.
func Round(amount float64) float64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return amount
	}
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}

// Clamp floors an amount at zero and rounds it to cents.
func Clamp(amount float64) float64 {
	// non-finite amounts come out of diverged models
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	return Round(amount)
}

// Format renders an amount the way the legacy system prints it.
func Format(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	return decimal.NewFromFloat(amount).StringFixed(2)
}
