// Package neural fits a small feed-forward network to the example set after
// min/max scaling both the features and the target amount.
package neural

import (
	"sync"

	deep "github.com/patrikeh/go-deep"
	"github.com/pkg/errors"

	"github.com/mtharp/reimburse/trip"
)

// Predictor maps a scaled feature vector onto a scaled amount.
type Predictor interface {
	Predict(x []float64) float64
}

// Regressor wraps a predictor with the scaling fitted at training time.
type Regressor struct {
	Scaler Scaler
	Target Range
	Net    Predictor
}

func (r *Regressor) Reimburse(c trip.Case) float64 {
	if c.Days <= 0 {
		return 0
	}
	x := r.Scaler.Apply(Features(c))
	return trip.Clamp(r.Target.Invert(r.Net.Predict(x)))
}

// Snapshot is the serialisable form of a Regressor. Exactly one of Net and
// Deep is set.
type Snapshot struct {
	Features []string   `json:"features"`
	Scaler   Scaler     `json:"scaler"`
	Target   Range      `json:"target"`
	Net      *Network   `json:"net,omitempty"`
	Deep     *deep.Dump `json:"deep,omitempty"`
}

func (r *Regressor) Snapshot() *Snapshot {
	s := &Snapshot{
		Features: append([]string(nil), Names...),
		Scaler:   r.Scaler,
		Target:   r.Target,
	}
	switch net := r.Net.(type) {
	case *Network:
		s.Net = net
	case *deepNet:
		s.Deep = net.dump
	}
	return s
}

// FromSnapshot rebuilds a Regressor, refusing snapshots trained on a
// different feature set.
func FromSnapshot(s *Snapshot) (*Regressor, error) {
	if s == nil {
		return nil, errors.New("empty network snapshot")
	}
	if len(s.Features) != len(Names) {
		return nil, errors.Errorf("snapshot has %d features, want %d", len(s.Features), len(Names))
	}
	for i, name := range Names {
		if s.Features[i] != name {
			return nil, errors.Errorf("snapshot feature %d is %q, want %q", i, s.Features[i], name)
		}
	}
	if err := s.Scaler.validate(len(Names)); err != nil {
		return nil, err
	}
	r := &Regressor{Scaler: s.Scaler, Target: s.Target}
	switch {
	case s.Net != nil && s.Deep != nil:
		return nil, errors.New("snapshot holds two networks")
	case s.Net != nil:
		if err := s.Net.validate(); err != nil {
			return nil, err
		}
		if s.Net.Inputs() != len(Names) {
			return nil, errors.Errorf("network takes %d inputs, want %d", s.Net.Inputs(), len(Names))
		}
		r.Net = s.Net
	case s.Deep != nil:
		r.Net = newDeepNet(s.Deep)
	default:
		return nil, errors.New("snapshot holds no network")
	}
	return r, nil
}

// deepNet shares one dump between pooled go-deep networks, which are not
// safe for concurrent use.
type deepNet struct {
	dump *deep.Dump
	pool sync.Pool
}

func newDeepNet(dump *deep.Dump) *deepNet {
	d := &deepNet{dump: dump}
	d.pool.New = func() interface{} {
		return deep.FromDump(dump)
	}
	return d
}

func (d *deepNet) Predict(x []float64) float64 {
	nn := d.pool.Get().(*deep.Neural)
	out := nn.Predict(x)
	d.pool.Put(nn)
	return out[0]
}
