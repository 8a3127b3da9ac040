// Package formula holds the hand-written piecewise reimbursement formulas and
// the coefficient tables that drive them.
package formula

import (
	"github.com/pkg/errors"

	"github.com/mtharp/reimburse/trip"
)

const (
	KindPaths   = "paths"
	KindProfile = "profile"
	KindTiered  = "tiered"
)

// New builds the formula of the given kind over t.
func New(kind string, t Table) (trip.Model, error) {
	switch kind {
	case KindPaths:
		p, err := NewPaths(t)
		if err != nil {
			return nil, err
		}
		return p, nil
	case KindProfile:
		p, err := NewProfile(t)
		if err != nil {
			return nil, err
		}
		return p, nil
	case KindTiered:
		p, err := NewTiered(t)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, errors.Errorf("unknown formula %q", kind)
}

// Default returns a copy of the built-in table for kind.
func Default(kind string) (Table, error) {
	switch kind {
	case KindPaths:
		return DefaultPaths(), nil
	case KindProfile:
		return DefaultProfile(), nil
	case KindTiered:
		return DefaultTiered(), nil
	}
	return nil, errors.Errorf("unknown formula %q", kind)
}
