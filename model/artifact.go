// Package model persists trained parameter sets and turns them back into
// reimbursement models.
package model

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mtharp/reimburse/formula"
	"github.com/mtharp/reimburse/neural"
	"github.com/mtharp/reimburse/rules"
	"github.com/mtharp/reimburse/trip"
)

const (
	KindPaths   = formula.KindPaths
	KindProfile = formula.KindProfile
	KindTiered  = formula.KindTiered
	KindRules   = "rules"
	KindMLP     = neural.BackendManual
	KindDeep    = neural.BackendDeep
)

// Kinds lists every model kind in display order.
var Kinds = []string{KindPaths, KindProfile, KindTiered, KindRules, KindMLP, KindDeep}

var (
	ErrUnknownKind   = errors.New("unknown model kind")
	ErrNeedsArtifact = errors.New("model kind has no built-in parameters")
	ErrNoArtifacts   = errors.New("no artifacts")
)

// Artifact is a trained parameter set plus how well it did on the data it
// was trained against.
type Artifact struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"`
	Created time.Time `json:"created"`
	MAE     float64   `json:"mae"`
	Cases   int       `json:"cases"`

	Table      formula.Table    `json:"table,omitempty"`
	Chromosome rules.Chromosome `json:"chromosome,omitempty"`
	Network    *neural.Snapshot `json:"network,omitempty"`
}

// New stamps an artifact with a fresh id and the current time.
func New(kind string) *Artifact {
	return &Artifact{
		ID:      uuid.New().String(),
		Kind:    kind,
		Created: time.Now().UTC(),
	}
}

// Model builds the reimbursement model the artifact describes.
func (a *Artifact) Model() (trip.Model, error) {
	switch a.Kind {
	case KindPaths, KindProfile, KindTiered:
		if a.Table == nil {
			return nil, errors.Errorf("%s artifact has no table", a.Kind)
		}
		return formula.New(a.Kind, a.Table)
	case KindRules:
		if err := a.Chromosome.Validate(); err != nil {
			return nil, errors.Wrap(err, "rules artifact")
		}
		return a.Chromosome, nil
	case KindMLP, KindDeep:
		reg, err := neural.FromSnapshot(a.Network)
		if err != nil {
			return nil, errors.Wrapf(err, "%s artifact", a.Kind)
		}
		return reg, nil
	}
	return nil, errors.Wrapf(ErrUnknownKind, "%q", a.Kind)
}

// Builtin returns the default model for kinds that have hand-tuned
// parameters.
func Builtin(kind string) (trip.Model, error) {
	switch kind {
	case KindPaths, KindProfile:
		t, err := formula.Default(kind)
		if err != nil {
			return nil, err
		}
		return formula.New(kind, t)
	case KindRules:
		return rules.Genesis(), nil
	case KindTiered, KindMLP, KindDeep:
		return nil, errors.Wrapf(ErrNeedsArtifact, "%q", kind)
	}
	return nil, errors.Wrapf(ErrUnknownKind, "%q", kind)
}

// Save writes a to path via a temporary file so readers never see a
// partial artifact.
func Save(path string, a *Artifact) error {
	blob, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal artifact")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "create artifact dir")
	}
	f, err := ioutil.TempFile(dir, ".artifact-*")
	if err != nil {
		return errors.Wrap(err, "create artifact")
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(blob); err != nil {
		f.Close()
		return errors.Wrap(err, "write artifact")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "write artifact")
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return errors.Wrap(err, "write artifact")
	}
	return nil
}

func Load(path string) (*Artifact, error) {
	blob, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read artifact")
	}
	a := new(Artifact)
	if err := json.Unmarshal(blob, a); err != nil {
		return nil, errors.Wrapf(err, "parse artifact %s", path)
	}
	return a, nil
}

// Path is where trainers write the artifact for kind under dir.
func Path(dir, kind string) string {
	return filepath.Join(dir, kind+".json")
}
