package rules

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadYAML reads a hand-edited rule set, e.g.
//
//	- feature: days
//	  op: ">"
//	  value: 0
//	  action: add_per_day
//	  amount: 100
//	  enabled: true
func LoadYAML(path string) (Chromosome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open rule set")
	}
	defer f.Close()
	ch, err := ReadYAML(f)
	if err != nil {
		return nil, errors.Wrapf(err, "rule set %s", path)
	}
	return ch, nil
}

type yamlGene struct {
	Feature string  `yaml:"feature"`
	Op      string  `yaml:"op"`
	Value   float64 `yaml:"value"`
	Action  string  `yaml:"action"`
	Amount  float64 `yaml:"amount"`
	Enabled *bool   `yaml:"enabled"`
}

func ReadYAML(r io.Reader) (Chromosome, error) {
	var raw []yamlGene
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode rule set")
	}
	ch := make(Chromosome, len(raw))
	for i, g := range raw {
		ch[i] = Gene{
			Feature: g.Feature,
			Op:      g.Op,
			Value:   g.Value,
			Action:  g.Action,
			Amount:  g.Amount,
			// rules are on unless switched off explicitly
			Enabled: g.Enabled == nil || *g.Enabled,
		}
	}
	if err := ch.Validate(); err != nil {
		return nil, err
	}
	return ch, nil
}

// WriteYAML writes ch in the format ReadYAML accepts.
func WriteYAML(w io.Writer, ch Chromosome) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode([]Gene(ch)); err != nil {
		return errors.Wrap(err, "encode rule set")
	}
	return enc.Close()
}
