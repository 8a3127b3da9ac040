package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// bindFlags lets explicitly set flags override config keys.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for name, key := range keys {
		fl := cmd.Flags().Lookup(name)
		if fl == nil {
			return errors.Errorf("no flag %q", name)
		}
		if !fl.Changed {
			continue
		}
		if err := v.BindPFlag(key, fl); err != nil {
			return errors.Wrapf(err, "bind --%s", name)
		}
	}
	return nil
}
