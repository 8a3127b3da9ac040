package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mtharp/reimburse/config"
	"github.com/mtharp/reimburse/model"
	"github.com/mtharp/reimburse/trip"
)

var calcFlags struct {
	kind      string
	modelPath string
	modelsDir string
}

// calc never fails: whatever goes wrong, it prints 0.00 and exits 0, which is
// what callers of the legacy system rely on. The cause goes to the log.
var calcCmd = &cobra.Command{
	Use:   "calc DAYS MILES RECEIPTS",
	Short: "Print the reimbursement for one trip",
	Args:  cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		amount, err := calc(args)
		if err != nil {
			logger.Warn("calculation failed", zap.Strings("args", args), zap.Error(err))
			amount = 0
		}
		fmt.Fprintln(cmd.OutOrStdout(), trip.Format(amount))
	},
}

// calcFlagError keeps bad flags inside the 0.00 contract. Flag parsing fails
// before the root hook sets up logging, so it does that here.
func calcFlagError(cmd *cobra.Command, err error) error {
	if setLogger("info", false) == nil {
		logger.Warn("calculation failed", zap.Error(err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), trip.Format(0))
	return nil
}

func init() {
	f := calcCmd.Flags()
	// negative amounts after the first positional are arguments, not flags
	f.SetInterspersed(false)
	calcCmd.SetFlagErrorFunc(calcFlagError)
	f.StringVar(&calcFlags.kind, "kind", model.KindProfile, "model kind: "+strings.Join(model.Kinds, ", "))
	f.StringVar(&calcFlags.modelPath, "model", "", "artifact file to score with (overrides --kind)")
	f.StringVar(&calcFlags.modelsDir, "models-dir", "", "where to look for trained artifacts (default output.dir)")
}

func calc(args []string) (amount float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	c, err := parseCase(args)
	if err != nil {
		return 0, err
	}
	dir := calcFlags.modelsDir
	if dir == "" && calcFlags.modelPath == "" {
		cfg, err := config.Load(v, cfgFile)
		if err != nil {
			return 0, err
		}
		dir = cfg.Output.Dir
	}
	m, err := resolveModel(calcFlags.kind, calcFlags.modelPath, dir)
	if err != nil {
		return 0, err
	}
	return m.Reimburse(c), nil
}

func parseCase(args []string) (trip.Case, error) {
	if len(args) != 3 {
		return trip.Case{}, errors.Errorf("want 3 arguments (days, miles, receipts), got %d", len(args))
	}
	days, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return trip.Case{}, errors.Wrap(err, "days")
	}
	miles, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return trip.Case{}, errors.Wrap(err, "miles")
	}
	receipts, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return trip.Case{}, errors.Wrap(err, "receipts")
	}
	if days != float64(int(days)) {
		return trip.Case{}, errors.Errorf("days must be a whole number, got %s", args[0])
	}
	return trip.Case{Days: int(days), Miles: miles, Receipts: receipts}, nil
}

// resolveModel prefers an explicit artifact, then the best trained artifact
// of that kind in dir, then built-in parameters.
func resolveModel(kind, path, dir string) (trip.Model, error) {
	if path != "" {
		a, err := model.Load(path)
		if err != nil {
			return nil, err
		}
		return a.Model()
	}
	a, err := model.Best(dir, kind, logger)
	if err == nil {
		return a.Model()
	}
	if errors.Cause(err) != model.ErrNoArtifacts {
		return nil, err
	}
	m, berr := model.Builtin(kind)
	if errors.Cause(berr) == model.ErrNeedsArtifact {
		return nil, err
	}
	return m, berr
}
