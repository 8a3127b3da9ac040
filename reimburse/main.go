package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgFile string
	verbose bool

	v      = viper.New()
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "reimburse",
	Short: "Fit and run models of the legacy travel reimbursement formula",
	Long: `reimburse approximates a legacy reimbursement calculation from
example trips (duration, miles, receipts -> amount).

Models:
  paths    hand-tuned path classifier (local / standard / long haul / hyper-efficient)
  profile  per diem + tiered mileage + receipt allowance with fitted coefficients
  tiered   five spending patterns + three-tier mileage, tuned by evolve table
  rules    ordered rule set evolved by a genetic algorithm
  mlp      one hidden layer ReLU network trained by gradient descent
  deep     the same network shape trained with go-deep`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setLogger("info", false)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./reimburse.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(calcCmd, evalCmd, evolveCmd, trainCmd)
}

// setLogger replaces the global logger. --verbose always wins.
func setLogger(level string, dev bool) error {
	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return errors.Wrapf(err, "bad log level %q", level)
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	l, err := cfg.Build()
	if err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	_ = logger.Sync()
	logger = l
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
