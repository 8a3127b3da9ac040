package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mtharp/reimburse/model"
	"github.com/mtharp/reimburse/neural"
	"github.com/mtharp/reimburse/progress"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the feed-forward network on min/max scaled features",
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return bindFlags(cmd, map[string]string{
			"backend":       "nn.backend",
			"hidden":        "nn.hidden",
			"learning-rate": "nn.learning_rate",
			"epochs":        "nn.epochs",
			"report-every":  "nn.report_every",
			"seed":          "nn.seed",
		})
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		cfg := s.cfg.Train()
		cfg.Log = logger
		logger.Info("starting training",
			zap.String("backend", cfg.Backend),
			zap.Int("hidden", cfg.Hidden),
			zap.Float64("learning_rate", cfg.LearningRate),
			zap.Int("epochs", cfg.Epochs))
		reg, err := neural.Train(cmd.Context(), cfg, s.examples, func(e neural.Epoch) {
			logger.Info("epoch", zap.Int("epoch", e.Index), zap.Int("of", e.Total), zap.Float64("rmse", e.RMSE))
			s.publish(progress.Event{Kind: cfg.Backend, Step: e.Index, Total: e.Total, RMSE: e.RMSE})
		})
		if errors.Cause(err) == context.Canceled {
			logger.Warn("interrupted, keeping partially trained network")
		} else if err != nil {
			return err
		}
		a := model.New(cfg.Backend)
		a.Network = reg.Snapshot()
		return s.finish(cmd.Context(), a)
	},
}

func init() {
	f := trainCmd.Flags()
	f.String("backend", "", "mlp (hand-written gradient descent) or deep (go-deep)")
	f.Int("hidden", 0, "hidden units")
	f.Float64("learning-rate", 0, "gradient descent step size")
	f.Int("epochs", 0, "passes over the examples")
	f.Int("report-every", 0, "log the error every N epochs")
	f.Int64("seed", 0, "weight initialisation seed")
}
