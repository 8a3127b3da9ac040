package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mtharp/reimburse/model"
	"github.com/mtharp/reimburse/trip"
)

var evalFlags struct {
	kinds     []string
	modelPath string
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Score models against the example cases",
	Long: `Scores each requested model kind against the example cases. Kinds
without built-in parameters use the best artifact in output.dir and are
skipped when there is none.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MODEL\tCASES\tMAE\tRMSE\tEXACT\tCLOSE\tMAX")
		score := func(name string, m trip.Model) {
			st := trip.Evaluate(m, s.examples)
			fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\t%d\t%d\t%.2f\n",
				name, st.Count, st.MAE, st.RMSE, st.Exact, st.Close, st.MaxError)
			logger.Debug("worst case", zap.String("model", name), zap.Any("case", st.Worst))
		}
		if evalFlags.modelPath != "" {
			a, err := model.Load(evalFlags.modelPath)
			if err != nil {
				return err
			}
			m, err := a.Model()
			if err != nil {
				return err
			}
			score(a.Kind+" ("+evalFlags.modelPath+")", m)
			return w.Flush()
		}
		for _, kind := range evalFlags.kinds {
			m, err := resolveModel(kind, "", s.cfg.Output.Dir)
			if err != nil {
				logger.Warn("skipping model", zap.String("kind", kind), zap.Error(err))
				continue
			}
			score(kind, m)
		}
		return w.Flush()
	},
}

func init() {
	f := evalCmd.Flags()
	f.StringSliceVar(&evalFlags.kinds, "kind", model.Kinds, "model kinds to score: "+strings.Join(model.Kinds, ", "))
	f.StringVar(&evalFlags.modelPath, "model", "", "score a single artifact file")
}
