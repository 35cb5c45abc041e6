package cli

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/pgm"
)

func (c *CLI) newEvaluateCommand() *cobra.Command {
	var dataPath, configPath string
	var cvFolds int

	cmd := &cobra.Command{
		Use:     "evaluate",
		Short:   "Evaluate model accuracy via grouped cross-validation",
		Example: `  pgm evaluate --data scenes.json --cv 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadTrainerConfig(configPath)
			if err != nil {
				return err
			}

			slog.Info("Evaluating", "folds", cvFolds, "data", dataPath)
			start := time.Now()
			result, err := pgm.Evaluate(cmd.Context(), dataPath, &pgm.EvalConfig{
				Folds:   cvFolds,
				Trainer: &config,
			})
			if err != nil {
				return err
			}
			slog.Debug("Evaluation completed", "duration", time.Since(start))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Node accuracy: %.1f%% (%d/%d nodes)\n",
				result.NodeAccuracy*100, result.NodeCorrect, result.NodeTotal)
			fmt.Fprintf(out, "Graph accuracy: %.1f%% (%d/%d graphs)\n",
				result.GraphAccuracy*100, result.GraphCorrect, result.GraphTotal)
			printConfusionMatrix(cmd, result.Confusion, result.Classes)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "data.json", "Path to the labeled dataset file")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a TOML training config")
	cmd.Flags().IntVar(&cvFolds, "cv", 10, "Number of cross-validation folds")
	return cmd
}

func printConfusionMatrix(cmd *cobra.Command, confusion map[string]map[string]int, classes []string) {
	if len(confusion) == 0 {
		return
	}
	out := cmd.OutOrStdout()

	sort.SliceStable(classes, func(i, j int) bool {
		ti, tj := 0, 0
		for _, v := range confusion[classes[i]] {
			ti += v
		}
		for _, v := range confusion[classes[j]] {
			tj += v
		}
		return ti > tj
	})

	fmt.Fprintf(out, "\nConfusion matrix (rows=true, cols=predicted):\n")
	fmt.Fprintf(out, "%8s", "")
	for _, c := range classes {
		fmt.Fprintf(out, " %5s", c)
	}
	fmt.Fprintf(out, "  total  acc%%\n")

	for _, trueClass := range classes {
		fmt.Fprintf(out, "%8s", trueClass)
		total := 0
		correct := 0
		for _, predClass := range classes {
			count := confusion[trueClass][predClass]
			total += count
			if trueClass == predClass {
				correct = count
			}
			if count == 0 {
				fmt.Fprintf(out, "   %5s", ".")
			} else {
				fmt.Fprintf(out, "   %3d", count)
			}
		}
		acc := 0.0
		if total > 0 {
			acc = float64(correct) / float64(total) * 100
		}
		fmt.Fprintf(out, "  %5d %5.1f\n", total, acc)
	}
}
