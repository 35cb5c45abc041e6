package cli

import (
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/happyhackingspace/pgm"
	"github.com/happyhackingspace/pgm/crf"
)

func (c *CLI) newTrainCommand() *cobra.Command {
	var dataPath, configPath string
	var lambda float64
	var maxIterations int

	cmd := &cobra.Command{
		Use:   "train <modelfile>",
		Short: "Train a model on labeled graphs",
		Args:  cobra.ExactArgs(1),
		Example: `  pgm train model.json --data scenes.json
  pgm train model.json --data scenes.json --config train.toml
  pgm train model.json --data scenes.json --lambda 1 -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			modelPath := args[0]
			config, err := loadTrainerConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("lambda") {
				config.Lambda = lambda
			}
			if cmd.Flags().Changed("max-iterations") {
				config.MaxIterations = maxIterations
			}

			slog.Info("Training model", "data", dataPath, "output", modelPath)
			start := time.Now()
			m, res, err := pgm.Train(cmd.Context(), dataPath, &config)
			if res == nil {
				return err
			}
			if err != nil {
				status, ok := crf.IsOptimizerError(err)
				if !ok {
					return err
				}
				slog.Warn("Optimizer failed, saving last accepted weights", "status", status)
			}
			slog.Info("Training completed", "outcome", res.Outcome, "loss", res.Fx,
				"iterations", res.Iterations, "duration", time.Since(start))

			if err := m.Save(modelPath); err != nil {
				return err
			}
			if info, statErr := os.Stat(modelPath); statErr == nil {
				slog.Info("Model saved", "path", modelPath, "size", humanize.Bytes(uint64(info.Size())))
			}
			return err
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "data.json", "Path to the labeled dataset file")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a TOML training config")
	cmd.Flags().Float64Var(&lambda, "lambda", crf.DefaultLambda, "L2 regularization strength")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 100, "Maximum L-BFGS iterations (0 for no limit)")
	return cmd
}
