package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/pgm"
)

func (c *CLI) newRunCommand() *cobra.Command {
	var proba bool

	cmd := &cobra.Command{
		Use:   "run <modelfile> [graphs-file]",
		Short: "Label the graphs of a dataset file or stdin with a trained model",
		Args:  cobra.RangeArgs(1, 2),
		Example: `  # Label a dataset file
  pgm run model.json scenes.json

  # Pipe graphs from stdin
  cat scenes.json | pgm run model.json

  # Show class probabilities
  pgm run model.json scenes.json --proba`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if len(args) == 1 {
				if isStdinTerminal(cmd) {
					return cmd.Help()
				}
				data, err = readInput(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[1])
			}
			if err != nil {
				return err
			}

			start := time.Now()
			m, err := pgm.Load(args[0])
			if err != nil {
				return err
			}
			slog.Debug("Model loaded", "duration", time.Since(start))

			start = time.Now()
			var results any
			if proba {
				results, err = m.BeliefsData(data)
			} else {
				results, err = m.LabelData(data)
			}
			if err != nil {
				return err
			}
			slog.Debug("Labeling completed", "duration", time.Since(start))

			output, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(output))
			return nil
		},
	}

	cmd.Flags().BoolVar(&proba, "proba", false, "Show class probabilities")
	return cmd
}

func isStdinTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func readInput(r io.Reader) ([]byte, error) {
	slog.Debug("Reading from stdin")
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("stdin is empty")
	}
	return body, nil
}
