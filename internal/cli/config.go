package cli

import (
	"fmt"
	"log/slog"

	"github.com/BurntSushi/toml"

	"github.com/happyhackingspace/pgm/crf"
	"github.com/happyhackingspace/pgm/lbfgs"
)

// tomlConfig is the layout of a training config file:
//
//	[training]
//	lambda = 10.0
//	max_iterations = 200
//	epsilon = 1e-5
//	memory = 6
//	past = 3
//	delta = 1e-5
//	linesearch = "strong-wolfe"
//	warm_start = false
type tomlConfig struct {
	Training trainingConfig `toml:"training"`
}

// Unset fields keep their defaults.
type trainingConfig struct {
	Lambda        *float64 `toml:"lambda"`
	MaxIterations *int     `toml:"max_iterations"`
	Epsilon       *float64 `toml:"epsilon"`
	Memory        *int     `toml:"memory"`
	Past          *int     `toml:"past"`
	Delta         *float64 `toml:"delta"`
	LineSearch    string   `toml:"linesearch"`
	WarmStart     bool     `toml:"warm_start"`
}

// loadTrainerConfig returns the default trainer config overridden by the
// [training] section of the TOML file at filename, if any.
func loadTrainerConfig(filename string) (crf.TrainerConfig, error) {
	config := crf.DefaultTrainerConfig()
	if filename == "" {
		return config, nil
	}

	var tc tomlConfig
	md, err := toml.DecodeFile(filename, &tc)
	if err != nil {
		return config, fmt.Errorf("could not decode TOML config: %w", err)
	}
	for _, key := range md.Undecoded() {
		slog.Warn("Ignoring unknown config key", "key", key.String(), "file", filename)
	}
	if err := tc.Training.apply(&config); err != nil {
		return config, fmt.Errorf("%s: %w", filename, err)
	}
	slog.Debug("Loaded training config", "file", filename, "lambda", config.Lambda,
		"max-iterations", config.MaxIterations, "linesearch", config.LineSearch)
	return config, nil
}

func (t trainingConfig) apply(config *crf.TrainerConfig) error {
	if t.Lambda != nil {
		if *t.Lambda < 0 {
			return fmt.Errorf("lambda must not be negative, got %v", *t.Lambda)
		}
		config.Lambda = *t.Lambda
	}
	if t.MaxIterations != nil {
		config.MaxIterations = *t.MaxIterations
	}
	if t.Epsilon != nil {
		config.Epsilon = *t.Epsilon
	}
	if t.Memory != nil {
		config.Memory = *t.Memory
	}
	if t.Past != nil {
		config.Past = *t.Past
	}
	if t.Delta != nil {
		config.Delta = *t.Delta
	}
	if t.LineSearch != "" {
		ls, err := lbfgs.ParseLineSearch(t.LineSearch)
		if err != nil {
			return err
		}
		config.LineSearch = ls
	}
	config.WarmStart = t.WarmStart
	return nil
}
