package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happyhackingspace/pgm/crf"
	"github.com/happyhackingspace/pgm/lbfgs"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "train.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadTrainerConfigDefaults(t *testing.T) {
	config, err := loadTrainerConfig("")
	require.NoError(t, err)
	assert.Equal(t, crf.DefaultLambda, config.Lambda)
	assert.Equal(t, lbfgs.Backtracking, config.LineSearch)
}

func TestLoadTrainerConfig(t *testing.T) {
	path := writeConfig(t, `
[training]
lambda = 2.5
max_iterations = 7
memory = 3
past = 2
delta = 1e-3
linesearch = "strong-wolfe"
warm_start = true
`)
	config, err := loadTrainerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2.5, config.Lambda)
	assert.Equal(t, 7, config.MaxIterations)
	assert.Equal(t, 3, config.Memory)
	assert.Equal(t, 2, config.Past)
	assert.Equal(t, 1e-3, config.Delta)
	assert.Equal(t, lbfgs.BacktrackingStrongWolfe, config.LineSearch)
	assert.True(t, config.WarmStart)
	assert.Equal(t, lbfgs.DefaultParams().Epsilon, config.Epsilon)
}

func TestLoadTrainerConfigErrors(t *testing.T) {
	tests := map[string]string{
		"syntax":     "[training\nlambda = 1",
		"linesearch": "[training]\nlinesearch = \"more-thuente\"",
		"lambda":     "[training]\nlambda = -1.0",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := loadTrainerConfig(writeConfig(t, content))
			assert.Error(t, err)
		})
	}

	_, err := loadTrainerConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
