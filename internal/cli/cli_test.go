package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenesPath = "../../testdata/scenes.json"

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	c := New("test")
	var out bytes.Buffer
	c.rootCmd.SetOut(&out)
	c.rootCmd.SetErr(&out)
	c.rootCmd.SetIn(strings.NewReader(stdin))
	c.rootCmd.SetArgs(append(args, "-s"))
	err := c.Run()
	return out.String(), err
}

func TestTrainAndRun(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "model.json")
	_, err := execute(t, "", "train", modelPath, "--data", scenesPath, "--lambda", "1")
	require.NoError(t, err)
	require.FileExists(t, modelPath)

	out, err := execute(t, "", "run", modelPath, scenesPath)
	require.NoError(t, err)
	var labels []struct {
		Graph  string            `json:"graph"`
		Labels map[string]string `json:"labels"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &labels))
	require.Len(t, labels, 6)
	assert.Equal(t, "scene-0", labels[0].Graph)
	assert.Equal(t, "cup", labels[0].Labels["0"])
	assert.Equal(t, "table", labels[0].Labels["1"])

	data, err := os.ReadFile(scenesPath)
	require.NoError(t, err)
	out, err = execute(t, string(data), "run", modelPath, "--proba")
	require.NoError(t, err)
	var beliefs []struct {
		Beliefs map[string]map[string]float64 `json:"beliefs"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &beliefs))
	require.Len(t, beliefs, 6)
	assert.InDelta(t, 1.0, beliefs[0].Beliefs["0"]["cup"]+beliefs[0].Beliefs["0"]["table"], 1e-9)
}

func TestTrainWithConfig(t *testing.T) {
	config := writeConfig(t, "[training]\nmax_iterations = 2\n")
	modelPath := filepath.Join(t.TempDir(), "model.json")
	_, err := execute(t, "", "train", modelPath, "--data", scenesPath, "--config", config)
	require.NoError(t, err)
	assert.FileExists(t, modelPath)
}

func TestTrainMissingData(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "model.json")
	_, err := execute(t, "", "train", modelPath, "--data", "missing.json")
	assert.Error(t, err)
	assert.NoFileExists(t, modelPath)
}

func TestRunEmptyStdin(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "model.json")
	_, err := execute(t, "", "train", modelPath, "--data", scenesPath)
	require.NoError(t, err)

	_, err = execute(t, "", "run", modelPath)
	assert.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	out, err := execute(t, "", "evaluate", "--data", scenesPath, "--cv", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Node accuracy:")
	assert.Contains(t, out, "Graph accuracy:")
	assert.Contains(t, out, "Confusion matrix")
}
