package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/tripcost/internal/export"
	"github.com/Veraticus/tripcost/internal/predictor"
	"github.com/Veraticus/tripcost/internal/storage"
)

type testEnv struct {
	dir        string
	configPath string
	seedPath   string
	modelPath  string
	dbPath     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	env := &testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "config.yaml"),
		seedPath:   filepath.Join(dir, "seed_trips.csv"),
		modelPath:  filepath.Join(dir, "model.json"),
		dbPath:     filepath.Join(dir, "tripcost.db"),
	}

	cfg := fmt.Sprintf(`database:
  driver: sqlite
  path: %s
model:
  path: %s
seed:
  path: %s
  trips: 30
geocoder:
  provider: static
logging:
  level: error
`, env.dbPath, env.modelPath, env.seedPath)
	require.NoError(t, os.WriteFile(env.configPath, []byte(cfg), 0600))
	return env
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tripcost dev")
}

func TestSeedCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "seed", "--quiet", "--random-seed", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "seed trips to "+env.seedPath)

	first, err := os.ReadFile(env.seedPath)
	require.NoError(t, err)

	custom := filepath.Join(env.dir, "other.csv")
	_, err = env.run(t, "seed", "--quiet", "--random-seed", "7", "--out", custom)
	require.NoError(t, err)
	second, err := os.ReadFile(custom)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second), "same random seed gives the same file")
}

func TestPredictWithoutModel(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "predict", "--dest", "Zurich", "--distance", "40", "--days", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "No model available yet")
	assert.Contains(t, out, "Run `tripcost seed` first")
	assert.NotContains(t, out, "tripcost train", "predict bootstraps from the seed file on its own")

	_, err = os.Stat(env.modelPath)
	assert.True(t, os.IsNotExist(err))
}

func TestTrainWithoutData(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "train")
	require.NoError(t, err)
	assert.Contains(t, out, "Run `tripcost seed` first")
}

func TestEndToEnd(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "seed", "--quiet", "--random-seed", "42")
	require.NoError(t, err)

	out, err := env.run(t, "train")
	require.NoError(t, err)
	assert.Contains(t, out, "Model ready")
	assert.Contains(t, out, "validation MAE")
	assert.FileExists(t, env.modelPath)

	out, err = env.run(t, "predict", "--dest", "Zurich", "--distance", "42", "--days", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Estimated cost")
	assert.Contains(t, out, "T1")

	out, err = env.run(t, "forecast", "--origin", "Bern", "--dest", "Lugano",
		"--start", "2025-12-10", "--end", "2025-12-12", "--participants", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Per person")
	assert.Contains(t, out, "Total (3)")

	out, err = env.run(t, "record", "--user", "u1", "--origin", "St. Gallen", "--dest", "Zurich",
		"--start", "2025-12-01", "--end", "2025-12-03",
		"--hotel", "480", "--transport", "64.2", "--meals", "180", "--other", "15.8")
	require.NoError(t, err)
	assert.Contains(t, out, "CHF 740.00 over 3 days")

	out, err = env.run(t, "train", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "Trained on")
	assert.Contains(t, out, "Coefficients")
	assert.Contains(t, out, "intercept")
	assert.Contains(t, out, "distance_km")
	assert.Contains(t, out, "dest_city=Zurich")

	xlsx := filepath.Join(env.dir, "out.xlsx")
	out, err = env.run(t, "export", "--out", xlsx)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported")

	wb, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()
	rows, err := wb.GetRows(export.ObservationsSheet)
	require.NoError(t, err)
	assert.Greater(t, len(rows), 2)
	assert.Equal(t, "u1", rows[len(rows)-1][1], "the recorded trip is the last row")
}

func (e *testEnv) dropDatabase(t *testing.T) {
	t.Helper()
	for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
		err := os.Remove(e.dbPath + suffix)
		if err != nil && !os.IsNotExist(err) {
			require.NoError(t, err)
		}
	}
}

func (e *testEnv) modelRows(t *testing.T) int {
	t.Helper()
	artifact, err := predictor.NewFileSlot(e.modelPath).Load(context.Background())
	require.NoError(t, err)
	return artifact.Rows
}

func TestTrainIgnoresModelFromAnotherDatabase(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "seed", "--quiet", "--random-seed", "3")
	require.NoError(t, err)
	_, err = env.run(t, "train")
	require.NoError(t, err)
	seedRows := env.modelRows(t)

	_, err = env.run(t, "record", "--user", "u1", "--origin", "Bern", "--dest", "Zurich",
		"--start", "2025-12-01", "--end", "2025-12-02", "--hotel", "200")
	require.NoError(t, err)
	require.Equal(t, seedRows+1, env.modelRows(t))

	// A fresh training table next to the old model is bootstrapped again.
	env.dropDatabase(t)
	out, err := env.run(t, "train")
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("Model ready, trained on %d seed trips", seedRows))
	assert.Equal(t, seedRows, env.modelRows(t))

	// Without a seed file the old model is not reported as ready.
	env.dropDatabase(t)
	require.NoError(t, os.Remove(env.seedPath))
	out, err = env.run(t, "train")
	require.NoError(t, err)
	assert.Contains(t, out, "Run `tripcost seed` first")
	assert.NotContains(t, out, "Model ready")
}

func TestSeedLoad(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "seed", "--quiet", "--random-seed", "5", "--load")
	require.NoError(t, err)
	assert.Contains(t, out, "seed trips and retrained")
	assert.Contains(t, out, "validation MAE")
	assert.FileExists(t, env.modelPath)

	_, err = env.run(t, "seed", "--quiet", "--random-seed", "5", "--load")
	assert.ErrorIs(t, err, predictor.ErrSeedAlreadyLoaded)
}

func TestRecordRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"bad date", []string{"--start", "01.12.2025", "--end", "2025-12-03"}},
		{"end before start", []string{"--start", "2025-12-05", "--end", "2025-12-03"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"record", "--user", "u1", "--origin", "Bern", "--dest", "Zurich"}, tt.args...)
			_, err := env.run(t, args...)
			assert.Error(t, err)
		})
	}
}

func TestForecastRejectsNoParticipants(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "forecast", "--origin", "Bern", "--dest", "Zurich",
		"--start", "2025-12-10", "--end", "2025-12-10", "--participants", "0")
	assert.Error(t, err)
}

func TestMigrate(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrations completed")

	out, err = env.run(t, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "Current version")
	assert.Contains(t, out, fmt.Sprint(storage.ExpectedSchemaVersion))
}

func TestInvalidConfig(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("TRIPCOST_DATABASE_DRIVER", "oracle")

	_, err := env.run(t, "train")
	assert.Error(t, err)
}
