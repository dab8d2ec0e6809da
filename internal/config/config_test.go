package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operator-framework/plansat/internal/config"
)

var keys = []string{
	"PLANSAT_BRANCHING",
	"PLANSAT_LEARNING",
	"PLANSAT_RESTART",
	"PLANSAT_TIME_LIMIT",
	"PLANSAT_STEP_LIMIT",
	"PLANSAT_LOG_LEVEL",
}

// unsetAll unsets every key for the duration of the test.
func unsetAll(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestDefaults(t *testing.T) {
	unsetAll(t)
	assert.Equal(t, "activity", config.Branching())
	assert.True(t, config.Learning())
	assert.Equal(t, "geometric", config.Restart())
	assert.Zero(t, config.TimeLimit())
	assert.Zero(t, config.StepLimit())
	assert.Equal(t, "warn", config.LogLevel())

	opts, err := config.SolverOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 5)
}

func TestAccessors(t *testing.T) {
	for _, tt := range []struct {
		Name  string
		Key   string
		Value string
		Check func(t *testing.T)
	}{
		{
			Name: "branching", Key: "PLANSAT_BRANCHING", Value: "first-unassigned",
			Check: func(t *testing.T) { assert.Equal(t, "first-unassigned", config.Branching()) },
		},
		{
			Name: "learning off", Key: "PLANSAT_LEARNING", Value: "false",
			Check: func(t *testing.T) { assert.False(t, config.Learning()) },
		},
		{
			Name: "malformed learning", Key: "PLANSAT_LEARNING", Value: "maybe",
			Check: func(t *testing.T) { assert.True(t, config.Learning()) },
		},
		{
			Name: "time limit", Key: "PLANSAT_TIME_LIMIT", Value: "1m30s",
			Check: func(t *testing.T) { assert.Equal(t, 90*time.Second, config.TimeLimit()) },
		},
		{
			Name: "negative time limit", Key: "PLANSAT_TIME_LIMIT", Value: "-5s",
			Check: func(t *testing.T) { assert.Zero(t, config.TimeLimit()) },
		},
		{
			Name: "step limit", Key: "PLANSAT_STEP_LIMIT", Value: "5000",
			Check: func(t *testing.T) { assert.Equal(t, int64(5000), config.StepLimit()) },
		},
		{
			Name: "malformed step limit", Key: "PLANSAT_STEP_LIMIT", Value: "lots",
			Check: func(t *testing.T) { assert.Zero(t, config.StepLimit()) },
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			unsetAll(t)
			t.Setenv(tt.Key, tt.Value)
			tt.Check(t)
		})
	}
}

func TestSolverOptionsRejectsUnknownNames(t *testing.T) {
	unsetAll(t)
	t.Setenv("PLANSAT_BRANCHING", "random")
	_, err := config.SolverOptions()
	assert.ErrorContains(t, err, "PLANSAT_BRANCHING")

	t.Setenv("PLANSAT_BRANCHING", "activity")
	t.Setenv("PLANSAT_RESTART", "luby")
	_, err = config.SolverOptions()
	assert.ErrorContains(t, err, "PLANSAT_RESTART")
}

func TestSolverOptionsRejectsMalformedValues(t *testing.T) {
	for _, tt := range []struct {
		Key   string
		Value string
	}{
		{Key: "PLANSAT_LEARNING", Value: "maybe"},
		{Key: "PLANSAT_TIME_LIMIT", Value: "soon"},
		{Key: "PLANSAT_TIME_LIMIT", Value: "-5s"},
		{Key: "PLANSAT_STEP_LIMIT", Value: "lots"},
		{Key: "PLANSAT_STEP_LIMIT", Value: "-1"},
	} {
		t.Run(tt.Key+"="+tt.Value, func(t *testing.T) {
			unsetAll(t)
			t.Setenv(tt.Key, tt.Value)
			_, err := config.SolverOptions()
			assert.ErrorContains(t, err, tt.Key)
		})
	}

	unsetAll(t)
	t.Setenv("PLANSAT_LEARNING", "false")
	t.Setenv("PLANSAT_TIME_LIMIT", "2s")
	t.Setenv("PLANSAT_STEP_LIMIT", "10")
	opts, err := config.SolverOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 5)
}

func TestLoad(t *testing.T) {
	unsetAll(t)
	dir := t.TempDir()
	env := filepath.Join(dir, "plansat.env")
	require.NoError(t, os.WriteFile(env, []byte("PLANSAT_RESTART=none\nPLANSAT_STEP_LIMIT=42\n"), 0o600))
	t.Setenv("PLANSAT_ENV", env)
	// set before loading, so the file does not override it
	t.Setenv("PLANSAT_STEP_LIMIT", "7")

	require.NoError(t, config.Load())
	t.Cleanup(func() { _ = os.Unsetenv("PLANSAT_RESTART") })
	assert.Equal(t, "none", config.Restart())
	assert.Equal(t, int64(7), config.StepLimit())
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("PLANSAT_ENV", filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, config.Load())
}

func TestLogger(t *testing.T) {
	unsetAll(t)
	t.Setenv("PLANSAT_LOG_LEVEL", "debug")
	log, err := config.Logger()
	require.NoError(t, err)
	assert.NotNil(t, log)

	t.Setenv("PLANSAT_LOG_LEVEL", "chatty")
	_, err = config.Logger()
	assert.Error(t, err)
}
