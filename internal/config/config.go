package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/operator-framework/plansat/pkg/plansat/solver"
)

// Load reads the .env file named by PLANSAT_ENV (or .env by default).
// Variables already set in the environment win over the file. All config
// is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("PLANSAT_ENV")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading %s: %w", envFile, err)
	}
	return nil
}

// Branching returns the branching heuristic.
// Defaults to "activity" if not set.
// Valid values: first-unassigned, activity
func Branching() string {
	b := os.Getenv("PLANSAT_BRANCHING")
	if b == "" {
		return string(solver.Activity)
	}
	return b
}

// Learning reports whether clause learning is on. Defaults to true.
func Learning() bool {
	learning, err := strconv.ParseBool(os.Getenv("PLANSAT_LEARNING"))
	if err != nil {
		return true
	}
	return learning
}

// Restart returns the restart policy.
// Defaults to "geometric" if not set.
// Valid values: none, geometric
func Restart() string {
	r := os.Getenv("PLANSAT_RESTART")
	if r == "" {
		return string(solver.Geometric)
	}
	return r
}

// TimeLimit returns the time limit of a solve, such as "30s".
// Defaults to no limit.
func TimeLimit() time.Duration {
	d, err := time.ParseDuration(os.Getenv("PLANSAT_TIME_LIMIT"))
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// StepLimit returns the maximum number of decisions of a solve.
// Defaults to no limit.
func StepLimit() int64 {
	n, err := strconv.ParseInt(os.Getenv("PLANSAT_STEP_LIMIT"), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "warn" if not set.
func LogLevel() string {
	level := os.Getenv("PLANSAT_LOG_LEVEL")
	if level == "" {
		return "warn"
	}
	return level
}

// validate reports a value that is set but that the accessors would
// replace by their default.
func validate() error {
	if v := os.Getenv("PLANSAT_LEARNING"); v != "" {
		if _, err := strconv.ParseBool(v); err != nil {
			return fmt.Errorf("PLANSAT_LEARNING: %w", err)
		}
	}
	if v := os.Getenv("PLANSAT_TIME_LIMIT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PLANSAT_TIME_LIMIT: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("PLANSAT_TIME_LIMIT: negative duration %s", v)
		}
	}
	if v := os.Getenv("PLANSAT_STEP_LIMIT"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("PLANSAT_STEP_LIMIT: %w", err)
		}
		if n < 0 {
			return fmt.Errorf("PLANSAT_STEP_LIMIT: negative limit %d", n)
		}
	}
	return nil
}

// SolverOptions turns the environment into solver options. Unknown
// heuristic or restart names and malformed values are errors.
func SolverOptions() ([]solver.Option, error) {
	if err := validate(); err != nil {
		return nil, err
	}
	b, err := solver.ParseBranching(Branching())
	if err != nil {
		return nil, fmt.Errorf("PLANSAT_BRANCHING: %w", err)
	}
	r, err := solver.ParseRestart(Restart())
	if err != nil {
		return nil, fmt.Errorf("PLANSAT_RESTART: %w", err)
	}
	return []solver.Option{
		solver.WithBranching(b),
		solver.WithLearning(Learning()),
		solver.WithRestart(r),
		solver.WithTimeLimit(TimeLimit()),
		solver.WithStepLimit(StepLimit()),
	}, nil
}

// Logger builds a console logger at LogLevel.
func Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(LogLevel())
	if err != nil {
		return nil, fmt.Errorf("PLANSAT_LOG_LEVEL: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}
