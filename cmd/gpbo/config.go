package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/thalesfsp/gpbo"
	"github.com/thalesfsp/gpbo/testfunctions"
)

// envPrefix prefixes every environment override, e.g. GPBO_ITERATIONS.
const envPrefix = "GPBO"

// runConfig is the flattened configuration of the run command. Keys match
// flag names; values come from flags, GPBO_* variables and an optional YAML
// file, in that order of precedence.
type runConfig struct {
	Function       string  `mapstructure:"function"`
	Dim            int     `mapstructure:"dim"`
	Task           string  `mapstructure:"task"`
	Acquisition    string  `mapstructure:"acquisition"`
	Kernel         string  `mapstructure:"kernel"`
	Nu             float64 `mapstructure:"nu"`
	Iterations     int     `mapstructure:"iterations"`
	InitialSamples int     `mapstructure:"initial-samples"`
	Design         string  `mapstructure:"design"`
	Candidates     int     `mapstructure:"candidates"`
	Noise          float64 `mapstructure:"noise"`
	Normalize      bool    `mapstructure:"normalize"`
	Xi             float64 `mapstructure:"xi"`
	Kappa          float64 `mapstructure:"kappa"`
	Samples        int     `mapstructure:"samples"`
	Workers        int     `mapstructure:"workers"`
	Seed           int64   `mapstructure:"seed"`
	LogLevel       string  `mapstructure:"log-level"`
	MetricsFile    string  `mapstructure:"metrics-file"`
}

// addRunFlags declares the run flags with defaults taken from
// gpbo.DefaultConfig.
func addRunFlags(fs *pflag.FlagSet) {
	def := gpbo.DefaultConfig()

	fs.String("config", "", "YAML config file")
	fs.String("function", "branin", "benchmark objective (see `gpbo functions`)")
	fs.Int("dim", 2, "dimension for functions that accept any dimension")
	fs.String("task", string(def.Task), "min or max")
	fs.String("acquisition", string(def.Acquisition), "ei, pi, cb, ts or kg")
	fs.String("kernel", "matern", "rbf or matern")
	fs.Float64("nu", 2.5, "Matérn smoothness")
	fs.Int("iterations", def.Iterations, "model-guided evaluations")
	fs.Int("initial-samples", def.InitialSamples, "initial design size")
	fs.String("design", string(def.InitialDesign), "initial design: random, lhs or maxmin")
	fs.Int("candidates", def.NumCandidates, "random candidates scored per iteration")
	fs.Float64("noise", def.Noise, "observation-noise standard deviation")
	fs.Bool("normalize", def.Normalize, "standardize observations before each fit")
	fs.Float64("xi", def.AcqParams.Xi, "EI/PI improvement margin")
	fs.Float64("kappa", def.AcqParams.Kappa, "confidence bound width")
	fs.Int("samples", def.AcqParams.Samples, "Knowledge Gradient Monte-Carlo samples")
	fs.Int("workers", def.AcqParams.Workers, "Knowledge Gradient workers")
	fs.Int64("seed", 0, "random seed, 0 picks one from the clock")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.String("metrics-file", "", "write prometheus metrics to this file after the run")
}

// loadConfig resolves the run configuration from fs, the environment and the
// file named by the config flag.
func loadConfig(fs *pflag.FlagSet) (runConfig, error) {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return runConfig{}, fmt.Errorf("config: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return runConfig{}, fmt.Errorf("config: %w", err)
		}
	}

	var rc runConfig
	if err := v.Unmarshal(&rc); err != nil {
		return runConfig{}, fmt.Errorf("config: %w", err)
	}

	return rc, nil
}

// problem is a resolved benchmark run.
type problem struct {
	function testfunctions.Function
	dim      int
	ranges   []gpbo.ParameterRange[float64]
}

// build turns rc into an optimization config and the problem it runs on.
func (rc runConfig) build() (gpbo.OptimizationConfig, problem, error) {
	f, err := testfunctions.ByName(rc.Function)
	if err != nil {
		return gpbo.OptimizationConfig{}, problem{}, err
	}

	dim := rc.Dim
	if f.Dim() > 0 {
		dim = f.Dim()
	}

	if dim < 1 {
		return gpbo.OptimizationConfig{}, problem{}, fmt.Errorf("dim %d: %w", dim, gpbo.ErrInvalidArgument)
	}

	lower, upper := f.Bounds(dim)

	ranges := make([]gpbo.ParameterRange[float64], dim)
	for i := range ranges {
		ranges[i] = gpbo.ParameterRange[float64]{Min: lower[i], Max: upper[i]}
	}

	acq, err := gpbo.ParseAcquisition(rc.Acquisition)
	if err != nil {
		return gpbo.OptimizationConfig{}, problem{}, err
	}

	design, err := gpbo.ParseDesign(rc.Design)
	if err != nil {
		return gpbo.OptimizationConfig{}, problem{}, err
	}

	task := gpbo.Task(rc.Task)
	if err := task.Validate(); err != nil {
		return gpbo.OptimizationConfig{}, problem{}, err
	}

	var kernel gpbo.Kernel

	switch rc.Kernel {
	case "rbf":
		kernel = gpbo.RBF{}
	case "matern":
		if !(rc.Nu > 0) {
			return gpbo.OptimizationConfig{}, problem{}, fmt.Errorf("nu %g: %w", rc.Nu, gpbo.ErrInvalidArgument)
		}

		kernel = gpbo.Matern{Nu: rc.Nu}
	default:
		return gpbo.OptimizationConfig{}, problem{}, fmt.Errorf("kernel %q: %w", rc.Kernel, gpbo.ErrInvalidArgument)
	}

	seed := rc.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	config := gpbo.DefaultConfig()
	config.Task = task
	config.Iterations = rc.Iterations
	config.InitialSamples = rc.InitialSamples
	config.InitialDesign = design
	config.NumCandidates = rc.Candidates
	config.Acquisition = acq
	config.AcqParams.Xi = rc.Xi
	config.AcqParams.Kappa = rc.Kappa
	config.AcqParams.Samples = rc.Samples
	config.AcqParams.Workers = rc.Workers
	config.Kernel = kernel
	config.Noise = rc.Noise
	config.Normalize = rc.Normalize
	config.Seed = seed

	return config, problem{function: f, dim: dim, ranges: ranges}, nil
}

// newLogger builds a production zap logger writing to stderr at level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
