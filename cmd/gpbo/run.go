package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/thalesfsp/gpbo"
)

// runOutput is the YAML document printed by the run command.
type runOutput struct {
	RunID        string             `yaml:"run_id"`
	Function     string             `yaml:"function"`
	Dim          int                `yaml:"dim"`
	Task         string             `yaml:"task"`
	Acquisition  string             `yaml:"acquisition"`
	Seed         int64              `yaml:"seed"`
	BestParams   []float64          `yaml:"best_params"`
	BestValue    float64            `yaml:"best_value"`
	KnownMinimum *float64           `yaml:"known_minimum,omitempty"`
	Evaluations  int                `yaml:"evaluations"`
	Kernel       string             `yaml:"kernel"`
	KernelParams map[string]float64 `yaml:"kernel_params,omitempty"`
	FitStatus    string             `yaml:"fit_status,omitempty"`
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Optimize a benchmark objective",
		Long: `Optimize a benchmark objective and print the result as YAML.

Every flag can also be set through a GPBO_<FLAG> environment variable
(dashes become underscores) or a YAML file given with --config.

Examples:
  gpbo run --function branin --iterations 30
  gpbo run --function ackley --dim 3 --acquisition kg --samples 50
  GPBO_ACQUISITION=ts gpbo run --function shubert`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return runOptimization(ctx, rc, cmd.OutOrStdout())
		},
	}

	addRunFlags(cmd.Flags())

	return cmd
}

func runOptimization(ctx context.Context, rc runConfig, w io.Writer) error {
	config, prob, err := rc.build()
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	logger, err := newLogger(rc.LogLevel)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	defer func() { _ = logger.Sync() }()

	reg := prometheus.NewRegistry()

	metrics, err := gpbo.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	config.Logger = logger
	config.Metrics = metrics

	f := prob.function
	objective := gpbo.ObjectiveFunc[float64](func(params ...float64) (float64, error) {
		return f.Func(params), nil
	})

	res, err := gpbo.Optimize(ctx, config, objective, prob.ranges...)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	if rc.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(rc.MetricsFile, reg); err != nil {
			logger.Warn("writing metrics failed", zap.String("path", rc.MetricsFile), zap.Error(err))
		}
	}

	out := runOutput{
		RunID:       res.RunID,
		Function:    f.Name(),
		Dim:         prob.dim,
		Task:        string(config.Task),
		Acquisition: string(config.Acquisition),
		Seed:        config.Seed,
		BestParams:  res.BestParams,
		BestValue:   res.BestValue,
		Evaluations: len(res.History),
		Kernel:      config.Kernel.Name(),
		FitStatus:   res.Fit.Status,
	}

	if res.Fit.Params.Len() > 0 {
		out.KernelParams = res.Fit.Params.Map()
	}

	if m, ok := f.Minimum(prob.dim); ok {
		out.KnownMinimum = &m.F
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	return enc.Close()
}
