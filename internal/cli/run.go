package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/NetPo4ki/go-taskgroup/internal/config"
	"github.com/NetPo4ki/go-taskgroup/internal/logging"
	otelobs "github.com/NetPo4ki/go-taskgroup/observe/otel"
	"github.com/NetPo4ki/go-taskgroup/observe/prom"
	"github.com/NetPo4ki/go-taskgroup/scope"
	"github.com/NetPo4ki/go-taskgroup/taskgroup"
)

const tracerName = "github.com/NetPo4ki/go-taskgroup/internal/cli"

// flag name -> config key
var runFlagKeys = map[string]string{
	"tasks":           "tasks",
	"policy":          "policy",
	"max-concurrency": "max_concurrency",
	"delay":           "delay",
	"fail-task":       "fail_task",
	"timeout":         "timeout",
	"log-level":       "log_level",
	"log-format":      "log_format",
	"metrics":         "metrics",
}

func newRunCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Spawn tasks and print their results in completion order",
		Long: `run spawns --tasks tasks. Task i sleeps (tasks-i+1)*delay and returns
"Result from task i", so later submissions tend to finish first. Results are
printed as they complete. With --fail-task one task fails; --policy decides
whether its siblings are cancelled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.NewViper(*cfgFile)
			if err != nil {
				return err
			}
			for name, key := range runFlagKeys {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
					return fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return runDemo(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg)
		},
	}

	d := config.Default()
	f := cmd.Flags()
	f.Int("tasks", d.Tasks, "number of tasks to spawn")
	f.String("policy", d.Policy, "failure policy: failfast or supervisor")
	f.Int("max-concurrency", d.MaxConcurrency, "max tasks executing at once (0 = unbounded)")
	f.Duration("delay", d.Delay, "base delay per task")
	f.Int("fail-task", d.FailTask, "1-based task that fails (0 = none)")
	f.Duration("timeout", d.Timeout, "cancel the group after this long (0 = never)")
	f.String("log-level", d.LogLevel, "log level: debug, info, warn, error")
	f.String("log-format", d.LogFormat, "log format: text or json")
	f.Bool("metrics", d.Metrics, "print Prometheus metrics after the run")
	return cmd
}

func runDemo(ctx context.Context, out, errOut io.Writer, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, err := logging.New(errOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	policy, err := cfg.ParsePolicy()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := prom.New(reg, "taskgroup")
	if err != nil {
		return err
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "taskgroup.run")
	defer span.End()

	opts := []taskgroup.Option{
		taskgroup.WithLogger(logger),
		taskgroup.WithMaxConcurrency(cfg.MaxConcurrency),
		taskgroup.WithObserver(scope.Observers(
			metrics,
			otelobs.New(attribute.String("taskgroup.policy", policy.String())),
		)),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, taskgroup.WithTimeout(cfg.Timeout))
	}

	failed := 0
	err = taskgroup.Run(ctx, policy, func(_ context.Context, g *taskgroup.Group[string]) error {
		for i := 1; i <= cfg.Tasks; i++ {
			delay := time.Duration(cfg.Tasks-i+1) * cfg.Delay
			if err := g.Spawn(func(ctx context.Context) (string, error) {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return "", ctx.Err()
				}
				if i == cfg.FailTask {
					return "", fmt.Errorf("simulated failure of task %d", i)
				}
				return fmt.Sprintf("Result from task %d", i), nil
			}); err != nil {
				return err
			}
		}

		// Next is driven by the caller's context: a fail-fast cancellation
		// of the group must not stop the drain.
		for {
			res, err := g.Next(ctx)
			if errors.Is(err, taskgroup.ErrDone) {
				return nil
			}
			if err != nil {
				return err
			}
			if res.Err != nil {
				failed++
				_, _ = fmt.Fprintf(out, "task %d: error: %v\n", res.ID, res.Err)
				continue
			}
			_, _ = fmt.Fprintf(out, "task %d: %s\n", res.ID, res.Value)
		}
	}, opts...)

	if cfg.Metrics {
		if werr := writeMetrics(out, reg); werr != nil {
			return werr
		}
	}
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tasks failed", failed, cfg.Tasks)
	}
	logger.Info("run complete", "tasks", cfg.Tasks, "policy", policy.String())
	return nil
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
