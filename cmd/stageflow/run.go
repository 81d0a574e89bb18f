package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	stageflow "github.com/simon020286/go-stageflow"
	"github.com/simon020286/go-stageflow/builder"
	"github.com/simon020286/go-stageflow/config"
	"github.com/simon020286/go-stageflow/history"
	"github.com/simon020286/go-stageflow/internal/ui"
	"github.com/simon020286/go-stageflow/models"
	"github.com/simon020286/go-stageflow/telemetry"
)

type runOptions struct {
	timeout   time.Duration
	tick      time.Duration
	seed      uint64
	noHistory bool
	trace     bool
}

func runCmd(a *app) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <file|workflow>...",
		Short: "Run one or more workflows side by side",
		Long: "Run workflows from YAML files or by name from the workflow catalog.\n" +
			"Several workflows run concurrently, each on its own handle.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWorkflows(ctx, cmd, a.settings, opts, args)
		},
	}

	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Stop each run after this long (overrides settings and workflow files)")
	cmd.Flags().DurationVar(&opts.tick, "tick", 0, "Tick interval (overrides settings and workflow files)")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "Seed for reproducible progress (0 = random)")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "Do not record the runs in the history database")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "Print OpenTelemetry spans for every run and step")

	return cmd
}

// engineConfig maps settings onto the engine defaults
func engineConfig(s config.EngineSettings) stageflow.Config {
	return stageflow.Config{
		TickInterval: s.TickInterval,
		MinIncrement: s.MinIncrement,
		MaxIncrement: s.MaxIncrement,
		MaxDuration:  s.MaxDuration,
		Seed:         s.Seed,
	}
}

func runWorkflows(ctx context.Context, cmd *cobra.Command, settings *config.Settings, opts runOptions, refs []string) error {
	catalog, err := builder.LoadCatalog(builder.GetWorkflowsPath())
	if err != nil {
		return err
	}

	workflows := make([]*stageflow.Workflow, 0, len(refs))
	for _, ref := range refs {
		cfg, err := catalog.Resolve(ref)
		if err != nil {
			return err
		}
		wf, err := stageflow.BuildFromConfig(cfg, nil)
		if err != nil {
			return fmt.Errorf("build %s: %w", ref, err)
		}
		workflows = append(workflows, wf)
	}

	engCfg := engineConfig(settings.Engine)
	if cmd.Flags().Changed("seed") {
		engCfg.Seed = opts.seed
	}
	engine := stageflow.New(stageflow.WithConfig(engCfg), stageflow.WithLogger(slog.Default()))

	var startOpts []stageflow.StartOption
	if cmd.Flags().Changed("tick") {
		startOpts = append(startOpts, stageflow.WithTickInterval(opts.tick))
	}
	if cmd.Flags().Changed("timeout") {
		startOpts = append(startOpts, stageflow.WithMaxDuration(opts.timeout))
	}
	if opts.trace {
		provider := telemetry.NewPrintingProvider(cmd.ErrOrStderr())
		defer func() { _ = provider.Shutdown(context.Background()) }()
		listener := telemetry.NewListener(ctx, provider.Tracer(telemetry.TracerName))
		startOpts = append(startOpts, stageflow.WithListener(listener))
	}

	live := ui.IsInteractive() && !opts.trace
	checklist := ui.NewChecklist(cmd.ErrOrStderr(), live)

	handles := make([]*stageflow.Handle, 0, len(workflows))
	for _, wf := range workflows {
		h, err := wf.Start(engine, startOpts...)
		if err != nil {
			for _, started := range handles {
				started.Cancel()
			}
			return fmt.Errorf("start %s: %w", wf.Name, err)
		}
		checklist.Track(h.State())
		h.Subscribe(checklist)
		handles = append(handles, h)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, h := range handles {
		g.Go(func() error {
			if err := h.Wait(gctx); err != nil {
				h.Cancel()
			}
			return nil
		})
	}
	_ = g.Wait()
	checklist.Flush()

	var store *history.Store
	if settings.History.Enabled && !opts.noHistory {
		store, err = history.Open(settings.History.Path)
		if err != nil {
			slog.Warn("Run history disabled.", "err", err)
		} else {
			defer store.Close()
		}
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, h := range handles {
		summary := stageflow.Summarize(h.State(), settings.Engine.BaselineStepDuration)
		fmt.Fprintln(out)
		fmt.Fprintln(out, ui.OutcomeMsg(summary))
		fmt.Fprint(out, ui.Summary(summary))
		if summary.Outcome != models.OutcomeCompleted {
			failed++
		}
		if store != nil {
			if err := store.Record(context.Background(), summary); err != nil {
				slog.Warn("Failed to record run.", "run", summary.WorkflowID, "err", err)
			}
		}
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		return errors.New("interrupted")
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d workflows did not complete", failed, len(handles))
	}
	return nil
}
