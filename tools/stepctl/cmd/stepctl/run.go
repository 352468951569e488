package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AltairaLabs/stepflow/runtime/definition"
	"github.com/AltairaLabs/stepflow/runtime/events"
	"github.com/AltairaLabs/stepflow/runtime/logger"
	"github.com/AltairaLabs/stepflow/runtime/statestore"
	"github.com/AltairaLabs/stepflow/runtime/validators"
	"github.com/AltairaLabs/stepflow/runtime/workflow"
	"github.com/AltairaLabs/stepflow/tools/stepctl/tui"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	var (
		resume string
		start  int
	)
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run a workflow interactively in the terminal",
		Long: `Runs a Workflow resource in an interactive terminal UI.

Keys: ←/→ move focus between step headers, home/end jump to the first or last
reachable step, enter opens the focused step (or its content), n/b/s advance,
go back or skip, e edits the current step's data as key=value.

With --redis (or redis.addr in stepctl.yaml) every change is checkpointed
and an interrupted run can be continued with --resume <run-id>. With
--journal every event is appended to <dir>/<run-id>.jsonl.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(v, cmd.Flags(), map[string]string{
				"redis.addr": "redis",
				"journal":    "journal",
			}); err != nil {
				return err
			}
			s, err := loadSettings(v)
			if err != nil {
				return err
			}
			return runWorkflow(cmd.Context(), s, args[0], resume, start)
		},
	}
	cmd.Flags().StringVar(&resume, "resume", "", "Continue a checkpointed run")
	cmd.Flags().IntVar(&start, "start", 0, "Start at this step index (ignored with --resume)")
	cmd.Flags().String("redis", "", "Redis address for checkpoints")
	cmd.Flags().String("journal", "", "Directory for JSONL event journals")
	return cmd
}

func runWorkflow(ctx context.Context, s *settings, file, resume string, start int) error {
	def, err := definition.LoadFile(file)
	if err != nil {
		return err
	}

	store, closeStore := openStore(s)
	defer func() { _ = closeStore() }()
	if resume != "" && store == nil {
		return fmt.Errorf("--resume requires a redis address")
	}

	bus := events.NewEventBus()
	if s.Journal != "" {
		journal, err := events.NewFileEventStore(s.Journal)
		if err != nil {
			return err
		}
		defer func() { _ = journal.Close() }()
		bus.SubscribeAll(journal.Listener())
	}

	data := validators.NewDataStore()
	title := def.Name()
	if def.Spec.Description != "" {
		title = def.Spec.Description
	}
	model := tui.New(ctx, title, data)

	opts := []workflow.Option{
		workflow.WithEventBus(bus),
		workflow.WithFocusPort(model),
		workflow.WithAnnouncer(model),
	}

	var nav *workflow.Navigator
	if resume != "" {
		snap, err := store.Load(ctx, resume)
		if err != nil {
			return fmt.Errorf("resume %s: %w", resume, err)
		}
		nav, err = def.Restore(snap, data, nil, opts...)
		if err != nil {
			return err
		}
	} else {
		if start > 0 {
			opts = append(opts, workflow.WithStartIndex(start))
		}
		nav, err = def.Build(data, nil, opts...)
		if err != nil {
			return err
		}
	}
	model.Attach(nav)

	if store != nil {
		cp := statestore.NewCheckpointer(store, nav)
		cp.Attach(bus)
		if err := cp.Save(ctx); err != nil {
			logger.Warn("initial checkpoint failed", "error", err)
		}
	}

	// The TUI owns the terminal; quiet the logger until it exits.
	logger.SetLevel(logger.ParseLevel("error"))
	if err := tui.Run(ctx, model); err != nil {
		return err
	}

	fmt.Printf("run %s: step %d of %d", nav.RunID(), nav.CurrentIndex()+1, nav.Len())
	if nav.IsCompleted() {
		fmt.Print(", completed")
	}
	fmt.Println()
	return nil
}
