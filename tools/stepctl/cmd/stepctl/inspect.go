package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/AltairaLabs/stepflow/runtime/events"
	"github.com/AltairaLabs/stepflow/runtime/statestore"
	"github.com/AltairaLabs/stepflow/runtime/workflow"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

var errNoStore = errors.New("inspect requires a redis address (--redis or redis.addr)")

type inspectOptions struct {
	workflow string
	limit    int
	output   string
	events   bool
}

func newInspectCmd(v *viper.Viper) *cobra.Command {
	var opts inspectOptions
	cmd := &cobra.Command{
		Use:   "inspect [run-id]",
		Short: "List persisted runs or show one run",
		Long: `Without arguments, lists checkpointed runs, most recently updated first.
With a run id, prints the run's snapshot; --events also prints the run's
journal from the configured journal directory.`,
		Args: cobra.MaximumNArgs(1),
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
			store, closeStore := openStore(s)
			defer func() { _ = closeStore() }()
			if store == nil {
				return errNoStore
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				return listRuns(ctx, out, store, &opts)
			}
			if err := showRun(ctx, out, store, args[0], opts.output); err != nil {
				return err
			}
			if opts.events {
				return showJournal(ctx, out, s.Journal, args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.workflow, "workflow", "", "Only list runs of this workflow")
	cmd.Flags().IntVar(&opts.limit, "limit", statestore.DefaultListLimit, "Maximum runs to list")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputTable, "Output format: table, json, yaml")
	cmd.Flags().BoolVar(&opts.events, "events", false, "Also print the run's event journal")
	cmd.Flags().String("redis", "", "Redis address")
	cmd.Flags().String("journal", "", "Event journal directory")
	return cmd
}

func listRuns(ctx context.Context, out io.Writer, store statestore.Store, opts *inspectOptions) error {
	ids, err := store.List(ctx, statestore.ListOptions{Workflow: opts.workflow, Limit: opts.limit})
	if err != nil {
		return err
	}

	snaps := make([]*workflow.Snapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := store.Load(ctx, id)
		if errors.Is(err, statestore.ErrNotFound) {
			continue // expired between List and Load
		}
		if err != nil {
			return err
		}
		snaps = append(snaps, snap)
	}

	if opts.output != outputTable {
		return encode(out, opts.output, snaps)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tWORKFLOW\tSTEP\tSTATUS\tUPDATED")
	for _, snap := range snaps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			snap.RunID, snap.Workflow, currentStep(snap), runStatus(snap), snap.UpdatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func showRun(ctx context.Context, out io.Writer, store statestore.Store, runID, output string) error {
	snap, err := store.Load(ctx, runID)
	if err != nil {
		return err
	}
	if output != outputTable {
		return encode(out, output, snap)
	}

	fmt.Fprintf(out, "Run:       %s\n", snap.RunID)
	fmt.Fprintf(out, "Workflow:  %s\n", snap.Workflow)
	fmt.Fprintf(out, "Status:    %s\n", runStatus(snap))
	fmt.Fprintf(out, "Started:   %s\n", snap.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "Updated:   %s\n", snap.UpdatedAt.Format(time.RFC3339))
	fmt.Fprintln(out, "Steps:")
	for i, id := range snap.StepOrder {
		marker := " "
		if i == snap.CurrentIndex {
			marker = "›"
		}
		fmt.Fprintf(out, "  %s %d. %-20s %s\n", marker, i+1, id, snap.Statuses[id])
	}
	if n := snap.TransitionCount(); n > 0 {
		fmt.Fprintf(out, "Transitions: %d\n", n)
	}
	return nil
}

func showJournal(ctx context.Context, out io.Writer, dir, runID string) error {
	if dir == "" {
		return errors.New("--events requires a journal directory (--journal or journal)")
	}
	journal, err := events.NewFileEventStore(dir)
	if err != nil {
		return err
	}
	defer func() { _ = journal.Close() }()

	stored, err := journal.Query(ctx, &events.EventFilter{RunID: runID})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Events: %d\n", len(stored))
	for _, e := range stored {
		fmt.Fprintf(out, "  %s  %-20s %s\n", e.Timestamp.Format(time.RFC3339), e.Type, string(e.Data))
	}
	return nil
}

func currentStep(snap *workflow.Snapshot) string {
	if snap.CurrentIndex < 0 || snap.CurrentIndex >= len(snap.StepOrder) {
		return "-"
	}
	return fmt.Sprintf("%d/%d %s", snap.CurrentIndex+1, len(snap.StepOrder), snap.StepOrder[snap.CurrentIndex])
}

func runStatus(snap *workflow.Snapshot) string {
	if snap.Completed {
		return "completed"
	}
	return "in progress"
}

func encode(out io.Writer, format string, v any) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(out)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
