package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AltairaLabs/stepflow/runtime/definition"
	"github.com/AltairaLabs/stepflow/runtime/validators"
	"github.com/AltairaLabs/stepflow/runtime/workflow"
)

func newValidateCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate workflow resources",
		Long: `Validates Workflow YAML resources against the workflow JSON schema, checks
apiVersion, kind and spec.version, compiles every declared rule and lints
the step list.

Examples:
  stepctl validate checkout.yaml
  stepctl validate workflows/*.yaml --strict`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), args, strict)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat lint warnings as errors")
	return cmd
}

func runValidate(out io.Writer, files []string, strict bool) error {
	failed := 0
	for _, file := range files {
		if err := validateFile(out, file, strict); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d workflow file(s) failed validation", failed, len(files))
	}
	return nil
}

func validateFile(out io.Writer, file string, strict bool) error {
	name := filepath.Base(file)

	w, err := definition.LoadFile(file)
	if err != nil {
		var schemaErr *definition.SchemaError
		if errors.As(err, &schemaErr) {
			fmt.Fprintf(out, "❌ %s: schema validation failed\n", name)
			for _, v := range schemaErr.Violations {
				fmt.Fprintf(out, "   - %s\n", v)
			}
			return err
		}
		fmt.Fprintf(out, "❌ %s: %v\n", name, err)
		return err
	}

	steps, err := w.Steps(validators.NewDataStore(), nil)
	if err != nil {
		fmt.Fprintf(out, "❌ %s: %v\n", name, err)
		return err
	}

	lint := workflow.ValidateSteps(steps)
	for _, warning := range lint.Warnings {
		fmt.Fprintf(out, "⚠️  %s: %s\n", name, warning)
	}
	if strict && len(lint.Warnings) > 0 {
		fmt.Fprintf(out, "❌ %s: %d warning(s) in strict mode\n", name, len(lint.Warnings))
		return fmt.Errorf("%s: %d warning(s)", name, len(lint.Warnings))
	}

	fmt.Fprintf(out, "✅ %s: workflow %q v%s, %d steps\n", name, w.Name(), w.Spec.Version, len(steps))
	return nil
}
