// Command stepctl runs, validates, serves and inspects stepflow workflows.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AltairaLabs/stepflow/runtime/logger"
)

func newRootCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:           "stepctl",
		Short:         "stepflow - multi-step workflow navigation",
		Version:       GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: false,
		Long: `stepctl drives stepflow workflows: declarative, validated multi-step
flows with linear or free navigation, keyboard focus traversal and
screen-reader announcements.

Run a workflow interactively in the terminal, validate workflow resources,
serve workflows to remote presentation layers over WebSocket, and inspect
persisted runs.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(v); err != nil {
				return err
			}
			s, err := loadSettings(v)
			if err != nil {
				return err
			}
			if err := logger.Configure(&s.Log); err != nil {
				return err
			}
			if cmd.Flags().Changed("verbose") {
				verbose, _ := cmd.Flags().GetBool("verbose")
				logger.SetVerbose(verbose)
			}
			return nil
		},
	}
	root.SetVersionTemplate(GetVersionInfo() + "\n")

	flags := root.PersistentFlags()
	flags.String(flagConfig, "", "Config file (default: ./stepctl.yaml)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text or json")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	_ = v.BindPFlag(flagConfig, flags.Lookup(flagConfig))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log.format", flags.Lookup("log-format"))

	root.AddCommand(
		newRunCmd(v),
		newValidateCmd(),
		newServeCmd(v),
		newInspectCmd(v),
		newVersionCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		// Error already printed by cobra
		os.Exit(1)
	}
}
