package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/simon020286/go-stageflow/config"
	"github.com/simon020286/go-stageflow/internal/logging"
	_ "github.com/simon020286/go-stageflow/steps"
)

var version = "dev"

func main() {
	if err := logging.Configure(logging.LevelWarn); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what PersistentPreRunE resolved for the subcommands
type app struct {
	configFile string
	debug      bool
	settings   *config.Settings
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "stageflow",
		Short:         "Simulate staged asynchronous workflows",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "Settings file (default: ./stageflow.yaml or $XDG_CONFIG_HOME/stageflow/stageflow.yaml)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	root.AddCommand(runCmd(a))
	root.AddCommand(validateCmd())
	root.AddCommand(listCmd())
	root.AddCommand(kindsCmd())
	root.AddCommand(historyCmd(a))

	return root
}

// load reads settings and configures logging
func (a *app) load() error {
	v := config.NewViper(a.configFile)
	if err := config.ReadConfig(v); err != nil {
		return err
	}
	settings, err := config.Load(v)
	if err != nil {
		return err
	}
	a.settings = settings

	level := settings.Logging.Level
	if a.debug {
		level = logging.LevelDebug
	}
	return logging.Configure(level)
}
