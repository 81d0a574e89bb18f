package main

import (
	"fmt"

	"github.com/spf13/cobra"

	stageflow "github.com/simon020286/go-stageflow"
	"github.com/simon020286/go-stageflow/config"
	"github.com/simon020286/go-stageflow/internal/ui"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check workflow files without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			invalid := 0
			for _, path := range args {
				if err := validateFile(path); err != nil {
					invalid++
					fmt.Fprintln(out, ui.ErrorMsg("%s: %v", path, err))
					continue
				}
				fmt.Fprintln(out, ui.SuccessMsg("%s", path))
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d files invalid", invalid, len(args))
			}
			return nil
		},
	}
}

// validateFile parses, validates and builds a workflow file so that
// behavior configuration errors surface too
func validateFile(path string) error {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	_, err = stageflow.BuildFromConfig(cfg, nil)
	return err
}
