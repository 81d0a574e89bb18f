package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	stageflow "github.com/simon020286/go-stageflow"
	"github.com/simon020286/go-stageflow/builder"
	"github.com/simon020286/go-stageflow/internal/ui"
	"github.com/simon020286/go-stageflow/steps"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the workflows known by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := builder.LoadCatalog(builder.GetWorkflowsPath())
			if err != nil {
				return err
			}

			var rows [][]string
			for _, name := range catalog.List() {
				cfg, _ := catalog.Get(name)
				mode := "-"
				if wf, err := stageflow.BuildFromConfig(cfg, nil); err == nil {
					mode = string(wf.Mode())
				}
				rows = append(rows, []string{name, strconv.Itoa(len(cfg.Steps)), mode, cfg.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Table([]string{"NAME", "STEPS", "MODE", "DESCRIPTION"}, rows))
			fmt.Fprintln(cmd.OutOrStdout(), ui.Muted("Custom workflows: "+builder.GetWorkflowsPath()))
			return nil
		},
	}
}

func kindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the step types usable in workflow files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var rows [][]string
			for _, name := range builder.ListStepTypes() {
				meta, ok := steps.GetBehaviorMetadata(name)
				if !ok {
					rows = append(rows, []string{name, "-", "-", ""})
					continue
				}
				rows = append(rows, []string{name, meta.Category, paramList(meta.Params), meta.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Table([]string{"TYPE", "CATEGORY", "PARAMS", "DESCRIPTION"}, rows))
			return nil
		},
	}
}

// paramList renders params as "name*, other=default", * marking required keys
func paramList(params []steps.ParamMeta) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		switch {
		case p.Required:
			parts = append(parts, p.Name+"*")
		case p.Default != "":
			parts = append(parts, p.Name+"="+p.Default)
		default:
			parts = append(parts, p.Name)
		}
	}
	return strings.Join(parts, ", ")
}
