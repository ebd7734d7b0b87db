package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols <project-root> <query>",
	Short: "Compile a project root and search its workspace symbols",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, query := args[0], args[1]

		sv, mgr, err := buildService(debugFlag)
		if err != nil {
			return err
		}

		s, err := mgr.RegisterScope(root)
		if err != nil {
			return err
		}
		if err := s.SetClasspath(context.Background(), nil); err != nil {
			return err
		}
		if _, err := sv.CompileAndVisit(cmd.Context(), s, nil); err != nil {
			return fmt.Errorf("compile: %w", err)
		}

		matches, err := sv.WorkspaceSymbols(cmd.Context(), query)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, m := range matches {
			fmt.Fprintf(out, "%s\t%s\n", m.Name, m.URI)
		}
		fmt.Fprintf(out, "%d match(es)\n", len(matches))
		return nil
	},
}
