package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile <project-root>",
	Short: "Compile a project root and print its diagnostics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := args[0]

		sv, mgr, err := buildService(debugFlag)
		if err != nil {
			return err
		}

		s, err := mgr.RegisterScope(root)
		if err != nil {
			return err
		}
		if err := s.SetClasspath(cmd.Context(), nil); err != nil {
			return err
		}

		diags, err := sv.CompileAndVisit(cmd.Context(), s, nil)
		if err != nil {
			return fmt.Errorf("compile: %w", err)
		}

		uris := make([]string, 0, len(diags))
		for uri := range diags {
			uris = append(uris, uri)
		}
		sort.Strings(uris)

		out := cmd.OutOrStdout()
		total := 0
		for _, uri := range uris {
			for _, d := range diags[uri] {
				total++
				fmt.Fprintf(out, "%s:%d:%d: %s\n", uri, d.Range.Start.Line+1, d.Range.Start.Column+1, d.Message)
			}
		}
		fmt.Fprintf(out, "%d source file(s), %d diagnostic(s)\n", len(s.Index().SortedURIs()), total)
		return nil
	},
}
