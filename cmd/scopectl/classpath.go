package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var classpathSymbolsCmd = &cobra.Command{
	Use:   "classpath-symbols <project-root> <query>",
	Short: "Compile a project root and search its classpath symbol index",
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

		out := cmd.OutOrStdout()
		matches := 0
		for _, sym := range s.ClasspathSymbols() {
			if query != "" && !strings.Contains(sym.SimpleName, query) {
				continue
			}
			matches++
			fmt.Fprintf(out, "%s\t%s\n", sym.FQN, sym.Package)
		}
		fmt.Fprintf(out, "%d match(es)\n", matches)
		return nil
	},
}
