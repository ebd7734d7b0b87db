package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"groovyls/internal/position"
	"groovyls/internal/scope"
	"groovyls/internal/service"
)

var definitionCmd = &cobra.Command{
	Use:   "definition <project-root> <uri> <line> <column>",
	Short: "Compile a project root and resolve the declaration at a position (1-indexed, matching `compile`'s output)",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCompiledScope(cmd, args[0], args[1], args[2], args[3], func(sv *service.Service, s *scope.Scope, uri string, p position.Position) error {
			loc, ok := sv.Definition(s, uri, p)
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintln(out, "no definition found")
				return nil
			}
			fmt.Fprintf(out, "%s\n", loc.URI)
			return nil
		})
	},
}

var referencesCmd = &cobra.Command{
	Use:   "references <project-root> <uri> <line> <column>",
	Short: "Compile a project root and list every reference to the symbol at a position (1-indexed, matching `compile`'s output)",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCompiledScope(cmd, args[0], args[1], args[2], args[3], func(sv *service.Service, s *scope.Scope, uri string, p position.Position) error {
			refs, ok := sv.References(s, uri, p)
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintln(out, "no references found")
				return nil
			}
			for _, r := range refs {
				fmt.Fprintf(out, "%s\n", r.URI)
			}
			fmt.Fprintf(out, "%d reference(s)\n", len(refs))
			return nil
		})
	},
}

// withCompiledScope registers and fully compiles root, parses the
// line/column pair (1-indexed on the command line, the same convention
// compile.go prints diagnostic positions in), and hands the scope off to
// fn — the shared setup compile.go/symbols.go each inline for their single
// command.
func withCompiledScope(cmd *cobra.Command, root, uri, lineArg, colArg string, fn func(*service.Service, *scope.Scope, string, position.Position) error) error {
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

	line, err := strconv.Atoi(lineArg)
	if err != nil {
		return fmt.Errorf("invalid line %q: %w", lineArg, err)
	}
	col, err := strconv.Atoi(colArg)
	if err != nil {
		return fmt.Errorf("invalid column %q: %w", colArg, err)
	}

	return fn(sv, s, uri, position.Position{Line: line - 1, Column: col - 1})
}
