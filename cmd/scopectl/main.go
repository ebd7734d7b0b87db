// Command scopectl is a developer-facing CLI over the compilation engine:
// point it at a project root and it compiles, prints diagnostics, or
// searches workspace symbols. It speaks none of the LSP wire protocol —
// that's the editor integration's job, not this engine's.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "scopectl",
	Short:         "Inspect the groovyls compilation engine against a project on disk",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var debugFlag bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug-level logging")
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(symbolsCmd)
	rootCmd.AddCommand(definitionCmd)
	rootCmd.AddCommand(referencesCmd)
	rootCmd.AddCommand(classpathSymbolsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "scopectl:", err)
		os.Exit(1)
	}
}
