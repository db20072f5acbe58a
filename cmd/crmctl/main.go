// Command crmctl works on document templates and requirement rules offline:
// placeholder scanning, variable analysis and rule evaluation, without a
// database.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/diewo77/go-crm/internal/variables"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var Version = "dev"

type rootOptions struct {
	json    bool
	noColor bool
	catalog string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "crmctl",
		Short:         "Offline tooling for CRM document templates and requirement rules",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor || opts.json {
				color.NoColor = true
			}
		},
	}
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "output as JSON")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().StringVar(&opts.catalog, "catalog", "", "YAML file extending the built-in variable catalog")

	root.AddCommand(scanCmd(opts))
	root.AddCommand(analyzeCmd(opts))
	root.AddCommand(mergeCmd(opts))
	root.AddCommand(suggestCmd(opts))
	root.AddCommand(validateKeyCmd(opts))
	root.AddCommand(catalogCmd(opts))
	root.AddCommand(rulesCmd(opts))
	return root
}

func (o *rootOptions) loadCatalog() (*variables.Catalog, error) {
	if o.catalog == "" {
		return variables.DefaultCatalog(), nil
	}
	return variables.LoadCatalog(o.catalog)
}

// emit writes v as indented JSON in --json mode and calls human otherwise.
func (o *rootOptions) emit(w io.Writer, v any, human func(io.Writer)) error {
	if o.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	human(w)
	return nil
}
