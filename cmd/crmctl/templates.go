package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/diewo77/go-crm/internal/variables"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func scanCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <file>",
		Short: "List the placeholder keys of a template, in first-seen order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			markup, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			keys := variables.Scan(string(markup))
			out := struct {
				File string   `json:"file"`
				Keys []string `json:"keys"`
			}{args[0], keys}
			return opts.emit(cmd.OutOrStdout(), out, func(w io.Writer) {
				for _, k := range keys {
					fmt.Fprintln(w, k)
				}
			})
		},
	}
}

func analyzeCmd(opts *rootOptions) *cobra.Command {
	var varsFile string
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Classify the placeholders of a template against the catalog",
		Long: `Classify every placeholder of a template as a system or custom variable.

Custom definitions can be supplied with --vars, a YAML document with a
top-level "variables" list. Keys with no definition are reported unresolved.

Examples:
  crmctl analyze contract.hbs
  crmctl analyze contract.hbs --vars contract-vars.yaml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			custom, err := loadCustomVariables(varsFile)
			if err != nil {
				return err
			}
			markup, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			a := variables.NewEngine(catalog).Analyze(string(markup), custom)
			return opts.emit(cmd.OutOrStdout(), a, func(w io.Writer) { printAnalysis(w, a) })
		},
	}
	cmd.Flags().StringVar(&varsFile, "vars", "", "YAML file with custom variable definitions")
	return cmd
}

func mergeCmd(opts *rootOptions) *cobra.Command {
	var varsFile string
	cmd := &cobra.Command{
		Use:   "merge <file>...",
		Short: "Analyze several templates and merge their variables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			custom, err := loadCustomVariables(varsFile)
			if err != nil {
				return err
			}
			engine := variables.NewEngine(catalog)
			analyses := make([]variables.Analysis, 0, len(args))
			for _, path := range args {
				markup, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				analyses = append(analyses, engine.Analyze(string(markup), custom))
			}
			merged := variables.Merge(analyses...)
			return opts.emit(cmd.OutOrStdout(), merged, func(w io.Writer) { printAnalysis(w, merged) })
		},
	}
	cmd.Flags().StringVar(&varsFile, "vars", "", "YAML file with custom variable definitions")
	return cmd
}

func suggestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <partial>",
		Short: "Suggest catalog variables for a partial key or label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			vars := catalog.Suggest(args[0])
			return opts.emit(cmd.OutOrStdout(), vars, func(w io.Writer) { printVariables(w, vars) })
		},
	}
}

func validateKeyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-key <key>",
		Short: "Check whether a key can name a custom variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			key := args[0]
			out := struct {
				variables.KeyValidation
				Key      string `json:"key"`
				Reserved bool   `json:"reserved"`
			}{KeyValidation: variables.ValidateKey(key), Key: key}
			out.Reserved = out.Valid && catalog.Has(key)

			err = opts.emit(cmd.OutOrStdout(), out, func(w io.Writer) {
				switch {
				case !out.Valid:
					color.New(color.FgRed).Fprintf(w, "✗ %s: %s\n", key, out.Reason)
				case out.Reserved:
					color.New(color.FgYellow).Fprintf(w, "⚠ %s is valid but reserved by a system variable\n", key)
				default:
					color.New(color.FgGreen).Fprintf(w, "✓ %s\n", key)
				}
			})
			if err != nil {
				return err
			}
			if !out.Valid || out.Reserved {
				return fmt.Errorf("key %q cannot be used for a custom variable", key)
			}
			return nil
		},
	}
}

func catalogCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the system variable catalog",
	}
	var group string
	list := &cobra.Command{
		Use:   "list",
		Short: "List catalog variables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			vars := catalog.All()
			if group != "" {
				vars = catalog.ByGroup(group)
			}
			return opts.emit(cmd.OutOrStdout(), vars, func(w io.Writer) { printVariables(w, vars) })
		},
	}
	list.Flags().StringVar(&group, "group", "", "only list variables of this group")
	cmd.AddCommand(list)
	return cmd
}

// loadCustomVariables reads a "variables:" YAML document. Definitions are
// forced into the custom category.
func loadCustomVariables(path string) ([]variables.Variable, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read variables file: %w", err)
	}
	vars, err := variables.ParseCatalog(data)
	if err != nil {
		return nil, err
	}
	for i := range vars {
		if v := variables.ValidateKey(vars[i].Key); !v.Valid {
			return nil, fmt.Errorf("variables file: %q: %s", vars[i].Key, v.Reason)
		}
		vars[i].Category = variables.CategoryCustom
		if vars[i].Label == "" {
			vars[i].Label = variables.LabelFromKey(vars[i].Key)
		}
		if vars[i].Type == "" {
			vars[i].Type = variables.TypeText
		}
	}
	return vars, nil
}

func printAnalysis(w io.Writer, a variables.Analysis) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tTYPE\tCATEGORY\tREQUIRED\tNOTE")
	for _, v := range a.Variables {
		note := ""
		switch {
		case v.Unresolved:
			note = color.YellowString("undefined")
		case v.Conditional:
			note = "conditional"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", v.Key, v.Type, v.Category, v.Required, note)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d variables: %d system, %d custom, %d required, %d undefined\n",
		len(a.Variables), a.SystemCount, a.CustomCount, a.RequiredCount, a.UnresolvedCount)
	for _, c := range a.Conflicts {
		color.New(color.FgYellow).Fprintf(w, "⚠ %s: %s %q kept, %q dropped\n", c.Key, c.Field, c.Kept, c.Dropped)
	}
}

func printVariables(w io.Writer, vars []variables.Variable) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tTYPE\tGROUP\tLABEL")
	for _, v := range vars {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Key, v.Type, v.Group, v.Label)
	}
	_ = tw.Flush()
}
