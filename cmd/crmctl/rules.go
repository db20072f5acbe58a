package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/diewo77/go-crm/internal/requirements"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func rulesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Work with document requirement rules",
	}
	cmd.AddCommand(rulesEvalCmd(opts))
	cmd.AddCommand(rulesListCmd(opts))
	return cmd
}

func rulesEvalCmd(opts *rootOptions) *cobra.Command {
	var rulesFile, orderFile string
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate rules against an order and list the required documents",
		Long: `Evaluate requirement rules against an order context.

The order file is YAML (or JSON) with selectedItems, totalAmount and the
optional clientType, currency and extra fields. Without --rules the default
rules seeded for new companies are used.

Examples:
  crmctl rules eval --order order.yaml
  crmctl rules eval --rules rules.yaml --order order.json --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := loadRules(rulesFile)
			if err != nil {
				return err
			}
			order, err := loadOrder(orderFile)
			if err != nil {
				return err
			}
			res := requirements.Evaluate(order, rules)
			return opts.emit(cmd.OutOrStdout(), res, func(w io.Writer) { printResult(w, res) })
		},
	}
	cmd.Flags().StringVar(&rulesFile, "rules", "", "YAML rules document (defaults to the built-in rules)")
	cmd.Flags().StringVar(&orderFile, "order", "", "YAML or JSON order context")
	_ = cmd.MarkFlagRequired("order")
	return cmd
}

func rulesListCmd(opts *rootOptions) *cobra.Command {
	var rulesFile string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print rules with their conditions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := loadRules(rulesFile)
			if err != nil {
				return err
			}
			return opts.emit(cmd.OutOrStdout(), rules, func(w io.Writer) {
				for _, r := range rules {
					fmt.Fprintf(w, "%s (priority %d, %s)\n", r.Name, r.Priority, r.TriggerType)
					for _, c := range r.Conditions {
						fmt.Fprintf(w, "  when %s\n", c)
					}
					if r.Expression != "" {
						fmt.Fprintf(w, "  when %s\n", r.Expression)
					}
					for _, d := range r.RequiredDocuments {
						fmt.Fprintf(w, "  requires %s\n", d.TemplateID)
					}
				}
			})
		},
	}
	cmd.Flags().StringVar(&rulesFile, "rules", "", "YAML rules document (defaults to the built-in rules)")
	return cmd
}

func loadRules(path string) ([]requirements.Rule, error) {
	if path == "" {
		return requirements.DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return requirements.ParseRules(data)
}

// loadOrder accepts YAML or JSON, which YAML parses as a subset.
func loadOrder(path string) (requirements.OrderContext, error) {
	var order requirements.OrderContext
	data, err := os.ReadFile(path)
	if err != nil {
		return order, fmt.Errorf("read order file: %w", err)
	}
	if err := yaml.Unmarshal(data, &order); err != nil {
		return order, fmt.Errorf("parse order: %w", err)
	}
	return order, nil
}

func printResult(w io.Writer, res requirements.Result) {
	if len(res.MatchedRules) == 0 {
		fmt.Fprintln(w, "no rule matched")
		return
	}
	names := make([]string, len(res.MatchedRules))
	for i, r := range res.MatchedRules {
		names[i] = r.Name
	}
	fmt.Fprintf(w, "matched: %s\n", strings.Join(names, ", "))
	for _, d := range res.RequiredDocuments {
		if d.Mandatory {
			color.New(color.FgRed).Fprintf(w, "• %s (%s) mandatory\n", d.Name, d.TemplateID)
		} else {
			fmt.Fprintf(w, "• %s (%s)\n", d.Name, d.TemplateID)
		}
	}
}
