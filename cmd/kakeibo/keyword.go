package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kakeibo/internal/classifier"
	"kakeibo/internal/core"
)

func keywordCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyword",
		Short: "Manage classification keywords",
	}
	cmd.AddCommand(keywordAddCmd(a), keywordRemoveCmd(a), keywordListCmd(a))
	return cmd
}

func keywordAddCmd(a *app) *cobra.Command {
	var month string
	var global bool

	cmd := &cobra.Command{
		Use:   "add CATEGORY KEYWORD",
		Short: "Add a keyword globally or for one month",
		Long: "Add a keyword. With --global (the default when --month is not given)\n" +
			"the keyword joins the base set and leaves every other category.\n" +
			"With --month it only applies to that month.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := parseCategory(args[0])
			if err != nil {
				return err
			}
			if month == "" {
				global = true
			}
			changed, err := a.svc.AddKeyword(cmd.Context(), cat, args[1], month, global)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !changed {
				fmt.Fprintf(out, "%q already present for %s, nothing changed\n", args[1], cat.Label())
				return nil
			}
			scope := "all months"
			if !global {
				scope = month
			}
			fmt.Fprintf(out, "Added %q to %s (%s)\n", args[1], cat.Label(), scope)
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "restrict the keyword to this month (YYYY-MM)")
	cmd.Flags().BoolVar(&global, "global", false, "add to the base keyword set")
	return cmd
}

func keywordRemoveCmd(a *app) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:     "rm CATEGORY KEYWORD",
		Aliases: []string{"remove"},
		Short:   "Remove a keyword from the base set or from one month",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := parseCategory(args[0])
			if err != nil {
				return err
			}
			changed, err := a.svc.RemoveKeyword(cmd.Context(), cat, args[1], month, month != "")
			if err != nil {
				return err
			}
			if !changed {
				return errors.New("keyword not found")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %q from %s\n", args[1], cat.Label())
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "remove from this month's extras (YYYY-MM)")
	return cmd
}

func keywordListCmd(a *app) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the effective keywords, optionally for one month",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if month == "" {
				base := a.svc.Book().Base()
				for _, cat := range core.RuleCategories() {
					fmt.Fprintf(out, "%s: %s\n", cat.Label(), strings.Join(base[cat], ", "))
				}
				return nil
			}
			eff := a.svc.Book().RulesFor(month)
			extras := a.svc.Book().Overrides()[month]
			for _, cat := range core.RuleCategories() {
				line := strings.Join(eff[cat], ", ")
				if n := len(extras[cat]); n > 0 {
					line += fmt.Sprintf("  (+%d for %s)", n, month)
				}
				fmt.Fprintf(out, "%s: %s\n", cat.Label(), line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month whose effective rules to show (YYYY-MM)")
	return cmd
}

func classifyCmd(a *app) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "classify ITEM",
		Short: "Show which category an item falls into",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if month == "" {
				month = currentMonth()
			}
			cat := classifier.New(a.svc.Book()).ClassifyFor(args[0], month)
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", args[0], cat.Label())
			if classifier.IsExcludedFromMonthTotal(args[0]) {
				fmt.Fprintln(cmd.OutOrStdout(), "(excluded from the month display total)")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month whose rules apply (YYYY-MM, default current)")
	return cmd
}
