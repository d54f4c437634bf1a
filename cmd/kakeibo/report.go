package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kakeibo/internal/core"
	"kakeibo/internal/report"
)

func reportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Totals by day, month, category, item and year",
	}
	cmd.AddCommand(
		reportDayCmd(a),
		reportMonthCmd(a),
		reportCategoriesCmd(a),
		reportItemsCmd(a),
		reportYearCmd(a),
		reportReconcileCmd(a),
	)
	return cmd
}

func reportDayCmd(a *app) *cobra.Command {
	var wf windowFlags
	cmd := &cobra.Command{
		Use:   "day",
		Short: "Totals per day",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := wf.window()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', tabwriter.AlignRight)
			for _, d := range a.svc.Aggregator().DayTotals(a.svc.Snapshot(), w) {
				fmt.Fprintf(tw, "%s\t%s\t\n", d.Date, core.FormatAmount(d.Total))
			}
			return tw.Flush()
		},
	}
	wf.register(cmd)
	return cmd
}

func reportMonthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "month [YYYY-MM]",
		Short: "Raw, excluded and display totals for a month",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			month := currentMonth()
			if len(args) == 1 {
				month = args[0]
			}
			t := a.svc.Aggregator().MonthTotals(a.svc.Snapshot(), core.MonthWindow(month))
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", month)
			fmt.Fprintf(out, "  total     ¥%s\n", core.FormatAmount(t.Raw))
			fmt.Fprintf(out, "  savings   ¥%s\n", core.FormatAmount(t.Excluded))
			fmt.Fprintf(out, "  spending  ¥%s\n", core.FormatAmount(t.Display))
			return nil
		},
	}
}

func reportCategoriesCmd(a *app) *cobra.Command {
	var wf windowFlags
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Totals per category",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := wf.window()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			var sum int64
			for _, c := range a.svc.Aggregator().ByCategory(a.svc.Snapshot(), w) {
				fmt.Fprintf(tw, "%s\t%s\n", c.Category.Label(), core.FormatAmount(c.Total))
				sum += c.Total
			}
			fmt.Fprintf(tw, "Total\t%s\n", core.FormatAmount(sum))
			return tw.Flush()
		},
	}
	wf.register(cmd)
	return cmd
}

func reportItemsCmd(a *app) *cobra.Command {
	var wf windowFlags
	var merge, lines bool
	cmd := &cobra.Command{
		Use:   "items CATEGORY",
		Short: "Item drill-down for one category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, ok := core.ParseCategory(args[0])
			if !ok {
				return fmt.Errorf("unknown category %q", args[0])
			}
			w, err := wf.window()
			if err != nil {
				return err
			}
			groups := a.svc.Aggregator().ItemDrillDown(a.svc.Snapshot(), w, cat)
			if merge {
				groups = report.MergeVariants(groups)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			for _, g := range groups {
				fmt.Fprintf(tw, "%s\t%s\t(%d)\n", g.Name, core.FormatAmount(g.Total), len(g.Entries))
				if !lines {
					continue
				}
				for _, l := range g.Entries {
					fmt.Fprintf(tw, "  %s\t%s\t%s\n", l.Date, core.FormatAmount(l.Amount), shortID(l.EntryID))
				}
			}
			return tw.Flush()
		},
	}
	wf.register(cmd)
	cmd.Flags().BoolVar(&merge, "merge", false, "merge name variants such as \"rent (unclassified)\" into \"rent\"")
	cmd.Flags().BoolVar(&lines, "lines", false, "list the constituent lines of each group")
	return cmd
}

func reportYearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "year YYYY",
		Short: "Month-by-month totals for a year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.New("year must be a number")
			}
			s := a.svc.Aggregator().YearByMonth(a.svc.Snapshot(), year)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', tabwriter.AlignRight)
			for m, v := range s.Months {
				fmt.Fprintf(tw, "%s\t%s\t\n", core.MonthKey(year, m+1), core.FormatAmount(v))
			}
			fmt.Fprintf(tw, "Total\t%s\t\n", core.FormatAmount(s.Total))
			if err := tw.Flush(); err != nil {
				return err
			}
			if s.Frozen {
				fmt.Fprintln(cmd.OutOrStdout(), "(from the frozen year table)")
			}
			return nil
		},
	}
}

func reportReconcileCmd(a *app) *cobra.Command {
	var wf windowFlags
	var onlyOver bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "How much of each entry its details cover",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := wf.window()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDate\tItem\tAmount\tAllocated\tRemainder\tExcess")
			for _, al := range a.svc.Aggregator().Reconcile(a.svc.Snapshot(), w) {
				if onlyOver && !al.Overallocated {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					shortID(al.EntryID), al.Date, al.Item,
					core.FormatAmount(al.Amount), core.FormatAmount(al.Allocated),
					core.FormatAmount(al.Remainder), core.FormatAmount(al.Excess))
			}
			return tw.Flush()
		},
	}
	wf.register(cmd)
	cmd.Flags().BoolVar(&onlyOver, "over", false, "only show entries whose details exceed the amount")
	return cmd
}
