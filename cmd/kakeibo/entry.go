package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
)

func entryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Add, edit, remove and list expense entries",
	}
	cmd.AddCommand(entryAddCmd(a), entryRemoveCmd(a), entryEditCmd(a), entryListCmd(a))
	return cmd
}

func entryAddCmd(a *app) *cobra.Command {
	var details []string

	cmd := &cobra.Command{
		Use:   "add DATE ITEM AMOUNT",
		Short: "Record an expense",
		Long: "Record an expense. Card statements can be broken down with repeated\n" +
			"--detail item=amount flags; the uncovered remainder stays unclassified.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParseAmount(args[2])
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[2], err)
			}
			rows, err := parseDetails(details)
			if err != nil {
				return err
			}
			e, err := a.svc.AddEntry(cmd.Context(), core.Entry{Date: args[0], Item: args[1], Amount: amount}, rows)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s  %s  %s  ¥%s\n", shortID(e.ID), e.Date, e.Item, core.FormatAmount(e.Amount))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&details, "detail", nil, "detail row as item=amount (repeatable)")
	return cmd
}

func entryRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"remove"},
		Short:   "Remove an entry and its details",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.findEntry(args[0])
			if err != nil {
				return err
			}
			if err := a.svc.RemoveEntry(cmd.Context(), e.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s  %s\n", shortID(e.ID), e.Item)
			return nil
		},
	}
}

func entryEditCmd(a *app) *cobra.Command {
	var date, item, amount string

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change the date, item or amount of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.findEntry(args[0])
			if err != nil {
				return err
			}
			var patch ledger.EntryPatch
			if cmd.Flags().Changed("date") {
				patch.Date = &date
			}
			if cmd.Flags().Changed("item") {
				patch.Item = &item
			}
			if cmd.Flags().Changed("amount") {
				n, err := core.ParseAmount(amount)
				if err != nil {
					return fmt.Errorf("amount %q: %w", amount, err)
				}
				patch.Amount = &n
			}
			updated, err := a.svc.UpdateEntry(cmd.Context(), e.ID, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s  %s  %s  ¥%s\n", shortID(updated.ID), updated.Date, updated.Item, core.FormatAmount(updated.Amount))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "new date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&item, "item", "", "new item description")
	cmd.Flags().StringVar(&amount, "amount", "", "new amount")
	return cmd
}

func entryListCmd(a *app) *cobra.Command {
	var wf windowFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries with their details",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := wf.window()
			if err != nil {
				return err
			}
			snap := a.svc.Snapshot()
			byParent := snap.DetailsByParent()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			for _, e := range snap.Entries {
				if !w.Contains(e.Date) {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", shortID(e.ID), e.Date, e.Item, core.FormatAmount(e.Amount))
				for _, d := range byParent[e.ID] {
					fmt.Fprintf(tw, "\t\t  %s\t%s\n", d.Item, core.FormatAmount(d.Amount))
				}
			}
			return tw.Flush()
		},
	}
	wf.register(cmd)
	return cmd
}

func detailCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detail",
		Short: "Break an entry down into detail rows",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set ID item=amount...",
			Short: "Replace the detail rows of an entry",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.writeDetails(cmd, args, true)
			},
		},
		&cobra.Command{
			Use:   "add ID item=amount...",
			Short: "Append detail rows to an entry",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.writeDetails(cmd, args, false)
			},
		},
	)
	return cmd
}

func (a *app) writeDetails(cmd *cobra.Command, args []string, replace bool) error {
	e, err := a.findEntry(args[0])
	if err != nil {
		return err
	}
	rows, err := parseDetails(args[1:])
	if err != nil {
		return err
	}
	var details []core.EntryDetail
	if replace {
		details, err = a.svc.SetDetails(cmd.Context(), e.ID, rows)
	} else {
		details, err = a.svc.AddDetails(cmd.Context(), e.ID, rows)
	}
	if err != nil {
		return err
	}

	alloc := core.Allocate(e, details)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %s  ¥%s\n", shortID(e.ID), e.Item, core.FormatAmount(e.Amount))
	for _, d := range details {
		fmt.Fprintf(out, "  %s  ¥%s\n", d.Item, core.FormatAmount(d.Amount))
	}
	fmt.Fprintf(out, "  remainder  ¥%s\n", core.FormatAmount(alloc.Remainder))
	if alloc.Overallocated {
		fmt.Fprintf(out, "  warning: details exceed the entry by ¥%s\n", core.FormatAmount(alloc.Excess))
	}
	return nil
}
