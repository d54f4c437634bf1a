package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"kakeibo/internal/cli"
	"kakeibo/internal/config"
	"kakeibo/internal/core"
	applog "kakeibo/internal/log"
	"kakeibo/internal/services"
)

// app carries what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	cfg    *config.Config
	logger *applog.Logger
	svc    *services.LedgerService
}

func main() {
	ctx, cancel := cli.SignalContext(context.Background())
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "kakeibo",
		Short:         "Household expense ledger with keyword classification",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = cli.SetupLogger(cfg)
			a.svc, err = cli.OpenLedger(cmd.Context(), cfg, a.logger)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.svc != nil {
				return a.svc.Close()
			}
			return nil
		},
	}

	rootCmd.AddCommand(entryCmd(a))
	rootCmd.AddCommand(detailCmd(a))
	rootCmd.AddCommand(keywordCmd(a))
	rootCmd.AddCommand(classifyCmd(a))
	rootCmd.AddCommand(reportCmd(a))
	rootCmd.AddCommand(exportCmd(a))
	return rootCmd
}

// findEntry resolves a full id or a unique id prefix.
func (a *app) findEntry(ref string) (core.Entry, error) {
	if e, ok := a.svc.Entry(ref); ok {
		return e, nil
	}
	var matches []core.Entry
	for _, e := range a.svc.Snapshot().Entries {
		if strings.HasPrefix(e.ID, ref) {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		return core.Entry{}, fmt.Errorf("no entry matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		return core.Entry{}, fmt.Errorf("%q matches %d entries", ref, len(matches))
	}
}

// parseDetails reads "item=amount" arguments.
func parseDetails(args []string) ([]core.EntryDetail, error) {
	out := make([]core.EntryDetail, 0, len(args))
	for _, arg := range args {
		i := strings.LastIndex(arg, "=")
		if i <= 0 {
			return nil, fmt.Errorf("detail %q: want item=amount", arg)
		}
		amount, err := core.ParseAmount(arg[i+1:])
		if err != nil {
			return nil, fmt.Errorf("detail %q: %w", arg, err)
		}
		out = append(out, core.EntryDetail{Item: strings.TrimSpace(arg[:i]), Amount: amount})
	}
	return out, nil
}

func parseCategory(s string) (core.CategoryID, error) {
	cat, ok := core.ParseCategory(s)
	if !ok || !cat.IsRuleTarget() {
		names := make([]string, 0, len(core.RuleCategories()))
		for _, c := range core.RuleCategories() {
			names = append(names, string(c))
		}
		return "", fmt.Errorf("unknown category %q (one of %s)", s, strings.Join(names, ", "))
	}
	return cat, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
