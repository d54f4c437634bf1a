package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"kakeibo/internal/core"
)

// windowFlags selects a date window: --month, --year, or --from/--to.
type windowFlags struct {
	month    string
	year     int
	from, to string
}

func (f *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.month, "month", "", "month (YYYY-MM)")
	cmd.Flags().IntVar(&f.year, "year", 0, "calendar year")
	cmd.Flags().StringVar(&f.from, "from", "", "first date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "last date (YYYY-MM-DD)")
}

// window returns the selected window; with no flags it covers everything.
func (f *windowFlags) window() (core.Window, error) {
	set := 0
	if f.month != "" {
		set++
	}
	if f.year != 0 {
		set++
	}
	if f.from != "" || f.to != "" {
		set++
	}
	if set > 1 {
		return core.Window{}, errors.New("use only one of --month, --year or --from/--to")
	}

	switch {
	case f.month != "":
		if _, err := time.Parse("2006-01", f.month); err != nil {
			return core.Window{}, errors.New("--month must be YYYY-MM")
		}
		return core.MonthWindow(f.month), nil
	case f.year != 0:
		return core.YearWindow(f.year), nil
	}
	to := f.to
	if to == "" {
		to = "9999-12-31"
	}
	return core.RangeWindow(f.from, to), nil
}

// currentMonth is the default month for commands that need one.
func currentMonth() string {
	return time.Now().Format("2006-01")
}
