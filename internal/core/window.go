package core

import "fmt"

// Window is an inclusive date range compared as strings. ISO dates sort
// lexicographically, so no date parsing is needed.
type Window struct {
	From string
	To   string
}

func DayWindow(date string) Window {
	return Window{From: date, To: date}
}

// MonthWindow covers "YYYY-MM-01" through "YYYY-MM-31"; the upper bound is
// valid for every month under string comparison.
func MonthWindow(yearMonth string) Window {
	return Window{From: yearMonth + "-01", To: yearMonth + "-31"}
}

func YearWindow(year int) Window {
	return Window{From: fmt.Sprintf("%04d-01-01", year), To: fmt.Sprintf("%04d-12-31", year)}
}

func RangeWindow(from, to string) Window {
	return Window{From: from, To: to}
}

func (w Window) Contains(date string) bool {
	return date >= w.From && date <= w.To
}

// MonthKey formats a year and month as "YYYY-MM".
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}
