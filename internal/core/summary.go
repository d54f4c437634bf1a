package core

// Allocation describes how much of a parent entry its details cover.
type Allocation struct {
	EntryID   string
	Date      string
	Item      string
	Amount    int64
	Allocated int64
	// Remainder is clamped at zero; Excess carries the overshoot when
	// details sum to more than the parent.
	Remainder     int64
	Excess        int64
	Overallocated bool
}

// Remainder returns the part of amount not covered by the details, never
// below zero.
func Remainder(amount int64, details []EntryDetail) int64 {
	var sum int64
	for _, d := range details {
		sum += d.Amount
	}
	if sum >= amount {
		return 0
	}
	return amount - sum
}

// Allocate reconciles an entry against its details. Over-allocation is
// reported, not rejected.
func Allocate(e Entry, details []EntryDetail) Allocation {
	a := Allocation{
		EntryID: e.ID,
		Date:    e.Date,
		Item:    e.Item,
		Amount:  e.Amount,
	}
	for _, d := range details {
		a.Allocated += d.Amount
	}
	a.Remainder = Remainder(e.Amount, details)
	if a.Allocated > e.Amount {
		a.Overallocated = true
		a.Excess = a.Allocated - e.Amount
	}
	return a
}
