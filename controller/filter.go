package controller

// RowFilter accepts or rejects samples on fix quality and precision. A nil
// threshold disables that check; both boundaries are inclusive.
type RowFilter struct {
	MinFix       *int
	MaxPrecision *int
}

// Accept reports whether a sample with the given fix and precision passes.
func (f RowFilter) Accept(fix, precision int) bool {
	if f.MinFix != nil && fix < *f.MinFix {
		return false
	}
	if f.MaxPrecision != nil && precision > *f.MaxPrecision {
		return false
	}
	return true
}
