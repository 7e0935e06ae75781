package cart

// ChangeKind tags what a mutation did to the cart.
type ChangeKind int

const (
	Unchanged ChangeKind = iota
	Added
	Updated
	Removed
	Cleared
	Settled
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Updated:
		return "updated"
	case Removed:
		return "removed"
	case Cleared:
		return "cleared"
	case Settled:
		return "settled"
	default:
		return "unchanged"
	}
}

// Change is the outcome of a single mutation. For Added and Updated, Item is
// the line item after the change; for Removed only ID is set.
type Change struct {
	Kind ChangeKind
	ID   string
	Item LineItem
}
