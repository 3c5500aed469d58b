package feed

// Changes lists the ids that differ between two item lists.
type Changes struct {
	Inserted []int `json:"inserted,omitempty"`
	Removed  []int `json:"removed,omitempty"`
	Changed  []int `json:"changed,omitempty"`
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Inserted) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0
}

// Diff compares two lists. Items are the same when their ids match and have
// the same contents when they are equal. Ids come out in list order.
func Diff(before, after []Item) Changes {
	old := make(map[int]Item, len(before))
	for _, item := range before {
		old[item.ID] = item
	}
	current := make(map[int]struct{}, len(after))

	var changes Changes
	for _, item := range after {
		current[item.ID] = struct{}{}
		prev, ok := old[item.ID]
		switch {
		case !ok:
			changes.Inserted = append(changes.Inserted, item.ID)
		case prev != item:
			changes.Changed = append(changes.Changed, item.ID)
		}
	}
	for _, item := range before {
		if _, ok := current[item.ID]; !ok {
			changes.Removed = append(changes.Removed, item.ID)
		}
	}

	return changes
}
