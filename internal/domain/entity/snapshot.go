package entity

// Snapshot is the full sign-up sheet as read from the table store, in
// stored row order. It is a point-in-time copy; mutating it never affects
// the store.
type Snapshot struct {
	Entries []Entry
}

// MenuBucket is one display section of the menu.
type MenuBucket struct {
	Title   string
	Entries []Entry
}

// Menu groups the snapshot into display buckets in fixed order. Appetizers
// share the Sides & Apps bucket. Row order is preserved within each bucket.
// Entries whose stored category is outside the fixed set stay out of the
// menu but remain visible in the snapshot itself.
func (s Snapshot) Menu() []MenuBucket {
	buckets := []MenuBucket{
		{Title: string(CategoryMains), Entries: []Entry{}},
		{Title: string(CategorySidesApps), Entries: []Entry{}},
		{Title: string(CategoryDessert), Entries: []Entry{}},
		{Title: string(CategoryDrinks), Entries: []Entry{}},
	}
	for _, e := range s.Entries {
		switch e.Category {
		case CategoryMains:
			buckets[0].Entries = append(buckets[0].Entries, e)
		case CategorySidesApps, CategoryAppetizers:
			buckets[1].Entries = append(buckets[1].Entries, e)
		case CategoryDessert:
			buckets[2].Entries = append(buckets[2].Entries, e)
		case CategoryDrinks:
			buckets[3].Entries = append(buckets[3].Entries, e)
		}
	}
	return buckets
}

// ContainsDish reports whether any entry in the snapshot shares the dish's
// identity key.
func (s Snapshot) ContainsDish(dish string) bool {
	return ContainsDish(s.Entries, dish)
}

// Len returns the number of entries in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Entries)
}
