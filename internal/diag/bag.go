package diag

import (
	"sort"
)

// Bag collects findings up to a limit.
type Bag struct {
	items []Finding
	max   int
}

// NewBag returns a bag that keeps at most max findings; max <= 0 is unlimited.
func NewBag(max int) *Bag {
	return &Bag{max: max}
}

// Add appends f. It returns false when the limit was reached.
func (b *Bag) Add(f Finding) bool {
	if b.max > 0 && len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, f)
	return true
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items returns the backing slice. Do not modify it.
func (b *Bag) Items() []Finding {
	return b.items
}

// Sort orders by file, start, end, severity (desc) and check name.
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.Primary.File != dj.Primary.File {
			return di.Primary.File < dj.Primary.File
		}
		if di.Primary.Start != dj.Primary.Start {
			return di.Primary.Start < dj.Primary.Start
		}
		if di.Primary.End != dj.Primary.End {
			return di.Primary.End < dj.Primary.End
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Check < dj.Check
	})
}

type dedupKey struct {
	check string
	span  string
}

// Dedup drops findings with the same check and primary span as an earlier one.
func (b *Bag) Dedup() {
	seen := make(map[dedupKey]bool)
	kept := make([]Finding, 0, len(b.items))
	for _, f := range b.items {
		key := dedupKey{check: f.Check, span: f.Primary.String()}
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, f)
	}
	b.items = kept
}
