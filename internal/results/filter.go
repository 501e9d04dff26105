package results

import "sort"

// CategoryFilter is a set of active category labels. The zero value is an
// empty set; what an empty set means for display (show all vs show none) is
// the caller's decision.
type CategoryFilter struct {
	active map[string]struct{}
}

// NewCategoryFilter returns a filter with the given categories active.
func NewCategoryFilter(categories ...string) *CategoryFilter {
	f := &CategoryFilter{active: make(map[string]struct{})}
	for _, c := range categories {
		f.active[c] = struct{}{}
	}
	return f
}

// Toggle flips membership of the category and reports whether it is now
// active. Toggling the same label twice restores the original set.
func (f *CategoryFilter) Toggle(category string) bool {
	if _, ok := f.active[category]; ok {
		delete(f.active, category)
		return false
	}
	f.active[category] = struct{}{}
	return true
}

// Contains reports whether the category is active.
func (f *CategoryFilter) Contains(category string) bool {
	_, ok := f.active[category]
	return ok
}

// Len returns the number of active categories.
func (f *CategoryFilter) Len() int {
	return len(f.active)
}

// Active returns the active category labels in sorted order.
func (f *CategoryFilter) Active() []string {
	out := make([]string, 0, len(f.active))
	for c := range f.active {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Apply returns the components whose category is in the active set,
// preserving order. An empty set yields an empty slice.
func (f *CategoryFilter) Apply(components []Component) []Component {
	out := make([]Component, 0, len(components))
	for _, c := range components {
		if f.Contains(c.Category) {
			out = append(out, c)
		}
	}
	return out
}

// PageControls returns the page numbers a page-jump navigator should render:
// 1..totalPages when there are at least two pages, nothing otherwise.
func PageControls(totalPages int) []int {
	if totalPages <= 1 {
		return nil
	}
	pages := make([]int, totalPages)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}
