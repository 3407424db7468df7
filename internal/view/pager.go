package view

// MaxPageButtons caps the number of numbered page buttons.
const MaxPageButtons = 5

// Pager is the navigation strip under a paginated list.
type Pager struct {
	Current      int
	Total        int
	Pages        []int // numbered buttons, ascending
	PrevDisabled bool
	NextDisabled bool
}

// Paginate computes the page strip for current of total pages. The window
// starts two pages before current (never before page 1) and holds at most
// MaxPageButtons pages, so it shrinks near the last page. Prev and Next are
// always present; they are disabled on the first and last page.
func Paginate(current, total int) Pager {
	if total < 1 {
		return Pager{Current: 1, Total: 0, PrevDisabled: true, NextDisabled: true}
	}
	current = max(1, min(current, total))

	start := max(1, current-MaxPageButtons/2)
	end := min(total, start+MaxPageButtons-1)

	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	return Pager{
		Current:      current,
		Total:        total,
		Pages:        pages,
		PrevDisabled: current <= 1,
		NextDisabled: current >= total,
	}
}

// Prev returns the previous page, or Current when disabled.
func (p Pager) Prev() int {
	if p.PrevDisabled {
		return p.Current
	}
	return p.Current - 1
}

// Next returns the next page, or Current when disabled.
func (p Pager) Next() int {
	if p.NextDisabled {
		return p.Current
	}
	return p.Current + 1
}
