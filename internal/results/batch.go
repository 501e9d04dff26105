package results

// Flatten collapses pages into a single page-major component list, stamping
// each component with its page number.
func Flatten(pages []Page) []Component {
	var out []Component
	for _, p := range pages {
		for _, c := range p.Components {
			c.PageNumber = p.PageNumber
			out = append(out, c)
		}
	}
	return out
}

// Batch is one window of a flattened component list.
type Batch struct {
	Offset     int         `json:"offset"`
	Limit      int         `json:"limit"`
	Total      int         `json:"total"`
	HasMore    bool        `json:"has_more"`
	Components []Component `json:"components"`
}

// Window slices offset/limit out of the component list, clamping both to the
// list bounds.
func Window(components []Component, offset, limit int) Batch {
	total := len(components)
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return Batch{
		Offset:     offset,
		Limit:      limit,
		Total:      total,
		HasMore:    offset+limit < total,
		Components: components[start:end],
	}
}
