// Package results holds the read-side contracts of the extraction result:
// the client-facing component shape, category filtering, and page navigation.
package results

// Categories is the fixed component vocabulary.
var Categories = []string{CategoryText, CategoryFigure, CategoryMisc}

const (
	CategoryText   = "text"
	CategoryFigure = "figure"
	CategoryMisc   = "misc"
)

// Component is one extracted element of a job's result, as served to clients.
// Ordering within a result list is page-major.
type Component struct {
	ID            int     `json:"id"`
	PageNumber    int     `json:"page_number"`
	Category      string  `json:"category"`
	OriginalLabel string  `json:"original_label"`
	Confidence    float64 `json:"confidence"`
	BBox          []int   `json:"bbox"`
	URL           string  `json:"url"`
}

// Page groups the components detected on one page.
type Page struct {
	PageNumber int         `json:"page_number"`
	Components []Component `json:"components"`
}
