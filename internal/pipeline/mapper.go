package pipeline

import (
	"image"
	"log/slog"

	"github.com/disintegration/imaging"

	"github.com/yoink-app/yoink-be/internal/extractor"
	"github.com/yoink-app/yoink-be/internal/results"
)

// categoryMap folds the engine's raw label indices into the three-category
// vocabulary served to clients. Engine classes: title, plain text, abandon,
// figure, figure_caption, table, table_caption, table_footnote,
// isolate_formula, formula_caption.
var categoryMap = map[int]string{
	0: results.CategoryText,   // title
	1: results.CategoryText,   // plain text
	2: results.CategoryMisc,   // abandon (headers/footers)
	3: results.CategoryFigure, // figure
	4: results.CategoryMisc,   // figure_caption
	5: results.CategoryFigure, // table
	6: results.CategoryMisc,   // table_caption
	7: results.CategoryMisc,   // table_footnote
	8: results.CategoryText,   // isolate_formula
	9: results.CategoryMisc,   // formula_caption
}

// CategoryFor returns the client-facing category for an engine label index.
// Unknown indices fall back to text.
func CategoryFor(labelIndex int) string {
	if c, ok := categoryMap[labelIndex]; ok {
		return c
	}
	return results.CategoryText
}

// Component is a categorized, cropped region of a page.
type Component struct {
	ID            int
	OriginalLabel string
	LabelIndex    int
	Category      string
	Confidence    float64
	BBox          []int
	Crop          image.Image
}

// MapAndCrop categorizes detections and crops their regions out of the page
// image. Bounding boxes are clamped to the page; detections whose clamped box
// is empty are skipped. Component ids continue from idStart so they stay
// unique across pages.
func MapAndCrop(detections []extractor.Detection, page image.Image, idStart int, logger *slog.Logger) []Component {
	bounds := page.Bounds()
	counts := map[string]int{}

	components := make([]Component, 0, len(detections))
	for i, det := range detections {
		rect, ok := clampBBox(det.BBox, bounds)
		if !ok {
			logger.Warn("Empty crop for detection, skipping",
				slog.Int("index", i),
				slog.String("label", det.Label),
			)
			continue
		}

		category := CategoryFor(det.LabelIndex)
		counts[category]++

		components = append(components, Component{
			ID:            idStart + i,
			OriginalLabel: det.Label,
			LabelIndex:    det.LabelIndex,
			Category:      category,
			Confidence:    det.Confidence,
			BBox:          []int{rect.Min.X, rect.Min.Y, rect.Max.X, rect.Max.Y},
			Crop:          imaging.Crop(page, rect),
		})
	}

	logger.Info("Mapped detections to components",
		slog.Int("detections", len(detections)),
		slog.Int("components", len(components)),
		slog.Int("text", counts[results.CategoryText]),
		slog.Int("figure", counts[results.CategoryFigure]),
		slog.Int("misc", counts[results.CategoryMisc]),
	)
	return components
}

// clampBBox intersects an [x1 y1 x2 y2] box with the page bounds. ok is false
// for malformed boxes and crops with no area.
func clampBBox(bbox []int, bounds image.Rectangle) (image.Rectangle, bool) {
	if len(bbox) != 4 {
		return image.Rectangle{}, false
	}
	rect := image.Rect(bbox[0], bbox[1], bbox[2], bbox[3]).Intersect(bounds)
	if rect.Empty() {
		return image.Rectangle{}, false
	}
	return rect, true
}
