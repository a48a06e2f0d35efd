package classify

import (
	"path/filepath"
	"sort"
	"strings"
)

// Labels scored by the classification service.
const (
	LabelWatercolor   = "a watercolor painting"
	LabelOil          = "an oil painting"
	LabelAcrylic      = "an acrylic painting"
	LabelPhotograph   = "a photograph"
	LabelDigitalArt   = "digital art"
	LabelPencilSketch = "a pencil sketch"

	// PaintingTag is applied to any asset whose top label is a painting medium.
	PaintingTag = "Painting"
)

// Strict-mode limits.
const (
	strictMinMargin     = 0.15
	strictMaxPhotoProb  = 0.3
	strictMaxDigitalArt = 0.3
)

var granularTiers = []struct {
	min float64
	tag string
}{
	{0.85, "Watercolor85"},
	{0.75, "Watercolor75"},
	{0.65, "Watercolor65"},
	{0.55, "Watercolor55"},
	{0.45, "Watercolor45"},
	{0.35, "Watercolor35"},
}

// GranularTag returns the confidence-bucket tag for confidence, or "" when it
// falls below the lowest bucket.
func GranularTag(confidence float64) string {
	for _, tier := range granularTiers {
		if confidence >= tier.min {
			return tier.tag
		}
	}
	return ""
}

// IsPaintingLabel reports whether label names a painting medium.
func IsPaintingLabel(label string) bool {
	switch label {
	case LabelWatercolor, LabelOil, LabelAcrylic:
		return true
	}
	return false
}

// Tags returns every remote tag a result earns: its granular bucket and, for
// painting media, the painting tag.
func Tags(r Result) []string {
	if r.Kind == KindError {
		return nil
	}
	var tags []string
	if tag := GranularTag(r.Confidence()); tag != "" {
		tags = append(tags, tag)
	}
	if IsPaintingLabel(r.TopLabel()) {
		tags = append(tags, PaintingTag)
	}
	return tags
}

// Probabilities maps label to probability for one image or frame.
type Probabilities map[string]float64

// Top returns the most probable label. Ties resolve alphabetically so the
// result does not depend on map order.
func (p Probabilities) Top() (string, float64) {
	var (
		best  string
		score = -1.0
	)
	for label, prob := range p {
		if prob > score || (prob == score && label < best) {
			best, score = label, prob
		}
	}
	if score < 0 {
		return "", 0
	}
	return best, score
}

func (p Probabilities) margin() float64 {
	values := make([]float64, 0, len(p))
	for _, v := range p {
		values = append(values, v)
	}
	if len(values) < 2 {
		return 1
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))
	return values[0] - values[1]
}

// IsPositive applies the standard rule: the target label must lead and exceed
// threshold.
func (p Probabilities) IsPositive(threshold float64) bool {
	top, _ := p.Top()
	return top == LabelWatercolor && p[LabelWatercolor] > threshold
}

// IsPositiveStrict layers margin and competing-label limits on top of the
// standard rule.
func (p Probabilities) IsPositiveStrict(threshold float64) bool {
	top, _ := p.Top()
	if top != LabelWatercolor {
		return false
	}
	if p[LabelWatercolor] < threshold {
		return false
	}
	if p.margin() < strictMinMargin {
		return false
	}
	if p[LabelPhotograph] > strictMaxPhotoProb || p[LabelDigitalArt] > strictMaxDigitalArt {
		return false
	}
	return true
}

var (
	imageExtensions = map[string]struct{}{
		".jpg": {}, ".jpeg": {}, ".png": {}, ".bmp": {}, ".webp": {}, ".tiff": {},
	}
	videoExtensions = map[string]struct{}{
		".mp4": {}, ".avi": {}, ".mov": {}, ".mkv": {},
	}
)

// KindForPath classifies a path by extension. Unsupported files report false.
func KindForPath(path string) (Kind, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := imageExtensions[ext]; ok {
		return KindImage, true
	}
	if _, ok := videoExtensions[ext]; ok {
		return KindVideo, true
	}
	return "", false
}
