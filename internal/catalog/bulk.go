package catalog

import (
	"fmt"
	"math"
	"strings"

	"github.com/starford/marketeer/internal/apperr"
	"github.com/starford/marketeer/internal/models"
)

// Slider bounds for SellPricePercent in bulk edits.
const (
	SliderMin = 0
	SliderMax = 100
)

// SellPriceFromSlider maps a slider position to SellPricePercent: 0 is
// the unset sentinel -1.0 and 1..100 map linearly onto 0.1..1.0.
// Positions outside the slider range are clamped.
func SellPriceFromSlider(pos int) float64 {
	pos = max(SliderMin, min(SliderMax, pos))
	if pos == SliderMin {
		return models.UnsetSellPricePercent
	}
	v := 0.1 + float64(pos-1)*(1.0-0.1)/float64(SliderMax-1)
	return math.Round(v*1e4) / 1e4
}

// SliderFromSellPrice returns the slider position closest to v.
func SliderFromSellPrice(v float64) int {
	if v < 0.1 {
		return SliderMin
	}
	pos := int(math.Round((v-0.1)*float64(SliderMax-1)/0.9)) + 1
	return max(1, min(SliderMax, pos))
}

// bulkFields are the item fields a bulk edit may set from text.
var bulkFields = map[string]struct{}{
	models.FieldMaxPriceThreshold: {},
	models.FieldMinPriceThreshold: {},
	models.FieldMaxStockThreshold: {},
	models.FieldMinStockThreshold: {},
	models.FieldQuantityPercent:   {},
}

// BulkEdit is a transform applied to a selection of items.
type BulkEdit struct {
	// Fields maps an item field to form text. Blank text leaves the field
	// untouched.
	Fields map[string]string `json:"fields,omitempty"`
	// SellSlider, when set, overrides SellPricePercent on every selected
	// item through SellPriceFromSlider.
	SellSlider *int `json:"sell_slider,omitempty"`
}

// BulkResult reports the outcome of BulkEdit.Apply.
type BulkResult struct {
	Modified int     `json:"modified"`
	Errors   []error `json:"-"`
}

// Validate rejects fields a bulk edit cannot touch.
func (b BulkEdit) Validate() error {
	for f := range b.Fields {
		if _, ok := bulkFields[f]; !ok {
			return fmt.Errorf("%w %q for bulk edit", errUnknownField, f)
		}
	}
	return nil
}

// Apply runs the edit over items at indices. Each item is handled on its
// own: an invalid value or index is recorded and the rest still apply.
func (b BulkEdit) Apply(items []models.ItemRecord, indices []int) (BulkResult, error) {
	if err := b.Validate(); err != nil {
		return BulkResult{}, err
	}
	var res BulkResult
	for _, idx := range indices {
		if idx < 0 || idx >= len(items) {
			res.Errors = append(res.Errors, fmt.Errorf("item index %d out of range [0,%d)", idx, len(items)))
			continue
		}
		item := &items[idx]
		modified := false
		if b.SellSlider != nil {
			item.SellPricePercent = SellPriceFromSlider(*b.SellSlider)
			modified = true
		}
		for field, text := range b.Fields {
			if strings.TrimSpace(text) == "" {
				continue
			}
			var err error
			switch field {
			case models.FieldQuantityPercent:
				var n int
				if n, err = ParseTruncatedInt(text, 0); err == nil {
					item.QuantityPercent = n
				}
			default:
				var n int
				if n, err = ParseInt(text, 0); err == nil {
					setIntField(item, field, n)
				}
			}
			if err != nil {
				res.Errors = append(res.Errors, fmt.Errorf("item %d: %w", idx,
					&apperr.FieldError{Field: field, Input: text, Err: err}))
				continue
			}
			modified = true
		}
		if modified {
			res.Modified++
		}
	}
	return res, nil
}

func setIntField(item *models.ItemRecord, field string, n int) {
	switch field {
	case models.FieldMaxPriceThreshold:
		item.MaxPriceThreshold = n
	case models.FieldMinPriceThreshold:
		item.MinPriceThreshold = n
	case models.FieldMaxStockThreshold:
		item.MaxStockThreshold = n
	case models.FieldMinStockThreshold:
		item.MinStockThreshold = n
	}
}
