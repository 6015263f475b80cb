package catalog

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/starford/marketeer/internal/apperr"
	"github.com/starford/marketeer/internal/models"
)

// Form field names for catalog metadata that are not shared with traders.
const (
	FieldIcon             = "Icon"
	FieldColor            = "Color"
	FieldIsExchange       = "IsExchange"
	FieldInitStockPercent = "InitStockPercent"
)

// CatalogFields lists the catalog metadata fields in form order.
var CatalogFields = []string{
	models.FieldDisplayName,
	FieldIcon,
	FieldColor,
	FieldIsExchange,
	FieldInitStockPercent,
}

var errUnknownField = errors.New("unknown field")

// ParseInt coerces form text to an int. Empty or unparsable text yields
// def; the error is non-nil only for unparsable text.
func ParseInt(text string, def int) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return def, nil
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return def, err
	}
	return n, nil
}

// ParseFloat coerces form text to a finite float64 with the same fallback
// rules as ParseInt.
func ParseFloat(text string, def float64) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return def, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return def, fmt.Errorf("non-finite value")
	}
	return f, nil
}

// ParseTruncatedInt accepts float text and truncates toward zero, so
// "12.7" becomes 12.
func ParseTruncatedInt(text string, def int) (int, error) {
	f, err := ParseFloat(text, float64(def))
	if err != nil {
		return def, err
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return def, fmt.Errorf("value out of range")
	}
	return int(f), nil
}

func fieldErr(field, text string, err error) error {
	if err == nil {
		return nil
	}
	return &apperr.FieldError{Field: field, Input: strings.TrimSpace(text), Err: err}
}

// SetItemField stores text into the named item field. The field always
// receives a value: on empty or invalid input it gets the field default
// (ints 0, SellPricePercent -1.0, QuantityPercent -1, strings empty). A
// returned *apperr.FieldError reports that the default was substituted.
func SetItemField(item *models.ItemRecord, field, text string) error {
	var err error
	switch field {
	case models.FieldClassName:
		item.ClassName = strings.TrimSpace(text)
	case models.FieldMaxPriceThreshold:
		item.MaxPriceThreshold, err = ParseInt(text, 0)
	case models.FieldMinPriceThreshold:
		item.MinPriceThreshold, err = ParseInt(text, 0)
	case models.FieldMaxStockThreshold:
		item.MaxStockThreshold, err = ParseInt(text, 0)
	case models.FieldMinStockThreshold:
		item.MinStockThreshold, err = ParseInt(text, 0)
	case models.FieldSellPricePercent:
		item.SellPricePercent, err = ParseFloat(text, models.UnsetSellPricePercent)
	case models.FieldQuantityPercent:
		item.QuantityPercent, err = ParseTruncatedInt(text, models.UnsetQuantityPercent)
	case models.FieldSpawnAttachments:
		item.SpawnAttachments = ParseLines(text)
	case models.FieldVariants:
		item.Variants = ParseLines(text)
	default:
		return fmt.Errorf("%w %q", errUnknownField, field)
	}
	return fieldErr(field, text, err)
}

// ItemFieldText renders an item field as form text.
func ItemFieldText(item models.ItemRecord, field string) (string, error) {
	switch field {
	case models.FieldClassName:
		return item.ClassName, nil
	case models.FieldMaxPriceThreshold:
		return strconv.Itoa(item.MaxPriceThreshold), nil
	case models.FieldMinPriceThreshold:
		return strconv.Itoa(item.MinPriceThreshold), nil
	case models.FieldMaxStockThreshold:
		return strconv.Itoa(item.MaxStockThreshold), nil
	case models.FieldMinStockThreshold:
		return strconv.Itoa(item.MinStockThreshold), nil
	case models.FieldSellPricePercent:
		return FormatFloat(item.SellPricePercent), nil
	case models.FieldQuantityPercent:
		return strconv.Itoa(item.QuantityPercent), nil
	case models.FieldSpawnAttachments:
		return JoinLines(item.SpawnAttachments), nil
	case models.FieldVariants:
		return JoinLines(item.Variants), nil
	default:
		return "", fmt.Errorf("%w %q", errUnknownField, field)
	}
}

// ItemForm returns every editable item field as form text.
func ItemForm(item models.ItemRecord) map[string]string {
	form := make(map[string]string, len(models.ItemFields)+2)
	for _, f := range slices.Concat(models.ItemFields, []string{models.FieldSpawnAttachments, models.FieldVariants}) {
		form[f], _ = ItemFieldText(item, f)
	}
	return form
}

// ApplyItemForm writes every field present in form into item. Fields are
// applied independently; substitution errors are collected, not fatal.
func ApplyItemForm(item *models.ItemRecord, form map[string]string) []error {
	var errs []error
	for field, text := range form {
		if err := SetItemField(item, field, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// SetCatalogField stores text into a catalog metadata field.
func SetCatalogField(doc *models.CatalogDocument, field, text string) error {
	var err error
	switch field {
	case models.FieldDisplayName:
		doc.DisplayName = strings.TrimSpace(text)
	case FieldIcon:
		doc.Icon = strings.TrimSpace(text)
	case FieldColor:
		doc.Color = NormalizeColor(text)
	case FieldIsExchange:
		var b bool
		b, err = parseBool(text)
		doc.IsExchange = models.Flag(b)
	case FieldInitStockPercent:
		var f float64
		f, err = ParseFloat(text, models.DefaultInitStock)
		doc.InitStockPercent = ClampStockPercent(f)
	default:
		return fmt.Errorf("%w %q", errUnknownField, field)
	}
	return fieldErr(field, text, err)
}

// CatalogFieldText renders a catalog metadata field as form text.
func CatalogFieldText(doc *models.CatalogDocument, field string) (string, error) {
	switch field {
	case models.FieldDisplayName:
		return doc.DisplayName, nil
	case FieldIcon:
		return doc.Icon, nil
	case FieldColor:
		return doc.Color, nil
	case FieldIsExchange:
		return strconv.FormatBool(bool(doc.IsExchange)), nil
	case FieldInitStockPercent:
		return strconv.FormatFloat(doc.InitStockPercent, 'f', 1, 64), nil
	default:
		return "", fmt.Errorf("%w %q", errUnknownField, field)
	}
}

// SetTraderField stores text into a trader metadata field. Integer fields
// fall back to 0.
func SetTraderField(doc *models.TraderDocument, field, text string) error {
	var err error
	switch field {
	case models.FieldDisplayName:
		doc.DisplayName = strings.TrimSpace(text)
	case models.FieldMinRequiredReputation:
		doc.MinRequiredReputation, err = ParseInt(text, 0)
	case models.FieldMaxRequiredReputation:
		doc.MaxRequiredReputation, err = ParseInt(text, 0)
	case models.FieldRequiredFaction:
		doc.RequiredFaction = strings.TrimSpace(text)
	case models.FieldRequiredCompletedQuestID:
		doc.RequiredCompletedQuestID, err = ParseInt(text, 0)
	case models.FieldTraderIcon:
		doc.TraderIcon = strings.TrimSpace(text)
	default:
		return fmt.Errorf("%w %q", errUnknownField, field)
	}
	return fieldErr(field, text, err)
}

// TraderFieldText renders a trader metadata field as form text.
func TraderFieldText(doc *models.TraderDocument, field string) (string, error) {
	switch field {
	case models.FieldDisplayName:
		return doc.DisplayName, nil
	case models.FieldMinRequiredReputation:
		return strconv.Itoa(doc.MinRequiredReputation), nil
	case models.FieldMaxRequiredReputation:
		return strconv.Itoa(doc.MaxRequiredReputation), nil
	case models.FieldRequiredFaction:
		return doc.RequiredFaction, nil
	case models.FieldRequiredCompletedQuestID:
		return strconv.Itoa(doc.RequiredCompletedQuestID), nil
	case models.FieldTraderIcon:
		return doc.TraderIcon, nil
	default:
		return "", fmt.Errorf("%w %q", errUnknownField, field)
	}
}

// ClampStockPercent bounds p to [0,100] at the slider's 0.1 resolution.
func ClampStockPercent(p float64) float64 {
	p = math.Max(0, math.Min(100, p))
	return math.Round(p*10) / 10
}

// FormatFloat renders f without trailing zeros, keeping one decimal for
// whole numbers so sentinels read as -1.0.
func FormatFloat(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseBool(text string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "0", "false", "no", "off":
		return false, nil
	case "1", "true", "yes", "on":
		return true, nil
	default:
		return false, fmt.Errorf("not a boolean")
	}
}
