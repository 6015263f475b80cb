package catalog

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/marketeer/internal/models"
)

// ValidateCatalog reports values outside their documented domain. It is
// advisory: load and save never call it.
func ValidateCatalog(doc *models.CatalogDocument) error {
	errs := validation.Errors{}
	err := validation.ValidateStruct(doc,
		validation.Field(&doc.Color, validation.Match(colorRe).Error("must be 8 upper-case hex digits (RRGGBBAA)")),
		validation.Field(&doc.InitStockPercent, validation.Min(0.0), validation.Max(100.0)),
	)
	if err := mergeErrors(errs, "", err); err != nil {
		return err
	}
	for i, it := range doc.Items {
		if err := mergeErrors(errs, fmt.Sprintf("Items[%d].", i), ValidateItem(it)); err != nil {
			return err
		}
	}
	return errs.Filter()
}

// ValidateItem checks a single item record.
func ValidateItem(it models.ItemRecord) error {
	return validation.ValidateStruct(&it,
		validation.Field(&it.ClassName, validation.Required),
		validation.Field(&it.MinPriceThreshold, validation.Min(0)),
		validation.Field(&it.MaxPriceThreshold, validation.By(notBelow(it.MinPriceThreshold, "MinPriceThreshold"))),
		validation.Field(&it.MinStockThreshold, validation.Min(0)),
		validation.Field(&it.MaxStockThreshold, validation.By(notBelow(it.MinStockThreshold, "MinStockThreshold"))),
		validation.Field(&it.SellPricePercent, validation.By(sellPricePercentRule)),
		validation.Field(&it.QuantityPercent, validation.By(quantityPercentRule)),
	)
}

// ValidateTrader checks a trader document.
func ValidateTrader(doc *models.TraderDocument) error {
	return validation.ValidateStruct(doc,
		validation.Field(&doc.MaxRequiredReputation, validation.By(notBelow(doc.MinRequiredReputation, "MinRequiredReputation"))),
		validation.Field(&doc.Categories, validation.Each(validation.Required)),
	)
}

func notBelow(floor int, name string) validation.RuleFunc {
	return func(value interface{}) error {
		if v, _ := value.(int); v < floor {
			return fmt.Errorf("must not be below %s (%d)", name, floor)
		}
		return nil
	}
}

func sellPricePercentRule(value interface{}) error {
	v, _ := value.(float64)
	if v == models.UnsetSellPricePercent || (v >= 0.1 && v <= 1.0) {
		return nil
	}
	return errors.New("must be -1 or within [0.1, 1.0]")
}

func quantityPercentRule(value interface{}) error {
	v, _ := value.(int)
	if v == models.UnsetQuantityPercent || (v >= 0 && v <= 100) {
		return nil
	}
	return errors.New("must be -1 or within [0, 100]")
}

// mergeErrors copies field errors from err into dst under prefix. Errors
// that are not field errors are returned as-is.
func mergeErrors(dst validation.Errors, prefix string, err error) error {
	if err == nil {
		return nil
	}
	var fe validation.Errors
	if !errors.As(err, &fe) {
		return err
	}
	for k, v := range fe {
		dst[prefix+k] = v
	}
	return nil
}

// Issues flattens a validation result into field -> message. Errors that
// are not field errors are reported under "document".
func Issues(err error) map[string]string {
	if err == nil {
		return nil
	}
	var fe validation.Errors
	if !errors.As(err, &fe) {
		return map[string]string{"document": err.Error()}
	}
	out := make(map[string]string, len(fe))
	for k, v := range fe {
		out[k] = v.Error()
	}
	return out
}
