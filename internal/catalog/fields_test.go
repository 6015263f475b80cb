package catalog

import (
	"errors"
	"testing"

	"github.com/starford/marketeer/internal/apperr"
	"github.com/starford/marketeer/internal/models"
)

func TestSetItemField_Coercion(t *testing.T) {
	tests := []struct {
		field   string
		text    string
		check   func(models.ItemRecord) bool
		wantErr bool
	}{
		{models.FieldQuantityPercent, "abc", func(it models.ItemRecord) bool { return it.QuantityPercent == -1 }, true},
		{models.FieldQuantityPercent, "", func(it models.ItemRecord) bool { return it.QuantityPercent == -1 }, false},
		{models.FieldQuantityPercent, "12.7", func(it models.ItemRecord) bool { return it.QuantityPercent == 12 }, false},
		{models.FieldSellPricePercent, "x", func(it models.ItemRecord) bool { return it.SellPricePercent == -1.0 }, true},
		{models.FieldSellPricePercent, "NaN", func(it models.ItemRecord) bool { return it.SellPricePercent == -1.0 }, true},
		{models.FieldSellPricePercent, " 0.75 ", func(it models.ItemRecord) bool { return it.SellPricePercent == 0.75 }, false},
		{models.FieldMaxPriceThreshold, "12.5", func(it models.ItemRecord) bool { return it.MaxPriceThreshold == 0 }, true},
		{models.FieldMaxPriceThreshold, "", func(it models.ItemRecord) bool { return it.MaxPriceThreshold == 0 }, false},
		{models.FieldMinStockThreshold, " 7 ", func(it models.ItemRecord) bool { return it.MinStockThreshold == 7 }, false},
		{models.FieldClassName, "  bandage  ", func(it models.ItemRecord) bool { return it.ClassName == "bandage" }, false},
		{models.FieldVariants, "a\n\n  b \n", func(it models.ItemRecord) bool { return len(it.Variants) == 2 && it.Variants[1] == "b" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.field+"="+tt.text, func(t *testing.T) {
			item := models.NewItem("x")
			item.MaxPriceThreshold = 99
			err := SetItemField(&item, tt.field, tt.text)
			if tt.wantErr != (err != nil) {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("err should be a validation error: %v", err)
			}
			if !tt.check(item) {
				t.Errorf("unexpected item %+v", item)
			}
		})
	}
}

func TestSetItemField_UnknownField(t *testing.T) {
	item := models.NewItem("x")
	err := SetItemField(&item, "Bogus", "1")
	if err == nil || errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want unknown field error", err)
	}
}

func TestItemFormRoundTrip(t *testing.T) {
	item := models.NewItem("m4a1")
	item.SellPricePercent = 0.35
	item.SpawnAttachments = []string{"m4_suppressor", "m4_oebttstck"}
	form := ItemForm(item)
	if form[models.FieldSellPricePercent] != "0.35" {
		t.Errorf("sell text = %q", form[models.FieldSellPricePercent])
	}
	if form[models.FieldQuantityPercent] != "-1" {
		t.Errorf("quantity text = %q", form[models.FieldQuantityPercent])
	}

	var back models.ItemRecord
	if errs := ApplyItemForm(&back, form); len(errs) != 0 {
		t.Fatalf("ApplyItemForm: %v", errs)
	}
	if back.ClassName != "m4a1" || back.SellPricePercent != 0.35 || back.MaxPriceThreshold != 1000 {
		t.Errorf("back = %+v", back)
	}
	if len(back.SpawnAttachments) != 2 || len(back.Variants) != 0 {
		t.Errorf("arrays = %v / %v", back.SpawnAttachments, back.Variants)
	}
}

func TestSetCatalogField(t *testing.T) {
	doc := models.NewCatalogDocument()
	_ = SetCatalogField(doc, FieldColor, " fbfcfeff ")
	if doc.Color != "FBFCFEFF" {
		t.Errorf("color = %q", doc.Color)
	}
	_ = SetCatalogField(doc, FieldIsExchange, "yes")
	if !doc.IsExchange {
		t.Error("IsExchange should be true")
	}
	_ = SetCatalogField(doc, FieldInitStockPercent, "150")
	if doc.InitStockPercent != 100 {
		t.Errorf("stock = %v, want clamped 100", doc.InitStockPercent)
	}
	if err := SetCatalogField(doc, FieldInitStockPercent, "lots"); err == nil {
		t.Error("expected validation error")
	}
	if doc.InitStockPercent != models.DefaultInitStock {
		t.Errorf("stock = %v, want default", doc.InitStockPercent)
	}
}

func TestSetTraderField_IntsFallBackToZero(t *testing.T) {
	doc := &models.TraderDocument{MinRequiredReputation: 5}
	err := SetTraderField(doc, models.FieldMinRequiredReputation, "lots")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v", err)
	}
	if doc.MinRequiredReputation != 0 {
		t.Errorf("rep = %d", doc.MinRequiredReputation)
	}
	_ = SetTraderField(doc, models.FieldRequiredCompletedQuestID, "-1")
	if doc.RequiredCompletedQuestID != -1 {
		t.Errorf("quest = %d", doc.RequiredCompletedQuestID)
	}
	text, _ := TraderFieldText(doc, models.FieldRequiredCompletedQuestID)
	if text != "-1" {
		t.Errorf("text = %q", text)
	}
}

func TestColorFromRGB(t *testing.T) {
	got, err := ColorFromRGB("#1a2b3c")
	if err != nil || got != "1A2B3CFF" {
		t.Errorf("got %q, %v", got, err)
	}
	if _, err := ColorFromRGB("#12"); err == nil {
		t.Error("expected error for short color")
	}
}
