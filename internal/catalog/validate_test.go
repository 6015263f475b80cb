package catalog

import (
	"strings"
	"testing"

	"github.com/starford/marketeer/internal/models"
)

func TestValidateCatalog(t *testing.T) {
	doc, _ := DecodeCatalog([]byte(sampleCatalog))
	if err := ValidateCatalog(doc); err != nil {
		t.Fatalf("sample should be valid: %v", err)
	}

	doc.Color = "red"
	doc.Items[1].SellPricePercent = 0.05
	doc.Items[1].MaxStockThreshold = 0
	doc.Items[1].MinStockThreshold = 3
	err := ValidateCatalog(doc)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"Color", "Items[1].SellPricePercent", "Items[1].MaxStockThreshold"} {
		if !strings.Contains(msg, want) {
			t.Errorf("missing %s in %q", want, msg)
		}
	}
}

func TestValidateTrader(t *testing.T) {
	doc := &models.TraderDocument{MinRequiredReputation: 10, MaxRequiredReputation: 5, Categories: []string{"a", ""}}
	if err := ValidateTrader(doc); err == nil {
		t.Error("expected errors")
	}
}

func TestIssues(t *testing.T) {
	doc := &models.TraderDocument{MinRequiredReputation: 10, MaxRequiredReputation: 5}
	got := Issues(ValidateTrader(doc))
	if _, ok := got["MaxRequiredReputation"]; !ok || len(got) != 1 {
		t.Errorf("issues = %v", got)
	}
	if Issues(nil) != nil {
		t.Error("nil error should give nil issues")
	}
}
