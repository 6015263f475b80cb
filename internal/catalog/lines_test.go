package catalog

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/marketeer/internal/models"
)

func TestParseLines_DropsBlankAndTrims(t *testing.T) {
	got := ParseLines("  one \n\n\t\ntwo\r\n three")
	if diff := cmp.Diff([]string{"one", "two", "three"}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if got := ParseLines(""); got == nil || len(got) != 0 {
		t.Errorf("empty text = %#v, want empty non-nil slice", got)
	}
}

func TestLinesRoundTrip(t *testing.T) {
	cases := [][]string{
		{},
		{"single"},
		{"a", "b", "a"},
		{"with space inside", "x_y-z"},
	}
	for _, xs := range cases {
		if diff := cmp.Diff(xs, ParseLines(JoinLines(xs))); diff != "" {
			t.Errorf("round trip %v (-want +got):\n%s", xs, diff)
		}
	}
}

func TestParseTraderItems(t *testing.T) {
	existing := models.TraderItems{{ClassName: "keep", Value: models.IntOverride(1)}}

	got, changed := ParseTraderItems("   \n", existing)
	if changed || len(got) != 1 {
		t.Errorf("blank text should keep existing, got %v changed=%v", got, changed)
	}

	got, changed = ParseTraderItems("ak74: 3\nno colon here\nmosin : buy:only\nak74: 4", existing)
	if !changed {
		t.Fatal("expected change")
	}
	if len(got) != 2 {
		t.Fatalf("items = %v", got)
	}
	if n, ok := got[0].Value.Int(); !ok || n != 4 {
		t.Errorf("ak74 = %v", got[0].Value)
	}
	if got[1].ClassName != "mosin" || got[1].Value.String() != "buy:only" {
		t.Errorf("mosin = %+v", got[1])
	}
	if FormatTraderItems(got) != "ak74: 4\nmosin: buy:only" {
		t.Errorf("format = %q", FormatTraderItems(got))
	}
}
