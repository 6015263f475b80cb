package parser

import (
	"log/slog"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/marketeer/internal/storage"
)

const typesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>
<types>
    <type name="AKM">
        <nominal>5</nominal>
        <category name="weapons"/>
        <usage name="Military"/>
    </type>
    <type name="Apple">
        <nominal>40</nominal>
    </type>
    <type name="AKM"/>
</types>
`

func TestParseOrFallback_Structural(t *testing.T) {
	res := ParseOrFallback([]byte(typesXML))
	if res.Strategy != StrategyStructural {
		t.Fatalf("strategy = %s (%v)", res.Strategy, res.StructuralErr)
	}
	// Every element's name attribute counts, not only <type>.
	want := []string{"AKM", "Apple", "Military", "weapons"}
	if diff := cmp.Diff(want, res.Names); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
}

func TestParseOrFallback_RegexOnMalformed(t *testing.T) {
	broken := `<types>
    <type name="Zucchini"><nominal>3</nominal></type>
    <type  name="Banana">
    <category name="food"/>
    <type name="Zucchini">
</typos>`
	res := ParseOrFallback([]byte(broken))
	if res.Strategy != StrategyRegex {
		t.Fatalf("strategy = %s", res.Strategy)
	}
	if res.StructuralErr == nil {
		t.Error("expected structural error to be kept")
	}
	if diff := cmp.Diff([]string{"Banana", "Zucchini"}, res.Names); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
}

func TestParseOrFallback_EmptyInput(t *testing.T) {
	res := ParseOrFallback(nil)
	if res.Strategy != StrategyRegex || len(res.Names) != 0 {
		t.Errorf("res = %+v", res)
	}
}

func TestStructuralNames_Latin1(t *testing.T) {
	data := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<types><type name=\"Caf\xe9\"/></types>")
	names, err := StructuralNames(data)
	if err != nil {
		t.Fatalf("StructuralNames: %v", err)
	}
	if diff := cmp.Diff([]string{"Café"}, names); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestFilter(t *testing.T) {
	names := []string{"AKM", "AK74", "Apple", "M4A1"}
	if diff := cmp.Diff([]string{"AKM", "AK74"}, Filter(names, " ak")); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if len(Filter(names, "")) != 4 {
		t.Error("blank filter should keep all")
	}
}

func TestFolderTypeNames(t *testing.T) {
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_ = fs.Write("types.xml", []byte(typesXML))
	_ = fs.Write("broken.xml", []byte(`<types><type name="Pear">`))
	_ = fs.Write("notes.txt", []byte(`<type name="Ignored">`))

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	names, err := FolderTypeNames(fs, logger)
	if err != nil {
		t.Fatalf("FolderTypeNames: %v", err)
	}
	want := []string{"AKM", "Apple", "Military", "Pear", "weapons"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
