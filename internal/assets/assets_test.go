package assets

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/marketeer/internal/apperr"
)

func TestLoadIcons_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icon.txt")
	_ = os.WriteFile(path, []byte("  Rifle\n\nAmmo\r\n   \nDeliver\n"), 0o644)

	icons, err := LoadIcons(path)
	if err != nil {
		t.Fatalf("LoadIcons: %v", err)
	}
	if diff := cmp.Diff([]string{"Ammo", "Deliver", "Rifle"}, icons); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestLoadIcons_MissingFileIsEmpty(t *testing.T) {
	icons, err := LoadIcons(filepath.Join(t.TempDir(), "missing.txt"))
	if err != nil {
		t.Fatalf("LoadIcons: %v", err)
	}
	if icons == nil || len(icons) != 0 {
		t.Errorf("icons = %#v, want empty non-nil", icons)
	}
}

func TestLoadIcons_OverlongLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icon.txt")
	body := "Ammo\n" + strings.Repeat("x", bufio.MaxScanTokenSize+1) + "\nRifle\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	icons, err := LoadIcons(path)
	if !errors.Is(err, apperr.ErrParse) {
		t.Errorf("err = %v, icons = %d", err, len(icons))
	}
}

func TestLoadIcons_BuiltIn(t *testing.T) {
	icons, err := LoadIcons("")
	if err != nil {
		t.Fatalf("LoadIcons: %v", err)
	}
	if len(icons) == 0 || icons[0] != "Ammo" {
		t.Errorf("icons = %v", icons)
	}
}

func TestTemplate_DeepCopy(t *testing.T) {
	tpl, err := LoadTemplate("")
	if err != nil {
		t.Fatalf("LoadTemplate: %v", err)
	}
	a := tpl.NewCatalog()
	a.DisplayName = "changed"
	a.Items[0].Variants = append(a.Items[0].Variants, "x")

	b := tpl.NewCatalog()
	if b.DisplayName != "New Category" {
		t.Errorf("template mutated: %q", b.DisplayName)
	}
	if len(b.Items[0].Variants) != 0 {
		t.Errorf("variants aliased: %v", b.Items[0].Variants)
	}
}

func TestLoadTemplate_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadTemplate(filepath.Join(dir, "none.json")); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing: err = %v", err)
	}
	bad := filepath.Join(dir, "bad.json")
	_ = os.WriteFile(bad, []byte("[1,2"), 0o644)
	if _, err := LoadTemplate(bad); !errors.Is(err, apperr.ErrParse) {
		t.Errorf("malformed: err = %v", err)
	}
}
