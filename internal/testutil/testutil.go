// Package testutil provides shared test helpers for setting up project
// folders.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// Project is a temporary project layout.
type Project struct {
	Root, Market, Traders, Types string
}

// Sample documents written by NewProject. weapons.json repeats AKM at
// index 2.
const (
	WeaponsJSON  = `{"DisplayName":"Weapons","Items":[{"ClassName":"AKM"},{"ClassName":"M4A1"},{"ClassName":"AKM"}]}`
	FoodJSON     = `{"DisplayName":"Food","Items":[]}`
	GunsmithJSON = `{"DisplayName":"Gunsmith","Categories":["weapons"],"Items":{}}`
	TypesXML     = `<types><type name="Apple"/><type name="AKM"/><type name="Apple_Rotten"/></types>`
)

// NewProject creates Market, Traders and types folders under a temporary
// root and fills them with the sample documents.
func NewProject(t *testing.T) Project {
	t.Helper()
	root := t.TempDir()
	p := Project{
		Root:    root,
		Market:  filepath.Join(root, "Market"),
		Traders: filepath.Join(root, "Traders"),
		Types:   filepath.Join(root, "types"),
	}
	for _, d := range []string{p.Market, p.Traders, p.Types} {
		if err := os.Mkdir(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	WriteFile(t, p.Market, "weapons.json", WeaponsJSON)
	WriteFile(t, p.Market, "food.json", FoodJSON)
	WriteFile(t, p.Traders, "gunsmith.json", GunsmithJSON)
	WriteFile(t, p.Types, "types.xml", TypesXML)
	return p
}

// WriteFile writes body to dir/name.
func WriteFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Logger returns a logger that discards everything below Error.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
