package mcpserver

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/marketeer/internal/assets"
	"github.com/starford/marketeer/internal/catalog"
	"github.com/starford/marketeer/internal/index"
	"github.com/starford/marketeer/internal/session"
	"github.com/starford/marketeer/internal/testutil"
)

func testServer(t *testing.T, withIndex bool) (*Server, testutil.Project) {
	t.Helper()

	p := testutil.NewProject(t)
	logger := testutil.Logger()
	tpl, err := assets.LoadTemplate("")
	if err != nil {
		t.Fatal(err)
	}
	sess := session.New(logger, tpl)
	sess.SetProject(session.Project{MarketFolder: p.Market, TradersFolder: p.Traders, TypesFolder: p.Types})

	if !withIndex {
		return New(sess, nil), p
	}
	db, err := index.Open(filepath.Join(p.Root, "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	for _, f := range sess.Folders() {
		if err := index.Sync(db, f, logger); err != nil {
			t.Fatal(err)
		}
	}
	return New(sess, db), p
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_catalogs":
		result, err = srv.listCatalogs(ctx, req)
	case "read_catalog":
		result, err = srv.readCatalog(ctx, req)
	case "set_item_field":
		result, err = srv.setItemField(ctx, req)
	case "add_types_to_catalog":
		result, err = srv.addTypes(ctx, req)
	case "list_traders":
		result, err = srv.listTraders(ctx, req)
	case "read_trader":
		result, err = srv.readTrader(ctx, req)
	case "add_trader_category":
		result, err = srv.addTraderCategory(ctx, req)
	case "scan_duplicates":
		result, err = srv.scanDuplicates(ctx, req)
	case "remove_duplicates":
		result, err = srv.removeDuplicates(ctx, req)
	case "list_type_names":
		result, err = srv.listTypeNames(ctx, req)
	case "search_items":
		result, err = srv.searchItems(ctx, req)
	case "files_containing":
		result, err = srv.filesContaining(ctx, req)
	case "get_catalog_contract":
		result, err = srv.getCatalogContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func loadCatalog(t *testing.T, dir, name string) []string {
	t.Helper()
	store, file, err := catalog.OpenFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	doc, err := store.LoadCatalog(file)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	return doc.Keys()
}

func TestListAndReadCatalog(t *testing.T) {
	srv, _ := testServer(t, false)

	r := callTool(t, srv, "list_catalogs", map[string]interface{}{})
	if text := resultText(r); text != "food.json\nweapons.json" {
		t.Errorf("list = %q", text)
	}

	r = callTool(t, srv, "read_catalog", map[string]interface{}{"name": "weapons"})
	text := resultText(r)
	if r.IsError || !strings.Contains(text, `"DisplayName": "Weapons"`) {
		t.Errorf("read = %q", text)
	}
}

func TestReadCatalogMissing(t *testing.T) {
	srv, _ := testServer(t, false)
	r := callTool(t, srv, "read_catalog", map[string]interface{}{"name": "nope"})
	if !r.IsError {
		t.Error("expected error for missing catalog")
	}
	r = callTool(t, srv, "read_catalog", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for missing name argument")
	}
}

func TestSetItemField(t *testing.T) {
	srv, p := testServer(t, false)

	r := callTool(t, srv, "set_item_field", map[string]interface{}{
		"name": "weapons", "index": float64(1), "field": "ClassName", "value": " M16A2 ",
	})
	if r.IsError {
		t.Fatalf("set_item_field: %s", resultText(r))
	}
	keys := loadCatalog(t, p.Market, "weapons.json")
	if keys[1] != "M16A2" {
		t.Errorf("keys = %v", keys)
	}

	r = callTool(t, srv, "set_item_field", map[string]interface{}{
		"name": "weapons", "index": float64(0), "field": "QuantityPercent", "value": "abc",
	})
	if r.IsError || !strings.HasPrefix(resultText(r), "saved with default") {
		t.Errorf("coercion reply = %q", resultText(r))
	}

	r = callTool(t, srv, "set_item_field", map[string]interface{}{
		"name": "weapons", "index": float64(9), "field": "ClassName", "value": "X",
	})
	if !r.IsError {
		t.Error("expected error for out-of-range index")
	}

	r = callTool(t, srv, "set_item_field", map[string]interface{}{
		"name": "weapons", "index": float64(0), "field": "Bogus", "value": "X",
	})
	if !r.IsError {
		t.Error("expected error for unknown field")
	}
}

func TestAddTypes(t *testing.T) {
	srv, p := testServer(t, false)
	r := callTool(t, srv, "add_types_to_catalog", map[string]interface{}{
		"name": "food", "class_names": "Apple, AKM\nApple",
	})
	if text := resultText(r); text != "added 2, skipped 1" {
		t.Errorf("add result = %q", text)
	}
	keys := loadCatalog(t, p.Market, "food.json")
	if len(keys) != 2 || keys[0] != "Apple" || keys[1] != "AKM" {
		t.Errorf("keys = %v", keys)
	}

	r = callTool(t, srv, "add_types_to_catalog", map[string]interface{}{"name": "food", "class_names": " , "})
	if !r.IsError {
		t.Error("expected error for empty class names")
	}
}

func TestTraderTools(t *testing.T) {
	srv, _ := testServer(t, false)

	r := callTool(t, srv, "list_traders", map[string]interface{}{})
	if text := resultText(r); text != "gunsmith.json" {
		t.Errorf("list = %q", text)
	}

	r = callTool(t, srv, "add_trader_category", map[string]interface{}{"name": "gunsmith", "category": "food"})
	if text := resultText(r); text != "added: food" {
		t.Errorf("add = %q", text)
	}
	r = callTool(t, srv, "add_trader_category", map[string]interface{}{"name": "gunsmith", "category": "food"})
	if text := resultText(r); !strings.HasPrefix(text, "unchanged") {
		t.Errorf("second add = %q", text)
	}

	r = callTool(t, srv, "read_trader", map[string]interface{}{"name": "gunsmith.json"})
	if text := resultText(r); !strings.Contains(text, `"food"`) {
		t.Errorf("trader = %q", text)
	}
}

func TestScanAndRemoveDuplicates(t *testing.T) {
	srv, p := testServer(t, false)

	r := callTool(t, srv, "scan_duplicates", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "weapons.json (1 duplicate(s)):") || !strings.Contains(text, "ClassName: AKM (index 2)") {
		t.Errorf("summary = %q", text)
	}

	r = callTool(t, srv, "remove_duplicates", map[string]interface{}{})
	if text := resultText(r); text != "removed 1 duplicate(s), saved 1 file(s)" {
		t.Errorf("remove = %q", text)
	}
	keys := loadCatalog(t, p.Market, "weapons.json")
	if len(keys) != 2 {
		t.Errorf("keys after removal = %v", keys)
	}

	r = callTool(t, srv, "remove_duplicates", map[string]interface{}{})
	if text := resultText(r); text != "No duplicates found." {
		t.Errorf("second remove = %q", text)
	}
}

func TestListTypeNames(t *testing.T) {
	srv, _ := testServer(t, false)

	r := callTool(t, srv, "list_type_names", map[string]interface{}{"filter": "apple"})
	if text := resultText(r); text != "Apple\nApple_Rotten" {
		t.Errorf("filtered = %q", text)
	}
	r = callTool(t, srv, "list_type_names", map[string]interface{}{"file": "types.xml"})
	if text := resultText(r); text != "AKM\nApple\nApple_Rotten" {
		t.Errorf("file = %q", text)
	}
	r = callTool(t, srv, "list_type_names", map[string]interface{}{"filter": "zzz"})
	if text := resultText(r); text != "no type names found" {
		t.Errorf("empty = %q", text)
	}
}

func TestSearchTools(t *testing.T) {
	srv, _ := testServer(t, true)

	r := callTool(t, srv, "search_items", map[string]interface{}{"query": "m4a"})
	if text := resultText(r); r.IsError || !strings.Contains(text, "M4A1") {
		t.Errorf("search = %q", text)
	}

	r = callTool(t, srv, "files_containing", map[string]interface{}{"key": "weapons"})
	if text := resultText(r); text != "trader/gunsmith.json" {
		t.Errorf("files = %q", text)
	}
	r = callTool(t, srv, "files_containing", map[string]interface{}{"key": "Nothing"})
	if text := resultText(r); text != "no files found" {
		t.Errorf("files = %q", text)
	}
}

func TestSearchWithoutIndex(t *testing.T) {
	srv, _ := testServer(t, false)
	r := callTool(t, srv, "search_items", map[string]interface{}{"query": "AKM"})
	if !r.IsError {
		t.Error("expected error without index")
	}
}

func TestContract(t *testing.T) {
	srv, _ := testServer(t, false)
	r := callTool(t, srv, "get_catalog_contract", map[string]interface{}{})
	if !strings.Contains(resultText(r), "SellPricePercent") {
		t.Error("contract lacks field documentation")
	}
	contents, err := srv.readContractResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource: %v %d", err, len(contents))
	}
}
