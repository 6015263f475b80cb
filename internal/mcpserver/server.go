// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Marketeer tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/marketeer/internal/apperr"
	"github.com/starford/marketeer/internal/catalog"
	"github.com/starford/marketeer/internal/dedup"
	"github.com/starford/marketeer/internal/index"
	"github.com/starford/marketeer/internal/models"
	"github.com/starford/marketeer/internal/session"
)

const contractURI = "marketeer://catalog-format"

// Server wraps the MCP server with Marketeer tools.
type Server struct {
	mcp  *server.MCPServer
	sess *session.Session
	idx  index.ItemIndex
}

// New creates a new MCP server with all Marketeer tools registered. idx
// may be nil, in which case the search tools report an error.
func New(sess *session.Session, idx index.ItemIndex) *Server {
	s := &Server{sess: sess, idx: idx}

	s.mcp = server.NewMCPServer(
		"Marketeer",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_catalogs",
		mcp.WithDescription("List the market catalog files of the project."),
	), s.listCatalogs)

	s.mcp.AddTool(mcp.NewTool("read_catalog",
		mcp.WithDescription("Open a market catalog and return it as JSON."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Catalog file name, with or without .json")),
	), s.readCatalog)

	s.mcp.AddTool(mcp.NewTool("set_item_field",
		mcp.WithDescription("Set one field of one catalog item and save the catalog. "+
			"Invalid input stores the field default and the reply says so. "+
			"Read the contract via get_catalog_contract for field names and defaults."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Catalog file name")),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based item index")),
		mcp.WithString("field", mcp.Required(), mcp.Description("Item field name, e.g. MaxPriceThreshold")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Field text; arrays are newline separated")),
	), s.setItemField)

	s.mcp.AddTool(mcp.NewTool("add_types_to_catalog",
		mcp.WithDescription("Append template items for type class names to a catalog. "+
			"Class names already present are skipped."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Catalog file name")),
		mcp.WithString("class_names", mcp.Required(), mcp.Description("Comma or newline separated class names")),
	), s.addTypes)

	s.mcp.AddTool(mcp.NewTool("list_traders",
		mcp.WithDescription("List the trader files of the project."),
	), s.listTraders)

	s.mcp.AddTool(mcp.NewTool("read_trader",
		mcp.WithDescription("Open a trader document and return it as JSON."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Trader file name, with or without .json")),
	), s.readTrader)

	s.mcp.AddTool(mcp.NewTool("add_trader_category",
		mcp.WithDescription("Add a market category to a trader and save it. Existing categories are not repeated."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Trader file name")),
		mcp.WithString("category", mcp.Required(), mcp.Description("Market file name without .json")),
	), s.addTraderCategory)

	s.mcp.AddTool(mcp.NewTool("scan_duplicates",
		mcp.WithDescription("Scan every market and trader file for repeated class names or categories."),
	), s.scanDuplicates)

	s.mcp.AddTool(mcp.NewTool("remove_duplicates",
		mcp.WithDescription("Remove every duplicate found by a fresh scan, keeping first occurrences, and save each file."),
	), s.removeDuplicates)

	s.mcp.AddTool(mcp.NewTool("list_type_names",
		mcp.WithDescription("List type class names from the XML types folder."),
		mcp.WithString("filter", mcp.Description("Optional case-insensitive substring filter")),
		mcp.WithString("file", mcp.Description("Optional single XML file to read instead of the whole folder")),
	), s.listTypeNames)

	s.mcp.AddTool(mcp.NewTool("search_items",
		mcp.WithDescription("Search indexed class names and trader categories."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Substring to look for")),
	), s.searchItems)

	s.mcp.AddTool(mcp.NewTool("files_containing",
		mcp.WithDescription("List the catalog and trader files that contain an exact class name or category."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Class name or category")),
	), s.filesContaining)

	s.mcp.AddTool(mcp.NewTool("get_catalog_contract",
		mcp.WithDescription("Returns the market catalog and trader file format. "+
			"Call this before editing documents."),
	), s.getCatalogContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Catalog Format Contract",
			mcp.WithResourceDescription("Field layout, defaults and coercion rules of catalog and trader files."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listCatalogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := s.sess.ListCatalogFiles()
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(strings.Join(files, "\n")), nil
}

func (s *Server) readCatalog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return toolError(err), nil
	}
	doc, err := s.sess.OpenCatalog(name)
	if err != nil {
		return toolError(err), nil
	}
	data, err := catalog.Encode(doc)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) setItemField(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return toolError(err), nil
	}
	i, err := req.RequireInt("index")
	if err != nil {
		return toolError(err), nil
	}
	field, err := req.RequireString("field")
	if err != nil {
		return toolError(err), nil
	}
	value, err := req.RequireString("value")
	if err != nil {
		return toolError(err), nil
	}
	if _, err := s.sess.OpenCatalog(name); err != nil {
		return toolError(err), nil
	}

	var coerced error
	err = s.sess.UpdateCatalog(func(doc *models.CatalogDocument) error {
		if i < 0 || i >= len(doc.Items) {
			return fmt.Errorf("%w: item index %d out of range [0,%d)", apperr.ErrValidation, i, len(doc.Items))
		}
		coerced = catalog.SetItemField(&doc.Items[i], field, value)
		var fe *apperr.FieldError
		if coerced != nil && !errors.As(coerced, &fe) {
			return coerced
		}
		return nil
	})
	if err != nil {
		return toolError(err), nil
	}
	if err := s.sess.SaveCatalog(); err != nil {
		return toolError(err), nil
	}
	if coerced != nil {
		return mcp.NewToolResultText(fmt.Sprintf("saved with default: %v", coerced)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s item %d %s", session.FileName(name), i, field)), nil
}

func (s *Server) addTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return toolError(err), nil
	}
	raw, err := req.RequireString("class_names")
	if err != nil {
		return toolError(err), nil
	}
	names := catalog.ParseLines(strings.ReplaceAll(raw, ",", "\n"))
	if len(names) == 0 {
		return mcp.NewToolResultError("class_names is empty"), nil
	}
	res, err := s.sess.AddTypesToCatalog(name, names)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added %d, skipped %d", res.Added, res.Skipped)), nil
}

func (s *Server) listTraders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := s.sess.ListTraderFiles()
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(strings.Join(files, "\n")), nil
}

func (s *Server) readTrader(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return toolError(err), nil
	}
	doc, err := s.sess.OpenTrader(name)
	if err != nil {
		return toolError(err), nil
	}
	data, err := catalog.Encode(doc)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) addTraderCategory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return toolError(err), nil
	}
	category, err := req.RequireString("category")
	if err != nil {
		return toolError(err), nil
	}
	if _, err := s.sess.OpenTrader(name); err != nil {
		return toolError(err), nil
	}
	added, err := s.sess.AddCategory(category)
	if err != nil {
		return toolError(err), nil
	}
	if !added {
		return mcp.NewToolResultText(fmt.Sprintf("unchanged: %s already lists %s", session.FileName(name), category)), nil
	}
	if err := s.sess.SaveTrader(); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added: %s", category)), nil
}

func (s *Server) scanDuplicates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := s.sess.ScanDuplicates()
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(dedup.Summary(rep, 10)), nil
}

func (s *Server) removeDuplicates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := s.sess.ScanDuplicates()
	if err != nil {
		return toolError(err), nil
	}
	if rep.Total() == 0 {
		return mcp.NewToolResultText("No duplicates found."), nil
	}
	res := s.sess.RemoveDuplicates(rep)
	var b strings.Builder
	fmt.Fprintf(&b, "removed %d duplicate(s), saved %d file(s)", res.Removed, res.FilesSaved)
	for _, f := range res.Failures {
		fmt.Fprintf(&b, "\nfailed: %s: %v", f.Path, f.Err)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) listTypeNames(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := req.GetString("filter", "")
	file := req.GetString("file", "")

	var (
		names []string
		err   error
	)
	if file != "" {
		names, _, err = s.sess.TypeNamesInFile(file, filter)
	} else {
		names, err = s.sess.TypeNames(filter)
	}
	if err != nil {
		return toolError(err), nil
	}
	if len(names) == 0 {
		return mcp.NewToolResultText("no type names found"), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) searchItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return toolError(err), nil
	}
	if s.idx == nil {
		return mcp.NewToolResultError("item index is not available"), nil
	}
	results, err := s.idx.Search(query, 20)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(results), nil
}

func (s *Server) filesContaining(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return toolError(err), nil
	}
	if s.idx == nil {
		return mcp.NewToolResultError("item index is not available"), nil
	}
	refs, err := s.idx.FilesContaining(key)
	if err != nil {
		return toolError(err), nil
	}
	if len(refs) == 0 {
		return mcp.NewToolResultText("no files found"), nil
	}
	lines := make([]string, len(refs))
	for i, r := range refs {
		lines[i] = fmt.Sprintf("%s/%s", r.Kind, r.Name)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getCatalogContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CatalogFormatContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     CatalogFormatContract,
		},
	}, nil
}
