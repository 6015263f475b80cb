// Package catalog loads, edits and saves market catalog and trader
// documents.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/starford/marketeer/internal/models"
)

const indent = "    "

// DecodeCatalog parses a catalog document. Absent InitStockPercent keeps
// its default and absent sentinel item fields read as unset.
func DecodeCatalog(data []byte) (*models.CatalogDocument, error) {
	doc := models.NewCatalogDocument()
	if err := decodeObject(data, doc); err != nil {
		return nil, err
	}
	doc.Normalize()
	return doc, nil
}

// DecodeTrader parses a trader document.
func DecodeTrader(data []byte) (*models.TraderDocument, error) {
	doc := &models.TraderDocument{}
	if err := decodeObject(data, doc); err != nil {
		return nil, err
	}
	doc.Normalize()
	return doc, nil
}

// Decode parses data as a document of the given kind.
func Decode(kind models.Kind, data []byte) (models.Document, error) {
	switch kind {
	case models.KindCatalog:
		return DecodeCatalog(data)
	case models.KindTrader:
		return DecodeTrader(data)
	default:
		return nil, fmt.Errorf("unknown document kind %q", kind)
	}
}

func decodeObject(data []byte, target any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("document must be a JSON object")
	}
	return json.Unmarshal(trimmed, target)
}

// Encode serializes doc with stable field order, four-space indentation,
// unescaped non-ASCII and HTML characters, and a trailing newline.
func Encode(doc models.Document) ([]byte, error) {
	doc.Normalize()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
