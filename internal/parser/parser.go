// Package parser extracts type names from XML type definition files.
package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/net/html/charset"
)

// Strategy names the parse tier that produced a result.
type Strategy string

const (
	StrategyStructural Strategy = "structural"
	StrategyRegex      Strategy = "regex"
)

var typeNameRe = regexp.MustCompile(`<type\s+name="([^"]+)"`)

var errNoRoot = errors.New("no root element")

// Result holds the type names of one file.
type Result struct {
	Names    []string
	Strategy Strategy
	// StructuralErr is the reason the structural parse was abandoned when
	// Strategy is StrategyRegex.
	StructuralErr error
}

// ParseOrFallback extracts the name attribute of every element. The
// structural parse is tried first; only when it fails is the raw text
// matched against `<type name="...">`. Names come back de-duplicated and
// sorted.
func ParseOrFallback(data []byte) Result {
	names, err := StructuralNames(data)
	if err == nil {
		return Result{Names: names, Strategy: StrategyStructural}
	}
	return Result{Names: RegexNames(data), Strategy: StrategyRegex, StructuralErr: err}
}

// StructuralNames walks the XML token stream and collects every
// unqualified name attribute. Encodings other than UTF-8 are decoded from
// the XML declaration.
func StructuralNames(data []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	var names []string
	sawRoot := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true
		for _, a := range start.Attr {
			if a.Name.Space == "" && a.Name.Local == "name" {
				names = append(names, a.Value)
			}
		}
	}
	if !sawRoot {
		return nil, errNoRoot
	}
	return uniqueSorted(names), nil
}

// RegexNames matches `<type name="...">` occurrences in raw text.
func RegexNames(data []byte) []string {
	var names []string
	for _, m := range typeNameRe.FindAllSubmatch(data, -1) {
		names = append(names, string(m[1]))
	}
	return uniqueSorted(names)
}

// Filter keeps names containing text, case-insensitively. Blank text
// keeps everything.
func Filter(names []string, text string) []string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return slices.Clone(names)
	}
	var out []string
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), text) {
			out = append(out, n)
		}
	}
	return out
}

func uniqueSorted(names []string) []string {
	out := slices.Clone(names)
	slices.Sort(out)
	out = slices.Compact(out)
	if out == nil {
		out = []string{}
	}
	return out
}
