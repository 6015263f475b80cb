package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// Trader metadata field names.
const (
	FieldDisplayName              = "DisplayName"
	FieldMinRequiredReputation    = "MinRequiredReputation"
	FieldMaxRequiredReputation    = "MaxRequiredReputation"
	FieldRequiredFaction          = "RequiredFaction"
	FieldRequiredCompletedQuestID = "RequiredCompletedQuestID"
	FieldTraderIcon               = "TraderIcon"
)

var traderKeys = []string{
	FieldDisplayName,
	FieldMinRequiredReputation,
	FieldMaxRequiredReputation,
	FieldRequiredFaction,
	FieldRequiredCompletedQuestID,
	FieldTraderIcon,
	"Categories",
	"Items",
}

var traderIntKeys = []string{
	FieldMinRequiredReputation,
	FieldMaxRequiredReputation,
	FieldRequiredCompletedQuestID,
}

// TraderFields lists the trader metadata fields in form order.
var TraderFields = []string{
	FieldDisplayName,
	FieldMinRequiredReputation,
	FieldMaxRequiredReputation,
	FieldRequiredFaction,
	FieldRequiredCompletedQuestID,
	FieldTraderIcon,
}

// TraderDocument is one trader file.
type TraderDocument struct {
	DisplayName              string      `json:"DisplayName"`
	MinRequiredReputation    int         `json:"MinRequiredReputation"`
	MaxRequiredReputation    int         `json:"MaxRequiredReputation"`
	RequiredFaction          string      `json:"RequiredFaction"`
	RequiredCompletedQuestID int         `json:"RequiredCompletedQuestID"`
	TraderIcon               string      `json:"TraderIcon"`
	Categories               []string    `json:"Categories"`
	Items                    TraderItems `json:"Items"`

	extra Extra
}

// Extra returns the members of the file that the trader does not map.
func (d *TraderDocument) Extra() Extra { return d.extra }

// UnmarshalJSON decodes over the current values, truncating fractional
// integer fields and keeping unmapped members for the next save.
func (d *TraderDocument) UnmarshalJSON(data []byte) error {
	ms, err := readObject(data)
	if err != nil || ms == nil {
		return err
	}
	truncateInts(ms, traderIntKeys...)
	type plain TraderDocument
	p := plain(*d)
	if err := json.Unmarshal(joinObject(ms), &p); err != nil {
		return err
	}
	*d = TraderDocument(p)
	d.extra = splitExtra(ms, traderKeys...)
	return nil
}

// MarshalJSON writes the mapped fields and the kept members in file order.
// A loaded file without Items only gains the member once it has entries.
func (d TraderDocument) MarshalJSON() ([]byte, error) {
	type plain TraderDocument
	known, err := marshalPlain(plain(d))
	if err != nil {
		return nil, err
	}
	return d.extra.merge(known, func(key string) bool {
		return key == "Items" && len(d.Items) == 0 && d.extra.loaded()
	})
}

// Kind implements Document.
func (d *TraderDocument) Kind() Kind { return KindTrader }

// Keys returns the category names in order.
func (d *TraderDocument) Keys() []string {
	return slices.Clone(d.Categories)
}

// RemoveAt deletes the category at index i.
func (d *TraderDocument) RemoveAt(i int) error {
	if i < 0 || i >= len(d.Categories) {
		return fmt.Errorf("category index %d out of range [0,%d)", i, len(d.Categories))
	}
	d.Categories = slices.Delete(d.Categories, i, i+1)
	return nil
}

// HasCategory reports whether name is already listed.
func (d *TraderDocument) HasCategory(name string) bool {
	return slices.Contains(d.Categories, name)
}

// Clone returns a deep copy.
func (d *TraderDocument) Clone() *TraderDocument {
	c := *d
	c.Categories = slices.Clone(d.Categories)
	c.Items = slices.Clone(d.Items)
	return &c
}

// Normalize replaces nil slices with empty ones.
func (d *TraderDocument) Normalize() {
	if d.Categories == nil {
		d.Categories = []string{}
	}
	if d.Items == nil {
		d.Items = TraderItems{}
	}
}

type overrideKind uint8

const (
	overrideNumber overrideKind = iota
	overrideText
	overrideRaw
)

// Override is a per-item trader value: an integer or a string.
type Override struct {
	kind   overrideKind
	number int
	text   string
	raw    json.RawMessage
}

// IntOverride returns a numeric override.
func IntOverride(n int) Override { return Override{kind: overrideNumber, number: n} }

// TextOverride returns a string override.
func TextOverride(s string) Override { return Override{kind: overrideText, text: s} }

// ParseOverride stores text as an int when it parses as one, otherwise as a string.
func ParseOverride(text string) Override {
	if n, err := strconv.Atoi(text); err == nil {
		return IntOverride(n)
	}
	return TextOverride(text)
}

// Int returns the numeric value and whether the override is numeric.
func (o Override) Int() (int, bool) { return o.number, o.kind == overrideNumber }

// String renders the override the way the line editor shows it.
func (o Override) String() string {
	switch o.kind {
	case overrideNumber:
		return strconv.Itoa(o.number)
	case overrideText:
		return o.text
	default:
		return string(o.raw)
	}
}

// MarshalJSON implements json.Marshaler.
func (o Override) MarshalJSON() ([]byte, error) {
	switch o.kind {
	case overrideNumber:
		return []byte(strconv.Itoa(o.number)), nil
	case overrideText:
		return json.Marshal(o.text)
	default:
		if len(o.raw) == 0 {
			return []byte("null"), nil
		}
		return o.raw, nil
	}
}

// UnmarshalJSON implements json.Unmarshaler. Values that are neither
// integers nor strings are kept verbatim.
func (o *Override) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = TextOverride(s)
		return nil
	}
	if n, err := strconv.Atoi(string(data)); err == nil {
		*o = IntOverride(n)
		return nil
	}
	if !json.Valid(data) {
		return fmt.Errorf("override: invalid value %q", data)
	}
	*o = Override{kind: overrideRaw, raw: slices.Clone(json.RawMessage(data))}
	return nil
}

// TraderItem is one entry of the sparse override map.
type TraderItem struct {
	ClassName string
	Value     Override
}

// TraderItems is an insertion-ordered className -> Override map encoded as
// a JSON object.
type TraderItems []TraderItem

// Get returns the override for className.
func (t TraderItems) Get(className string) (Override, bool) {
	for _, it := range t {
		if it.ClassName == className {
			return it.Value, true
		}
	}
	return Override{}, false
}

// Set replaces an existing entry in place or appends a new one.
func (t *TraderItems) Set(className string, v Override) {
	for i := range *t {
		if (*t)[i].ClassName == className {
			(*t)[i].Value = v
			return
		}
	}
	*t = append(*t, TraderItem{ClassName: className, Value: v})
}

// MarshalJSON implements json.Marshaler.
func (t TraderItems) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, it := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalPlain(it.ClassName)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := it.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, preserving key order. A
// repeated key keeps its first position and its last value.
func (t *TraderItems) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*t = TraderItems{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("trader items: expected object, got %v", tok)
	}
	out := TraderItems{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("trader items: expected key, got %v", keyTok)
		}
		var v Override
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("trader items %q: %w", key, err)
		}
		out.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*t = out
	return nil
}
