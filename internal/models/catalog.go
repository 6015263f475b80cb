// Package models defines the document types edited by Marketeer.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Kind discriminates the two editable JSON document families.
type Kind string

const (
	KindCatalog Kind = "catalog"
	KindTrader  Kind = "trader"
)

// Item field names as they appear on disk and in forms.
const (
	FieldClassName         = "ClassName"
	FieldMaxPriceThreshold = "MaxPriceThreshold"
	FieldMinPriceThreshold = "MinPriceThreshold"
	FieldSellPricePercent  = "SellPricePercent"
	FieldMaxStockThreshold = "MaxStockThreshold"
	FieldMinStockThreshold = "MinStockThreshold"
	FieldQuantityPercent   = "QuantityPercent"
	FieldSpawnAttachments  = "SpawnAttachments"
	FieldVariants          = "Variants"
)

var itemKeys = []string{
	FieldClassName,
	FieldMaxPriceThreshold,
	FieldMinPriceThreshold,
	FieldSellPricePercent,
	FieldMaxStockThreshold,
	FieldMinStockThreshold,
	FieldQuantityPercent,
	FieldSpawnAttachments,
	FieldVariants,
}

var itemIntKeys = []string{
	FieldMaxPriceThreshold,
	FieldMinPriceThreshold,
	FieldMaxStockThreshold,
	FieldMinStockThreshold,
	FieldQuantityPercent,
}

var catalogKeys = []string{"DisplayName", "Icon", "Color", "IsExchange", "InitStockPercent", "Items"}

// ItemFields lists the scalar item fields in form order.
var ItemFields = []string{
	FieldClassName,
	FieldMaxPriceThreshold,
	FieldMinPriceThreshold,
	FieldSellPricePercent,
	FieldMaxStockThreshold,
	FieldMinStockThreshold,
	FieldQuantityPercent,
}

// Sentinel values for "unset" item fields.
const (
	UnsetSellPricePercent = -1.0
	UnsetQuantityPercent  = -1
	DefaultInitStock      = 75.0
)

// Flag is a boolean stored as 0/1 on disk.
type Flag bool

// MarshalJSON writes 1 or 0.
func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

// UnmarshalJSON accepts numbers and JSON booleans.
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true":
		*f = true
		return nil
	case "false", "null":
		*f = false
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flag: %w", err)
	}
	*f = n != 0
	return nil
}

// CatalogDocument is one market catalog file.
type CatalogDocument struct {
	DisplayName      string       `json:"DisplayName"`
	Icon             string       `json:"Icon"`
	Color            string       `json:"Color"`
	IsExchange       Flag         `json:"IsExchange"`
	InitStockPercent float64      `json:"InitStockPercent"`
	Items            []ItemRecord `json:"Items"`

	extra Extra
}

// NewCatalogDocument returns an empty catalog carrying load-time defaults.
func NewCatalogDocument() *CatalogDocument {
	return &CatalogDocument{
		InitStockPercent: DefaultInitStock,
		Items:            []ItemRecord{},
	}
}

// Extra returns the members of the file that the catalog does not map.
func (d *CatalogDocument) Extra() Extra { return d.extra }

// UnmarshalJSON decodes over the current values, keeping unmapped members
// for the next save.
func (d *CatalogDocument) UnmarshalJSON(data []byte) error {
	ms, err := readObject(data)
	if err != nil || ms == nil {
		return err
	}
	type plain CatalogDocument
	p := plain(*d)
	if err := json.Unmarshal(joinObject(ms), &p); err != nil {
		return err
	}
	*d = CatalogDocument(p)
	d.extra = splitExtra(ms, catalogKeys...)
	return nil
}

// MarshalJSON writes the mapped fields and the kept members in file order.
func (d CatalogDocument) MarshalJSON() ([]byte, error) {
	type plain CatalogDocument
	known, err := marshalPlain(plain(d))
	if err != nil {
		return nil, err
	}
	return d.extra.merge(known, nil)
}

// Kind implements Document.
func (d *CatalogDocument) Kind() Kind { return KindCatalog }

// Keys returns the item class names in order.
func (d *CatalogDocument) Keys() []string {
	keys := make([]string, len(d.Items))
	for i, it := range d.Items {
		keys[i] = it.ClassName
	}
	return keys
}

// RemoveAt deletes the item at index i.
func (d *CatalogDocument) RemoveAt(i int) error {
	if i < 0 || i >= len(d.Items) {
		return fmt.Errorf("item index %d out of range [0,%d)", i, len(d.Items))
	}
	d.Items = slices.Delete(d.Items, i, i+1)
	return nil
}

// ClassNames returns the set of class names present in the catalog.
func (d *CatalogDocument) ClassNames() map[string]struct{} {
	out := make(map[string]struct{}, len(d.Items))
	for _, it := range d.Items {
		out[it.ClassName] = struct{}{}
	}
	return out
}

// Clone returns a deep copy sharing no slices with d.
func (d *CatalogDocument) Clone() *CatalogDocument {
	c := *d
	c.Items = make([]ItemRecord, len(d.Items))
	for i, it := range d.Items {
		c.Items[i] = it.Clone()
	}
	return &c
}

// Normalize upper-cases Color and replaces nil slices with empty ones so
// they encode as [].
func (d *CatalogDocument) Normalize() {
	d.Color = strings.ToUpper(strings.TrimSpace(d.Color))
	if d.Items == nil {
		d.Items = []ItemRecord{}
	}
	for i := range d.Items {
		d.Items[i].normalize()
	}
}

// ItemRecord is one purchasable entry in a catalog.
type ItemRecord struct {
	ClassName         string   `json:"ClassName"`
	MaxPriceThreshold int      `json:"MaxPriceThreshold"`
	MinPriceThreshold int      `json:"MinPriceThreshold"`
	SellPricePercent  float64  `json:"SellPricePercent"`
	MaxStockThreshold int      `json:"MaxStockThreshold"`
	MinStockThreshold int      `json:"MinStockThreshold"`
	QuantityPercent   int      `json:"QuantityPercent"`
	SpawnAttachments  []string `json:"SpawnAttachments"`
	Variants          []string `json:"Variants"`

	extra Extra
}

// NewItem returns a template item for className with fresh arrays.
func NewItem(className string) ItemRecord {
	return ItemRecord{
		ClassName:         className,
		MaxPriceThreshold: 1000,
		MinPriceThreshold: 500,
		SellPricePercent:  UnsetSellPricePercent,
		MaxStockThreshold: 500,
		MinStockThreshold: 1,
		QuantityPercent:   UnsetQuantityPercent,
		SpawnAttachments:  []string{},
		Variants:          []string{},
	}
}

// UnmarshalJSON fills absent sentinel fields with their unset values and
// truncates fractional integer fields, as a float-to-int cast would.
func (r *ItemRecord) UnmarshalJSON(data []byte) error {
	ms, err := readObject(data)
	if err != nil {
		return err
	}
	truncateInts(ms, itemIntKeys...)
	type plain ItemRecord
	p := plain{
		SellPricePercent: UnsetSellPricePercent,
		QuantityPercent:  UnsetQuantityPercent,
	}
	if ms != nil {
		if err := json.Unmarshal(joinObject(ms), &p); err != nil {
			return err
		}
		p.extra = splitExtra(ms, itemKeys...)
	}
	*r = ItemRecord(p)
	r.normalize()
	return nil
}

// MarshalJSON writes the mapped fields and the kept members in file order.
func (r ItemRecord) MarshalJSON() ([]byte, error) {
	type plain ItemRecord
	known, err := marshalPlain(plain(r))
	if err != nil {
		return nil, err
	}
	return r.extra.merge(known, nil)
}

// Extra returns the members of the item that the record does not map.
func (r ItemRecord) Extra() Extra { return r.extra }

// Clone returns a copy with its own array fields.
func (r ItemRecord) Clone() ItemRecord {
	r.SpawnAttachments = append([]string{}, r.SpawnAttachments...)
	r.Variants = append([]string{}, r.Variants...)
	return r
}

func (r *ItemRecord) normalize() {
	if r.SpawnAttachments == nil {
		r.SpawnAttachments = []string{}
	}
	if r.Variants == nil {
		r.Variants = []string{}
	}
}
