package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// member is one top-level key/value pair of a JSON object.
type member struct {
	key   string
	value json.RawMessage
}

// Extra holds the members of a loaded JSON object that the model does not
// map, plus the member order of the file, so a save writes them back in
// place. It is read-only once decoded and may be shared between clones.
type Extra struct {
	order   []string
	members map[string]json.RawMessage
}

// Keys returns the unmapped member names in file order.
func (e Extra) Keys() []string {
	var out []string
	for _, k := range e.order {
		if _, ok := e.members[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// Get returns the raw value of an unmapped member.
func (e Extra) Get(key string) (json.RawMessage, bool) {
	v, ok := e.members[key]
	return v, ok
}

func (e Extra) loaded() bool { return e.order != nil }

func (e Extra) has(key string) bool {
	for _, k := range e.order {
		if k == key {
			return true
		}
	}
	return false
}

// readObject splits a JSON object into its members in order. null yields
// a nil slice, {} an empty one.
func readObject(data []byte) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	ms := []member{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected key, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%q: %w", key, err)
		}
		ms = append(ms, member{key: key, value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return ms, nil
}

func joinObject(ms []member) []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range ms {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := marshalPlain(m.key)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(m.value)
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// truncateInts rewrites fractional or exponent numbers of the named members
// as integers, truncating toward zero. Values that are not numbers, or do
// not fit an int, are left for the decoder to reject.
func truncateInts(ms []member, keys ...string) {
	for i, m := range ms {
		if !isKey(m.key, keys) {
			continue
		}
		text := string(bytes.TrimSpace(m.value))
		if text == "" || (text[0] != '-' && (text[0] < '0' || text[0] > '9')) {
			continue
		}
		if _, err := strconv.Atoi(text); err == nil {
			continue
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			continue
		}
		f = math.Trunc(f)
		if f >= math.MaxInt64 || f < math.MinInt64 {
			continue
		}
		ms[i].value = json.RawMessage(strconv.FormatInt(int64(f), 10))
	}
}

// isKey matches the way encoding/json matches member names to fields.
func isKey(key string, keys []string) bool {
	for _, k := range keys {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

func splitExtra(ms []member, known ...string) Extra {
	e := Extra{order: make([]string, 0, len(ms))}
	for _, m := range ms {
		if !e.has(m.key) {
			e.order = append(e.order, m.key)
		}
		if isKey(m.key, known) {
			continue
		}
		if e.members == nil {
			e.members = make(map[string]json.RawMessage)
		}
		e.members[m.key] = m.value
	}
	return e
}

// marshalPlain encodes v without HTML escaping and without the encoder's
// trailing newline.
func marshalPlain(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// merge lays out the mapped members in known (an encoded object) and the
// unmapped ones in file order. Members the file did not have follow in
// struct order, except those skip reports.
func (e Extra) merge(known []byte, skip func(key string) bool) ([]byte, error) {
	ms, err := readObject(known)
	if err != nil {
		return nil, err
	}
	mapped := make(map[string]json.RawMessage, len(ms))
	for _, m := range ms {
		mapped[m.key] = m.value
	}
	out := make([]member, 0, len(ms)+len(e.members))
	for _, k := range e.order {
		if v, ok := mapped[k]; ok {
			out = append(out, member{key: k, value: v})
			delete(mapped, k)
		} else if v, ok := e.members[k]; ok {
			out = append(out, member{key: k, value: v})
		}
	}
	for _, m := range ms {
		if _, ok := mapped[m.key]; !ok {
			continue
		}
		if skip != nil && skip(m.key) {
			continue
		}
		out = append(out, m)
	}
	return joinObject(out), nil
}
