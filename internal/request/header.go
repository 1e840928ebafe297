package request

import (
	"bytes"
	"fmt"

	"github.com/go-json-experiment/json/jsontext"
)

// Field is a single header line.
type Field struct {
	Name  string
	Value string
}

// Header is an ordered header set. Names are matched exactly, so
// "content-type" and "Content-Type" are distinct fields.
//
// The zero value is an empty header. Header never mutates in place: With
// and Without return a new Header.
type Header struct {
	fields []Field
}

// NewHeader builds a Header from alternating name/value pairs. A trailing
// name without a value is ignored.
func NewHeader(pairs ...string) Header {
	var h Header
	for i := 0; i+1 < len(pairs); i += 2 {
		h = h.With(pairs[i], pairs[i+1])
	}
	return h
}

// Len returns the number of fields.
func (h Header) Len() int { return len(h.fields) }

// Fields returns a copy of the fields in stored order.
func (h Header) Fields() []Field {
	out := make([]Field, len(h.fields))
	copy(out, h.fields)
	return out
}

// Lookup returns the value stored for name and whether it exists.
func (h Header) Lookup(name string) (string, bool) {
	if i := h.index(name); i >= 0 {
		return h.fields[i].Value, true
	}
	return "", false
}

// Get returns the value stored for name, or "" when absent.
func (h Header) Get(name string) string {
	v, _ := h.Lookup(name)
	return v
}

// With returns a copy of h with name set to value. An existing field keeps
// its position; a new field is appended.
func (h Header) With(name, value string) Header {
	out := h.Clone()
	if i := out.index(name); i >= 0 {
		out.fields[i].Value = value
		return out
	}
	out.fields = append(out.fields, Field{Name: name, Value: value})
	return out
}

// Without returns a copy of h with name removed.
func (h Header) Without(name string) Header {
	i := h.index(name)
	if i < 0 {
		return h.Clone()
	}
	out := Header{fields: make([]Field, 0, len(h.fields)-1)}
	out.fields = append(out.fields, h.fields[:i]...)
	out.fields = append(out.fields, h.fields[i+1:]...)
	return out
}

// Clone returns a deep copy of h.
func (h Header) Clone() Header {
	if h.fields == nil {
		return Header{}
	}
	return Header{fields: h.Fields()}
}

// Equal reports whether both headers hold the same fields in the same order.
func (h Header) Equal(o Header) bool {
	if len(h.fields) != len(o.fields) {
		return false
	}
	for i := range h.fields {
		if h.fields[i] != o.fields[i] {
			return false
		}
	}
	return true
}

// Map returns the header as a plain map. Order is lost.
func (h Header) Map() map[string]string {
	m := make(map[string]string, len(h.fields))
	for _, f := range h.fields {
		m[f.Name] = f.Value
	}
	return m
}

func (h Header) index(name string) int {
	for i, f := range h.fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// MarshalJSON encodes the header as a JSON object in stored order.
func (h Header) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := jsontext.NewEncoder(&buf)
	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return nil, err
	}
	for _, f := range h.fields {
		if err := enc.WriteToken(jsontext.String(f.Name)); err != nil {
			return nil, err
		}
		if err := enc.WriteToken(jsontext.String(f.Value)); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteToken(jsontext.EndObject); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes a JSON object, keeping member order. Non-string
// values are stored as their literal JSON text; null yields an empty header.
func (h *Header) UnmarshalJSON(data []byte) error {
	dec := jsontext.NewDecoder(bytes.NewReader(data))
	if dec.PeekKind() == 'n' {
		*h = Header{}
		return nil
	}
	tok, err := dec.ReadToken()
	if err != nil {
		return err
	}
	if tok.Kind() != '{' {
		return fmt.Errorf("request: headers must be a JSON object, got %v", tok.Kind())
	}

	var out Header
	for dec.PeekKind() != '}' {
		name, err := dec.ReadToken()
		if err != nil {
			return err
		}
		var value string
		if dec.PeekKind() == '"' {
			vt, err := dec.ReadToken()
			if err != nil {
				return err
			}
			value = vt.String()
		} else {
			raw, err := dec.ReadValue()
			if err != nil {
				return err
			}
			value = string(raw)
		}
		out = out.With(name.String(), value)
	}
	if _, err := dec.ReadToken(); err != nil {
		return err
	}
	*h = out
	return nil
}
