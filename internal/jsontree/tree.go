// Package jsontree decodes JSON into an order-preserving tree and reads or
// writes values inside it with dotted paths such as "user.address.city".
//
// Node types:
//   - *Object   JSON object, members kept in document order
//   - []Value   JSON array
//   - string    JSON string
//   - Number    JSON number, kept as its literal text
//   - bool      JSON true / false
//   - nil       JSON null
package jsontree

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-json-experiment/json/jsontext"
)

// Value is any node of a decoded tree.
type Value = any

// Number is a JSON number in its original literal form ("1", "2.50", "1e3").
type Number string

// Object is a JSON object that remembers member order.
type Object struct {
	keys    []string
	members map[string]Value
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{members: make(map[string]Value)}
}

// Get returns the member stored under key.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.members[key]
	return v, ok
}

// Set stores v under key. A new key is appended; an existing key keeps
// its position.
func (o *Object) Set(key string, v Value) {
	if _, ok := o.members[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.members[key] = v
}

// Keys returns member names in document order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of members.
func (o *Object) Len() int { return len(o.keys) }

// Parse decodes text into a tree. Duplicate member names are accepted and
// the last one wins, keeping the first position.
func Parse(text string) (Value, error) {
	dec := jsontext.NewDecoder(strings.NewReader(text), jsontext.AllowDuplicateNames(true))
	v, err := decodeValue(dec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("jsontree: unexpected end of JSON input")
		}
		return nil, fmt.Errorf("jsontree: %w", err)
	}
	if _, err := dec.ReadToken(); err != io.EOF {
		if err == nil {
			return nil, errors.New("jsontree: unexpected data after top-level value")
		}
		return nil, fmt.Errorf("jsontree: %w", err)
	}
	return v, nil
}

func decodeValue(dec *jsontext.Decoder) (Value, error) {
	switch dec.PeekKind() {
	case '{':
		if _, err := dec.ReadToken(); err != nil {
			return nil, err
		}
		obj := NewObject()
		for dec.PeekKind() != '}' {
			name, err := dec.ReadToken()
			if err != nil {
				return nil, err
			}
			member, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj.Set(name.String(), member)
		}
		if _, err := dec.ReadToken(); err != nil {
			return nil, err
		}
		return obj, nil

	case '[':
		if _, err := dec.ReadToken(); err != nil {
			return nil, err
		}
		arr := []Value{}
		for dec.PeekKind() != ']' {
			elem, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		if _, err := dec.ReadToken(); err != nil {
			return nil, err
		}
		return arr, nil

	case '0':
		raw, err := dec.ReadValue()
		if err != nil {
			return nil, err
		}
		return Number(raw), nil
	}

	tok, err := dec.ReadToken()
	if err != nil {
		return nil, err
	}
	switch tok.Kind() {
	case '"':
		return tok.String(), nil
	case 't':
		return true, nil
	case 'f':
		return false, nil
	case 'n':
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok.Kind())
}

// Encode serializes v. A non-empty indent produces multi-line output with
// that indent per level; members are written in stored order.
func Encode(v Value, indent string) (string, error) {
	var buf bytes.Buffer
	var opts []jsontext.Options
	if indent != "" {
		opts = append(opts, jsontext.WithIndent(indent))
	}
	enc := jsontext.NewEncoder(&buf, opts...)
	if err := encodeValue(enc, v); err != nil {
		return "", fmt.Errorf("jsontree: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func encodeValue(enc *jsontext.Encoder, v Value) error {
	switch n := v.(type) {
	case *Object:
		if err := enc.WriteToken(jsontext.BeginObject); err != nil {
			return err
		}
		for _, k := range n.keys {
			if err := enc.WriteToken(jsontext.String(k)); err != nil {
				return err
			}
			if err := encodeValue(enc, n.members[k]); err != nil {
				return err
			}
		}
		return enc.WriteToken(jsontext.EndObject)
	case []Value:
		if err := enc.WriteToken(jsontext.BeginArray); err != nil {
			return err
		}
		for _, elem := range n {
			if err := encodeValue(enc, elem); err != nil {
				return err
			}
		}
		return enc.WriteToken(jsontext.EndArray)
	case string:
		return enc.WriteToken(jsontext.String(n))
	case Number:
		return enc.WriteValue(jsontext.Value(n))
	case bool:
		return enc.WriteToken(jsontext.Bool(n))
	case nil:
		return enc.WriteToken(jsontext.Null)
	default:
		return fmt.Errorf("unsupported node type %T", v)
	}
}

// Clone returns a deep copy of v.
func Clone(v Value) Value {
	switch n := v.(type) {
	case *Object:
		out := &Object{
			keys:    make([]string, len(n.keys)),
			members: make(map[string]Value, len(n.members)),
		}
		copy(out.keys, n.keys)
		for k, m := range n.members {
			out.members[k] = Clone(m)
		}
		return out
	case []Value:
		out := make([]Value, len(n))
		for i, elem := range n {
			out[i] = Clone(elem)
		}
		return out
	default:
		return v
	}
}
