// Package tamper rewrites payload text before it is applied, to get past
// filters that match on literal SQL syntax. Tampers compose into a Chain
// that runs them in order.
package tamper

import (
	"fmt"
	"slices"
	"strings"

	"github.com/0x6d61/sqlistudio/internal/payload"
)

// Tamper transforms payload text.
type Tamper interface {
	// Name returns the short identifier used on the command line.
	Name() string
	// Apply returns the transformed text.
	Apply(s string) string
}

// funcTamper adapts a plain function to Tamper.
type funcTamper struct {
	name string
	fn   func(string) string
}

func (t funcTamper) Name() string          { return t.name }
func (t funcTamper) Apply(s string) string { return t.fn(s) }

var registry = map[string]Tamper{}

func register(name string, fn func(string) string) {
	registry[name] = funcTamper{name: name, fn: fn}
}

// Lookup returns the tamper registered under name (case-insensitive).
func Lookup(name string) (Tamper, bool) {
	t, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Names returns every registered tamper name, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Chain applies tampers in order.
type Chain []Tamper

// Parse builds a chain from a comma-separated list such as
// "space2comment,uppercase". An empty list yields an empty chain.
func Parse(list string) (Chain, error) {
	var chain Chain
	for _, name := range strings.Split(list, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		t, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown tamper %q (available: %s)", strings.TrimSpace(name), strings.Join(Names(), ", "))
		}
		chain = append(chain, t)
	}
	return chain, nil
}

// Apply runs each tamper in order.
func (c Chain) Apply(s string) string {
	for _, t := range c {
		s = t.Apply(s)
	}
	return s
}

// String returns the chain in the form Parse accepts.
func (c Chain) String() string {
	names := make([]string, len(c))
	for i, t := range c {
		names[i] = t.Name()
	}
	return strings.Join(names, ",")
}

// Suggestion returns a copy of s with the chain applied to its payload.
func (c Chain) Suggestion(s payload.Suggestion) payload.Suggestion {
	if len(c) == 0 {
		return s
	}
	s.Payload = c.Apply(s.Payload)
	if s.Source != "" {
		s.Source += "+" + c.String()
	} else {
		s.Source = c.String()
	}
	return s
}
