package jsontree

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Errors returned by Set.
var (
	ErrEmptyPath      = errors.New("jsontree: empty path segment")
	ErrNotTraversable = errors.New("jsontree: node is not traversable")
)

// Path segments are separated by "." with no escaping, so a key that
// contains a literal dot cannot be addressed.
func splitPath(path string) []string {
	return strings.Split(path, ".")
}

// Lookup walks path through objects (by key) and arrays (by decimal index)
// and returns the leaf rendered as a string. ok is false when a segment is
// missing or a scalar is reached before the end of the path.
//
// A present leaf is always reported as present, including 0, false, ""
// and null. Scalars render as their JSON text without quotes, null renders
// as "", and objects or arrays render as compact JSON.
func Lookup(tree Value, path string) (value string, ok bool) {
	current := tree
	for _, seg := range splitPath(path) {
		next, found := child(current, seg)
		if !found {
			return "", false
		}
		current = next
	}
	return Stringify(current), true
}

// Get is Lookup without the presence flag: absent paths read as "".
func Get(tree Value, path string) string {
	v, _ := Lookup(tree, path)
	return v
}

// Set writes value as a JSON string at path, modifying tree in place.
//
// Missing intermediate segments, and intermediate segments holding a
// scalar, become new objects. Arrays are never created; an existing array
// is traversed by index and an out-of-range index is an error.
func Set(tree Value, path string, value string) error {
	segs := splitPath(path)
	last := segs[len(segs)-1]
	if last == "" {
		return ErrEmptyPath
	}

	current := tree
	for _, seg := range segs[:len(segs)-1] {
		next, err := descend(current, seg)
		if err != nil {
			return fmt.Errorf("%w at %q", err, path)
		}
		current = next
	}

	switch n := current.(type) {
	case *Object:
		n.Set(last, value)
		return nil
	case []Value:
		i, ok := index(n, last)
		if !ok {
			return fmt.Errorf("%w: index %q out of range at %q", ErrNotTraversable, last, path)
		}
		n[i] = value
		return nil
	default:
		return fmt.Errorf("%w: cannot set %q on %T", ErrNotTraversable, path, current)
	}
}

// descend returns the container stored under seg, creating an object when
// the slot is missing or holds a scalar.
func descend(current Value, seg string) (Value, error) {
	switch n := current.(type) {
	case *Object:
		if next, ok := n.Get(seg); ok && isContainer(next) {
			return next, nil
		}
		obj := NewObject()
		n.Set(seg, obj)
		return obj, nil
	case []Value:
		i, ok := index(n, seg)
		if !ok {
			return nil, fmt.Errorf("%w: index %q out of range", ErrNotTraversable, seg)
		}
		if isContainer(n[i]) {
			return n[i], nil
		}
		obj := NewObject()
		n[i] = obj
		return obj, nil
	default:
		return nil, ErrNotTraversable
	}
}

func child(current Value, seg string) (Value, bool) {
	switch n := current.(type) {
	case *Object:
		return n.Get(seg)
	case []Value:
		i, ok := index(n, seg)
		if !ok {
			return nil, false
		}
		return n[i], true
	default:
		return nil, false
	}
}

func index(arr []Value, seg string) (int, bool) {
	i, err := strconv.Atoi(seg)
	if err != nil || i < 0 || i >= len(arr) {
		return 0, false
	}
	return i, true
}

func isContainer(v Value) bool {
	switch v.(type) {
	case *Object, []Value:
		return true
	}
	return false
}

// Stringify renders a node the way Lookup reports it.
func Stringify(v Value) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case Number:
		return string(n)
	case bool:
		return strconv.FormatBool(n)
	default:
		s, err := Encode(v, "")
		if err != nil {
			return ""
		}
		return s
	}
}
