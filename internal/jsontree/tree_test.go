package jsontree

import (
	"errors"
	"strings"
	"testing"
)

func mustParse(t *testing.T, text string) Value {
	t.Helper()
	v, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	return v
}

func TestParse_PreservesKeyOrder(t *testing.T) {
	v := mustParse(t, `{"zeta":1,"alpha":{"y":true,"b":null},"mid":[1,"x"]}`)
	obj, ok := v.(*Object)
	if !ok {
		t.Fatalf("root is %T, want *Object", v)
	}
	got := strings.Join(obj.Keys(), ",")
	if got != "zeta,alpha,mid" {
		t.Errorf("Keys = %s, want zeta,alpha,mid", got)
	}

	out, err := Encode(v, "")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if out != `{"zeta":1,"alpha":{"y":true,"b":null},"mid":[1,"x"]}` {
		t.Errorf("Encode = %s", out)
	}
}

func TestParse_NumbersKeepLiteral(t *testing.T) {
	v := mustParse(t, `{"price":2.50,"big":12345678901234567890,"exp":1e3}`)
	out, err := Encode(v, "")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if out != `{"price":2.50,"big":12345678901234567890,"exp":1e3}` {
		t.Errorf("Encode = %s", out)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"{",
		"{'a':1}",
		"not json",
		`{"a":1} {"b":2}`,
		`{"a":1,}`,
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			if _, err := Parse(text); err == nil {
				t.Errorf("Parse(%q) = nil error, want failure", text)
			}
		})
	}
}

func TestParse_DuplicateNamesLastWins(t *testing.T) {
	v := mustParse(t, `{"a":1,"b":2,"a":3}`)
	if got := Get(v, "a"); got != "3" {
		t.Errorf("a = %q, want 3", got)
	}
	if keys := v.(*Object).Keys(); len(keys) != 2 {
		t.Errorf("Keys = %v, want 2 entries", keys)
	}
}

func TestEncode_Indented(t *testing.T) {
	v := mustParse(t, `{"a":{"b":"c"}}`)
	out, err := Encode(v, "  ")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(out, "\n") {
		t.Errorf("indented output is single-line: %q", out)
	}
	if !strings.Contains(out, "\n    \"b\"") {
		t.Errorf("nested member not indented two levels: %q", out)
	}
	if strings.HasSuffix(out, "\n") {
		t.Error("output has trailing newline")
	}

	back := mustParse(t, out)
	if Get(back, "a.b") != "c" {
		t.Errorf("re-parsed a.b = %q, want c", Get(back, "a.b"))
	}
}

func TestEncode_NoHTMLEscaping(t *testing.T) {
	v := mustParse(t, `{"q":"' OR 1=1 <script>&"}`)
	out, err := Encode(v, "")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if out != `{"q":"' OR 1=1 <script>&"}` {
		t.Errorf("Encode = %s", out)
	}
}

func TestClone_IsDeep(t *testing.T) {
	v := mustParse(t, `{"user":{"name":"a"},"list":[{"x":"1"}]}`)
	c := Clone(v)
	if err := Set(c, "user.name", "b"); err != nil {
		t.Fatal(err)
	}
	if err := Set(c, "list.0.x", "2"); err != nil {
		t.Fatal(err)
	}
	if Get(v, "user.name") != "a" || Get(v, "list.0.x") != "1" {
		t.Error("Clone shares nodes with the original")
	}
}

func TestSet_Errors(t *testing.T) {
	tests := []struct {
		name string
		json string
		path string
		want error
	}{
		{"empty path", `{}`, "", ErrEmptyPath},
		{"trailing dot", `{}`, "a.", ErrEmptyPath},
		{"scalar root", `"str"`, "a", ErrNotTraversable},
		{"array index out of range", `[1]`, "5", ErrNotTraversable},
		{"array non numeric", `{"a":[1]}`, "a.x.y", ErrNotTraversable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Set(mustParse(t, tt.json), tt.path, "v")
			if !errors.Is(err, tt.want) {
				t.Errorf("Set(%q) = %v, want %v", tt.path, err, tt.want)
			}
		})
	}
}
