package jsontree

import "testing"

const userDoc = `{
  "user": {
    "name": "alice",
    "id": 0,
    "active": false,
    "nickname": "",
    "manager": null,
    "address": {"city": "Paris"},
    "tags": ["a", "b"]
  },
  "total": 12.5
}`

func TestLookup(t *testing.T) {
	tree := mustParse(t, userDoc)
	tests := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{"user.name", "alice", true},
		{"user.address.city", "Paris", true},
		{"user.id", "0", true},
		{"user.active", "false", true},
		{"user.nickname", "", true},
		{"user.manager", "", true},
		{"user.tags.1", "b", true},
		{"user.tags", `["a","b"]`, true},
		{"user.address", `{"city":"Paris"}`, true},
		{"total", "12.5", true},
		{"user.missing", "", false},
		{"user.name.first", "", false},
		{"user.tags.9", "", false},
		{"user.tags.x", "", false},
		{"nope.deeper", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := Lookup(tree, tt.path)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Lookup(%q) = (%q, %v), want (%q, %v)", tt.path, got, ok, tt.want, tt.wantOK)
			}
			if g := Get(tree, tt.path); g != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.path, g, tt.want)
			}
		})
	}
}

func TestSet_OverwritesLeaf(t *testing.T) {
	tree := mustParse(t, userDoc)
	if err := Set(tree, "user.address.city", "Lyon"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := Get(tree, "user.address.city"); got != "Lyon" {
		t.Errorf("city = %q, want Lyon", got)
	}
	// Order of the touched object is unchanged.
	keys := tree.(*Object).Keys()
	if keys[0] != "user" || keys[1] != "total" {
		t.Errorf("root keys = %v", keys)
	}
}

func TestSet_NumberBecomesString(t *testing.T) {
	tree := mustParse(t, `{"id":1}`)
	if err := Set(tree, "id", "1' OR '1'='1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	out, err := Encode(tree, "")
	if err != nil {
		t.Fatal(err)
	}
	if out != `{"id":"1' OR '1'='1"}` {
		t.Errorf("Encode = %s", out)
	}
}

func TestSet_CreatesIntermediateObjects(t *testing.T) {
	tree := mustParse(t, `{"a":1}`)
	if err := Set(tree, "x.y.z", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	out, err := Encode(tree, "")
	if err != nil {
		t.Fatal(err)
	}
	if out != `{"a":1,"x":{"y":{"z":"v"}}}` {
		t.Errorf("Encode = %s", out)
	}
}

func TestSet_ReplacesScalarIntermediate(t *testing.T) {
	tree := mustParse(t, `{"a":"text","b":0}`)
	if err := Set(tree, "a.c", "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := Set(tree, "b.d", "2"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	out, _ := Encode(tree, "")
	if out != `{"a":{"c":"1"},"b":{"d":"2"}}` {
		t.Errorf("Encode = %s", out)
	}
}

func TestSet_TraversesExistingArrays(t *testing.T) {
	tree := mustParse(t, `{"items":[{"sku":"a"},{"sku":"b"}]}`)
	if err := Set(tree, "items.1.sku", "z"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := Get(tree, "items.1.sku"); got != "z" {
		t.Errorf("items.1.sku = %q, want z", got)
	}
	if got := Get(tree, "items.0.sku"); got != "a" {
		t.Errorf("items.0.sku = %q, want a", got)
	}
}

func TestSet_ArrayRootByIndex(t *testing.T) {
	tree := mustParse(t, `["a","b"]`)
	if err := Set(tree, "0", "z"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	out, _ := Encode(tree, "")
	if out != `["z","b"]` {
		t.Errorf("Encode = %s", out)
	}
}
