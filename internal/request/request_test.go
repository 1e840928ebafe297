package request

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestHeader_WithKeepsPosition(t *testing.T) {
	h := NewHeader("A", "1", "B", "2")
	h2 := h.With("A", "9").With("C", "3")

	want := []Field{{"A", "9"}, {"B", "2"}, {"C", "3"}}
	got := h2.Fields()
	if len(got) != len(want) {
		t.Fatalf("fields = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fields[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	// Original is untouched.
	if h.Get("A") != "1" || h.Len() != 2 {
		t.Errorf("original header mutated: %v", h.Fields())
	}
}

func TestHeader_Without(t *testing.T) {
	h := NewHeader("A", "1", "B", "2", "C", "3")
	got := h.Without("B")
	if got.Len() != 2 {
		t.Fatalf("Len = %d, want 2", got.Len())
	}
	if _, ok := got.Lookup("B"); ok {
		t.Error("B still present")
	}
	if h.Len() != 3 {
		t.Error("original header mutated")
	}
}

func TestHeader_LookupIsCaseSensitive(t *testing.T) {
	h := NewHeader("Content-Type", "text/plain")
	if _, ok := h.Lookup("content-type"); ok {
		t.Error("Lookup should be case-sensitive")
	}
	if v, ok := h.Lookup("Content-Type"); !ok || v != "text/plain" {
		t.Errorf("Lookup = (%q, %v), want (text/plain, true)", v, ok)
	}
}

func TestHeader_JSONPreservesOrder(t *testing.T) {
	h := NewHeader("Zeta", "1", "Alpha", "2")
	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"Zeta":"1","Alpha":"2"}` {
		t.Errorf("Marshal = %s", data)
	}

	var back Header
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !back.Equal(h) {
		t.Errorf("Unmarshal = %v, want %v", back.Fields(), h.Fields())
	}
}

func TestHTTPRequest_JSON(t *testing.T) {
	in := `{"method":"GET","url":"https://example.com/?id=1","headers":{"B":"2","A":1},"body":""}`
	var r HTTPRequest
	if err := json.Unmarshal([]byte(in), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	fields := r.Header.Fields()
	if len(fields) != 2 || fields[0].Name != "B" || fields[1] != (Field{"A", "1"}) {
		t.Errorf("headers = %v", fields)
	}
}

func TestHTTPRequest_CloneIsIndependent(t *testing.T) {
	r := Default()
	c := r.Clone()
	c.Header = c.Header.With("User-Agent", "changed")
	c.URL = "https://changed.example.com/"
	if r.Header.Get("User-Agent") == "changed" || r.URL == c.URL {
		t.Error("Clone shares state with original")
	}
	if !r.Equal(Default()) {
		t.Error("original request changed")
	}
}

func TestHTTPRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     HTTPRequest
		wantErr error
		ok      bool
	}{
		{"valid", Default(), nil, true},
		{"missing method", HTTPRequest{URL: "https://example.com/"}, ErrMissingMethod, false},
		{"missing url", HTTPRequest{Method: "GET"}, ErrMissingURL, false},
		{"relative url", HTTPRequest{Method: "GET", URL: "/x"}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.ok {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
