package testutil

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func get(t *testing.T, rawURL string, header map[string]string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", rawURL, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestTarget_Products(t *testing.T) {
	srv := NewTarget(t)

	tests := []struct {
		name       string
		id         string
		wantStatus int
		want       []string
		notWant    []string
	}{
		{"normal", "1", 200, []string{MarkerRows, "Widget"}, []string{"Gadget"}},
		{"false condition", "1 AND 1=2", 200, []string{MarkerEmpty}, nil},
		{"tautology", "1 OR 1=1", 200, []string{"Widget", "Gadget", "Gizmo"}, nil},
		{"syntax error", "1'", 500, []string{MarkerError}, nil},
		{"union", "0 UNION SELECT password FROM users", 200, []string{"s3cret", "wonderland"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := get(t, srv.URL+"/products?id="+url.QueryEscape(tt.id), nil)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			for _, w := range tt.want {
				if !strings.Contains(body, w) {
					t.Errorf("body missing %q:\n%s", w, body)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(body, w) {
					t.Errorf("body unexpectedly contains %q", w)
				}
			}
		})
	}
}

func TestTarget_Users(t *testing.T) {
	srv := NewTarget(t)
	post := func(body string) string {
		resp, err := http.Post(srv.URL+"/api/users", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return string(b)
	}

	if body := post(`{"user":{"name":"nobody"}}`); !strings.Contains(body, MarkerEmpty) {
		t.Errorf("unknown user body = %s", body)
	}
	if body := post(`{"user":{"name":"x' OR '1'='1"}}`); !strings.Contains(body, "admin") || !strings.Contains(body, "alice") {
		t.Errorf("tautology body = %s", body)
	}
}

func TestTarget_Login(t *testing.T) {
	srv := NewTarget(t)
	form := url.Values{"username": {"admin'-- "}, "password": {"wrong"}}
	resp, err := http.PostForm(srv.URL+"/login", form)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "admin") {
		t.Errorf("comment bypass did not log in:\n%s", body)
	}
}

func TestTarget_Visits(t *testing.T) {
	srv := NewTarget(t)
	_, body := get(t, srv.URL+"/visits", map[string]string{"User-Agent": "curl/8.0"})
	if !strings.Contains(body, "curl/8.0") {
		t.Errorf("body = %s", body)
	}
	status, _ := get(t, srv.URL+"/visits", map[string]string{"User-Agent": "x'"})
	if status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", status)
	}
}
