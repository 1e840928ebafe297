// Package testutil provides an intentionally injectable web application
// used as a send target in tests.
//
// SECURITY NOTE: the handlers build SQL by string concatenation on purpose.
// The server only listens on the loopback address httptest picks and is
// backed by a throwaway in-memory database. Values echoed into responses go
// through html/template.
package testutil

import (
	"database/sql"
	"html/template"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-json-experiment/json"
	_ "modernc.org/sqlite"
)

// Page markers tests can look for.
const (
	MarkerRows  = "Results:"
	MarkerEmpty = "No results found."
	MarkerError = "SQL error:"
)

var seed = []string{
	`CREATE TABLE products (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
	`INSERT INTO products (id, name) VALUES (1, 'Widget'), (2, 'Gadget'), (3, 'Gizmo')`,
	`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, password TEXT NOT NULL)`,
	`INSERT INTO users (id, name, password) VALUES (1, 'admin', 's3cret'), (2, 'alice', 'wonderland')`,
	`CREATE TABLE visits (agent TEXT NOT NULL)`,
	`INSERT INTO visits (agent) VALUES ('curl/8.0'), ('Mozilla/5.0')`,
}

var page = template.Must(template.New("page").Parse(
	`<html><body>{{if .Err}}<p>` + MarkerError + ` {{.Err}}</p>` +
		`{{else if .Rows}}<p>` + MarkerRows + `</p><ul>{{range .Rows}}<li>{{.}}</li>{{end}}</ul>` +
		`{{else}}<p>` + MarkerEmpty + `</p>{{end}}</body></html>`))

type target struct {
	db *sql.DB
}

// NewTarget starts the injectable application and closes it when tb ends.
//
//	GET  /products?id=N         numeric context:  ... WHERE id = N
//	POST /api/users             JSON {"user":{"name":S}}, string context
//	POST /login                 form username=S&password=S, string context
//	GET  /visits                User-Agent header, string context
func NewTarget(tb testing.TB) *httptest.Server {
	tb.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		tb.Fatalf("testutil: open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range seed {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			tb.Fatalf("testutil: seed database: %v", err)
		}
	}

	t := &target{db: db}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", t.products)
	mux.HandleFunc("POST /api/users", t.users)
	mux.HandleFunc("POST /login", t.login)
	mux.HandleFunc("GET /visits", t.visits)

	srv := httptest.NewServer(mux)
	tb.Cleanup(func() {
		srv.Close()
		db.Close()
	})
	return srv
}

func (t *target) products(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	t.render(w, "SELECT name FROM products WHERE id = "+id)
}

func (t *target) users(w http.ResponseWriter, r *http.Request) {
	var body struct {
		User struct {
			Name string `json:"name"`
		} `json:"user"`
	}
	data, _ := io.ReadAll(r.Body)
	if err := json.Unmarshal(data, &body); err != nil {
		http.Error(w, "bad JSON", http.StatusBadRequest)
		return
	}
	t.render(w, "SELECT name FROM users WHERE name = '"+body.User.Name+"'")
}

func (t *target) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	t.render(w, "SELECT name FROM users WHERE name = '"+r.PostFormValue("username")+
		"' AND password = '"+r.PostFormValue("password")+"'")
}

func (t *target) visits(w http.ResponseWriter, r *http.Request) {
	t.render(w, "SELECT agent FROM visits WHERE agent = '"+r.UserAgent()+"'")
}

// render runs query and writes its first column, or the database error
// with status 500.
func (t *target) render(w http.ResponseWriter, query string) {
	var data struct {
		Rows []string
		Err  string
	}
	status := http.StatusOK

	rows, err := t.db.Query(query)
	if err == nil {
		for rows.Next() {
			var v sql.NullString
			if err = rows.Scan(&v); err != nil {
				break
			}
			data.Rows = append(data.Rows, v.String)
		}
		if err == nil {
			err = rows.Err()
		}
		rows.Close()
	}
	if err != nil {
		data.Rows = nil
		data.Err = strings.TrimPrefix(err.Error(), "SQL logic error: ")
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	page.Execute(w, data) //nolint:errcheck
}
