package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
)

type fakeSheets struct {
	mu       sync.Mutex
	titles   []string
	appended map[string][][]interface{}
	gets     int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v4/spreadsheets/book-1"):
		f.gets++
		var sheets []map[string]any
		for i, t := range f.titles {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t, "index": i}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})

	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		if r.URL.Query().Get("valueInputOption") != "RAW" {
			http.Error(w, `{"error":{"code":400,"message":"valueInputOption"}}`, http.StatusBadRequest)
			return
		}
		rng := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/book-1/values/"), ":append")
		body, _ := io.ReadAll(r.Body)
		var vr struct {
			Values [][]interface{} `json:"values"`
		}
		_ = json.Unmarshal(body, &vr)
		f.appended[rng] = append(f.appended[rng], vr.Values...)
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "book-1"})

	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/files"):
		if !strings.Contains(r.URL.Query().Get("q"), "name = 'FinanzasBot'") {
			_ = json.NewEncoder(w).Encode(map[string]any{"files": []any{}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"files": []any{map[string]any{"id": "book-1", "name": "FinanzasBot"}}})

	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"not found"}}`))
	}
}

func newTestOpener(t *testing.T, f *fakeSheets) *Opener {
	return newTestOpenerWith(t, f, Config{SpreadsheetID: "book-1"})
}

func newTestOpenerWith(t *testing.T, f *fakeSheets, cfg Config) *Opener {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	o, err := NewOpener(cfg,
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestBook_TabsAndAppend(t *testing.T) {
	f := &fakeSheets{titles: []string{"Notas", "Registros"}, appended: map[string][][]interface{}{}}
	o := newTestOpener(t, f)
	ctx := context.Background()

	b, err := o.Open(ctx)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	tabs, err := b.Tabs(ctx)
	if err != nil {
		t.Fatalf("Tabs: %v", err)
	}
	if len(tabs) != 2 || tabs[0] != "Notas" || tabs[1] != "Registros" {
		t.Errorf("tabs = %v", tabs)
	}

	if err := b.AppendRow(ctx, "Registros", []string{"2026-01-01 10:00:00", "gasto", "280000"}); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.appended["'Registros'"]
	if len(rows) != 1 || rows[0][2] != "280000" {
		t.Errorf("appended = %v", f.appended)
	}
}

func TestOpener_ServiceIsShared(t *testing.T) {
	f := &fakeSheets{titles: []string{"Notas"}, appended: map[string][][]interface{}{}}
	o := newTestOpener(t, f)

	b1, _ := o.Open(context.Background())
	b2, _ := o.Open(context.Background())
	if b1.(*book).svc != b2.(*book).svc {
		t.Error("expected the Sheets service to be created once and shared")
	}
}

func TestOpener_ResolvesByName(t *testing.T) {
	f := &fakeSheets{titles: []string{"Notas", "Registros"}, appended: map[string][][]interface{}{}}
	o := newTestOpenerWith(t, f, Config{Name: "FinanzasBot"})

	b, err := o.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if b.(*book).id != "book-1" {
		t.Errorf("resolved id = %q, want book-1", b.(*book).id)
	}
}

func TestOpener_NameNotFound(t *testing.T) {
	f := &fakeSheets{appended: map[string][][]interface{}{}}
	o := newTestOpenerWith(t, f, Config{Name: "Otra"})

	if _, err := o.Open(context.Background()); err == nil {
		t.Error("expected error for unknown spreadsheet name")
	}
}

func TestNewOpener_RequiresIDOrName(t *testing.T) {
	if _, err := NewOpener(Config{}); err == nil {
		t.Error("expected error without id or name")
	}
}

func TestOpen_MissingCredentialsFile(t *testing.T) {
	o, _ := NewOpener(Config{SpreadsheetID: "x", CredentialsFile: "/nonexistent/key.json"})
	if _, err := o.Open(context.Background()); err == nil {
		t.Error("expected error for missing credentials file")
	}
}

func TestQuoteRange(t *testing.T) {
	if got := quoteRange("Registros"); got != "'Registros'" {
		t.Errorf("got %q", got)
	}
	if got := quoteRange("Año's"); got != "'Año''s'" {
		t.Errorf("got %q", got)
	}
}
