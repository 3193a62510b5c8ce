package view

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/yanizio/mieszkaniownik/internal/auth"
	"github.com/yanizio/mieszkaniownik/internal/requestinfo"
	"github.com/yanizio/mieszkaniownik/internal/session"
)

var compFS = fstest.MapFS{
	"templates/hello.html":  {Data: []byte(`{{ define "content" }}<p>Cześć {{ .Data }}</p>{{ end }}`)},
	"templates/broken.html": {Data: []byte(`{{ define "content" }}{{ .Data.Missing.Field }}{{ end }}`)},
}

func newReq() *http.Request { return httptest.NewRequest(http.MethodGet, "/", nil) }

func TestRender_LayoutFlashesAndStatus(t *testing.T) {
	e := New(0)
	p := NewPage(newReq(), []session.Flash{{Kind: session.FlashError, Message: "Błąd: coś"}})
	p.Head.SetTitle("Edycja")
	p.Data = "<świecie>"

	rec := httptest.NewRecorder()
	if err := e.Render(rec, http.StatusUnprocessableEntity, "demo", compFS, "hello", p); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`<title>Edycja · Mieszkaniownik</title>`,
		`<div class="flash flash-error" role="alert">Błąd: coś</div>`,
		`<p>Cześć &lt;świecie&gt;</p>`,
		`href="/static/app.css"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q\n%s", want, body)
		}
	}
	if strings.Contains(body, `action="/logout"`) {
		t.Error("logout form shown to anonymous visitor")
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRender_UserAndDevice(t *testing.T) {
	r := newReq()
	ctx := auth.WithUser(r.Context(), auth.User{ID: "u1", Email: "ola@example.com"})
	ctx = requestinfo.WithInfo(ctx, &requestinfo.Info{UA: requestinfo.UA{Device: "Mobile"}})
	r = r.WithContext(ctx)

	p := NewPage(r, nil)
	p.CSRF = "tok"
	rec := httptest.NewRecorder()
	if err := New(4).Render(rec, http.StatusOK, "demo", compFS, "hello", p); err != nil {
		t.Fatalf("Render: %v", err)
	}
	body := rec.Body.String()
	for _, want := range []string{`ola@example.com`, `action="/logout"`, `value="tok"`, `data-device="Mobile"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestRender_ExecuteErrorIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	p := NewPage(newReq(), nil)
	p.Data = 42
	if err := New(0).Render(rec, http.StatusOK, "demo", compFS, "broken", p); err == nil {
		t.Fatal("expected execute error")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "<main>") {
		t.Error("partial page leaked")
	}
}

func TestRender_MissingTemplate(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := New(0).Render(rec, http.StatusOK, "demo", compFS, "nope", NewPage(newReq(), nil)); err == nil {
		t.Fatal("expected lookup error")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRender_OverrideDirWins(t *testing.T) {
	dir := t.TempDir()
	tplDir := filepath.Join(dir, "components", "demo", "templates")
	if err := os.MkdirAll(tplDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tplDir, "hello.html"),
		[]byte(`{{ define "content" }}<p>nadpisane</p>{{ end }}`), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	e := New(0, WithOverrideDir(dir))
	if err := e.Render(rec, http.StatusOK, "demo", compFS, "hello", NewPage(newReq(), nil)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "nadpisane") {
		t.Fatalf("override not used:\n%s", rec.Body.String())
	}
}

func TestRender_CachesParsedSets(t *testing.T) {
	fsys := fstest.MapFS{"templates/x.html": {Data: []byte(`{{ define "content" }}v1{{ end }}`)}}
	e := New(0)
	rec := httptest.NewRecorder()
	_ = e.Render(rec, http.StatusOK, "demo", fsys, "x", NewPage(newReq(), nil))

	fsys["templates/x.html"] = &fstest.MapFile{Data: []byte(`{{ define "content" }}v2{{ end }}`)}
	rec = httptest.NewRecorder()
	_ = e.Render(rec, http.StatusOK, "demo", fsys, "x", NewPage(newReq(), nil))
	if !strings.Contains(rec.Body.String(), "v1") {
		t.Fatal("cached set not reused")
	}

	nc := New(0, WithoutCache())
	rec = httptest.NewRecorder()
	_ = nc.Render(rec, http.StatusOK, "demo", fsys, "x", NewPage(newReq(), nil))
	if !strings.Contains(rec.Body.String(), "v2") {
		t.Fatal("WithoutCache still served a stale set")
	}
}

func TestDict(t *testing.T) {
	m := dict("a", 1, "b", "x", "dangling")
	if len(m) != 2 || m["a"] != 1 || m["b"] != "x" {
		t.Fatalf("dict = %v", m)
	}
}
