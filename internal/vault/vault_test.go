package vault

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

const kvBody = `{"data":{"data":{"csrf":"s3cret","n":1},"metadata":{"version":1,"created_time":"2025-01-01T00:00:00Z","deletion_time":"","destroyed":false}}}`

func fakeVault(t *testing.T) (*Client, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "root" {
			http.Error(w, `{"errors":["permission denied"]}`, http.StatusForbidden)
			return
		}
		if r.URL.Path != "/v1/secret/data/web" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(kvBody))
	}))
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), zap.NewNop().Sugar(),
		WithAddress(srv.URL), WithToken("root"), WithoutRenewal())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, &hits
}

func TestParseRef(t *testing.T) {
	cases := []struct {
		in        string
		path, key string
		ok        bool
	}{
		{"vault:secret/web#csrf", "secret/web", "csrf", true},
		{"vault:kv/apps/web#a#b", "kv/apps/web#a", "b", true},
		{"vault:secret/web", "", "", false},
		{"vault:secret#key", "", "", false},
		{"vault:secret/web#", "", "", false},
		{"plain", "", "", false},
	}
	for _, tc := range cases {
		p, k, err := ParseRef(tc.in)
		if (err == nil) != tc.ok {
			t.Errorf("ParseRef(%q) err = %v, want ok=%v", tc.in, err, tc.ok)
			continue
		}
		if p != tc.path || k != tc.key {
			t.Errorf("ParseRef(%q) = %q, %q", tc.in, p, k)
		}
	}
}

func TestResolve_ReadsAndCaches(t *testing.T) {
	c, hits := fakeVault(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		v, err := c.Resolve(ctx, "vault:secret/web#csrf")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if v != "s3cret" {
			t.Fatalf("Resolve = %q", v)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("vault hit %d times, want 1", n)
	}
}

func TestGetKV_NoTTLAlwaysFetches(t *testing.T) {
	c, hits := fakeVault(t)
	for i := 0; i < 2; i++ {
		if _, err := c.GetKV(context.Background(), "secret/web", "csrf", 0); err != nil {
			t.Fatal(err)
		}
	}
	if n := hits.Load(); n != 2 {
		t.Fatalf("hits = %d, want 2", n)
	}
}

func TestGetKV_Errors(t *testing.T) {
	c, _ := fakeVault(t)
	ctx := context.Background()

	if _, err := c.GetKV(ctx, "secret/web", "missing", time.Minute); err == nil {
		t.Error("missing key accepted")
	}
	if _, err := c.GetKV(ctx, "secret/web", "n", time.Minute); err == nil {
		t.Error("non-string value accepted")
	}
	if _, err := c.GetKV(ctx, "", "x", 0); err == nil {
		t.Error("empty path accepted")
	}
	if _, err := c.Resolve(ctx, "secret/web#csrf"); err == nil {
		t.Error("non-reference accepted")
	}
}
