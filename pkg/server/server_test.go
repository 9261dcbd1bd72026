package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/flowc/pkg/cache"
	"github.com/matzehuels/flowc/pkg/config"
	"github.com/matzehuels/flowc/pkg/lockfile"
	"github.com/matzehuels/flowc/pkg/observability"
	"github.com/matzehuels/flowc/pkg/sdk"
	"github.com/matzehuels/flowc/pkg/session"
)

const projectFile = `
[settings]
output_directory = "bundled"

[[platforms]]
name = "web"
description = "Browser flows"

  [[platforms.flows]]
  name = "Checkout"
  alias = "checkout"
  path = "flows/checkout.lua"

  [[platforms.flows]]
  name = "Login"
  alias = "login"
  minSdkVersion = "3"
  path = "flows/login.lua"

  [[platforms.flows]]
  name = "Signup"
  alias = "signup"
  path = "flows/signup.lua"

  [[platforms.flows]]
  name = "Refund"
  alias = "refund"
  path = "flows/refund.lua"
`

type fixture struct {
	srv      *Server
	project  *config.Config
	cache    *cache.MemoryCache
	sessions *session.MemoryStore
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	dir := t.TempDir()
	project, err := config.Parse([]byte(projectFile), dir)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := os.MkdirAll(project.OutputDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	// refund has no bundle on disk
	for _, alias := range []string{"checkout", "login", "signup"} {
		writeBundle(t, project, alias, "return '"+alias+"'")
	}

	mc, err := cache.NewMemoryCache(16)
	if err != nil {
		t.Fatal(err)
	}
	sessions := session.NewMemoryStore()

	opts.Project = project
	opts.Cache = mc
	opts.Sessions = sessions
	if opts.Versions == nil {
		opts.Versions = lockfile.NewMemoryStore(lockfile.Versions{
			"checkout": sdk.Between(16, 30),
			"login":    sdk.AtLeast(1),
		})
	}
	return &fixture{srv: New(opts), project: project, cache: mc, sessions: sessions}
}

func writeBundle(t *testing.T, project *config.Config, alias, script string) {
	t.Helper()
	if err := os.WriteFile(project.BundlePath(alias), []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) do(t *testing.T, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != "healthy" {
		t.Errorf("body = %q", got)
	}
}

func TestFlow(t *testing.T) {
	f := newFixture(t, Options{})

	tests := []struct {
		name   string
		target string
		status int
		want   FlowResponse
		err    string
	}{
		{
			name:   "versions from store",
			target: "/v2/flows?name=checkout",
			status: http.StatusOK,
			want:   FlowResponse{Name: "checkout", MinSdk: "16", MaxSdk: "30", Script: "return 'checkout'"},
		},
		{
			name:   "config minimum wins",
			target: "/v2/flows?name=login",
			status: http.StatusOK,
			want:   FlowResponse{Name: "login", MinSdk: "3", Script: "return 'login'"},
		},
		{
			name:   "default minimum",
			target: "/v2/flows?name=signup",
			status: http.StatusOK,
			want:   FlowResponse{Name: "signup", MinSdk: "1", Script: "return 'signup'"},
		},
		{name: "unknown alias", target: "/v2/flows?name=nope", status: http.StatusNotFound, err: "Flow not found"},
		{name: "missing bundle", target: "/v2/flows?name=refund", status: http.StatusInternalServerError, err: "Script file not found"},
		{name: "missing name", target: "/v2/flows", status: http.StatusBadRequest, err: "Missing flow name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.target, nil)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			if tt.err != "" {
				body := decode[map[string]string](t, rec)
				if body["error"] != tt.err {
					t.Errorf("error = %q, want %q", body["error"], tt.err)
				}
				return
			}
			if got := decode[FlowResponse](t, rec); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFlowOmitsUnboundedMax(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.do(t, http.MethodGet, "/v2/flows?name=login", nil)
	if strings.Contains(rec.Body.String(), "maxSdk") {
		t.Errorf("body %s should not mention maxSdk", rec.Body.String())
	}
}

func TestFlowCachedByBundleHash(t *testing.T) {
	store := lockfile.NewMemoryStore(lockfile.Versions{"checkout": sdk.AtLeast(16)})
	f := newFixture(t, Options{Versions: store})

	first := decode[FlowResponse](t, f.do(t, http.MethodGet, "/v2/flows?name=checkout", nil))
	again := decode[FlowResponse](t, f.do(t, http.MethodGet, "/v2/flows?name=checkout", nil))
	if again != first {
		t.Errorf("repeated response changed: %+v vs %+v", again, first)
	}
	if f.cache.Len() != 1 {
		t.Fatalf("cache entries = %d, want 1", f.cache.Len())
	}

	writeBundle(t, f.project, "checkout", "return 'checkout v2'")
	rebundled := decode[FlowResponse](t, f.do(t, http.MethodGet, "/v2/flows?name=checkout", nil))
	if rebundled.Script != "return 'checkout v2'" || rebundled.MinSdk != "16" {
		t.Errorf("after rebundle got %+v", rebundled)
	}
	if f.cache.Len() != 2 {
		t.Errorf("cache entries = %d, want 2", f.cache.Len())
	}
}

func TestFlowReflectsUpdatedVersions(t *testing.T) {
	store := lockfile.NewMemoryStore(lockfile.Versions{"checkout": sdk.Between(16, 30)})
	f := newFixture(t, Options{Versions: store})

	before := decode[FlowResponse](t, f.do(t, http.MethodGet, "/v2/flows?name=checkout", nil))
	if before.MinSdk != "16" || before.MaxSdk != "30" {
		t.Fatalf("before update got %+v", before)
	}

	// Same bundle, new lock contents.
	if err := store.Save(context.Background(), lockfile.Versions{"checkout": sdk.AtLeast(22)}); err != nil {
		t.Fatal(err)
	}
	after := decode[FlowResponse](t, f.do(t, http.MethodGet, "/v2/flows?name=checkout", nil))
	if after.MinSdk != "22" || after.MaxSdk != "" {
		t.Errorf("after update got min=%q max=%q, want min=22 and no max", after.MinSdk, after.MaxSdk)
	}
	if after.Script != before.Script {
		t.Errorf("script changed: %q vs %q", after.Script, before.Script)
	}
}

func TestSessions(t *testing.T) {
	f := newFixture(t, Options{})

	rec := f.do(t, http.MethodPost, "/sessions", http.Header{APIKeyHeader: {"key-42"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	created := decode[session.Session](t, rec)
	if created.ID == "" || created.APIKeyID != "key-42" || created.CreatedAt.IsZero() {
		t.Fatalf("created = %+v", created)
	}
	if f.sessions.Len() != 1 {
		t.Errorf("stored sessions = %d", f.sessions.Len())
	}

	rec = f.do(t, http.MethodGet, "/sessions/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if got := decode[session.Session](t, rec); got.ID != created.ID {
		t.Errorf("got id %q, want %q", got.ID, created.ID)
	}

	rec = f.do(t, http.MethodGet, "/sessions/unknown", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown session status = %d", rec.Code)
	}

	anon := decode[session.Session](t, f.do(t, http.MethodPost, "/sessions", nil))
	if anon.APIKeyID != session.DefaultAPIKeyID {
		t.Errorf("APIKeyID = %q", anon.APIKeyID)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t, Options{})
	if rec := f.do(t, http.MethodPost, "/health", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	defer observability.Reset()
	metrics := observability.NewPrometheus(prometheus.NewRegistry())
	observability.SetServerHooks(metrics)

	f := newFixture(t, Options{Metrics: metrics})
	f.do(t, http.MethodGet, "/health", nil)
	f.do(t, http.MethodGet, "/v2/flows?name=nope", nil)

	if got := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("GET", "/health", "200")); got != 1 {
		t.Errorf("health requests = %v", got)
	}
	if got := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("GET", "/v2/flows", "404")); got != 1 {
		t.Errorf("flow 404s = %v", got)
	}
	if got := testutil.ToFloat64(metrics.RequestsInFlight); got != 0 {
		t.Errorf("in flight = %v", got)
	}

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "flowc_http_requests_total") {
		t.Error("metrics output lacks flowc_http_requests_total")
	}
}

func TestMetricsUnmatchedRoute(t *testing.T) {
	defer observability.Reset()
	metrics := observability.NewPrometheus(prometheus.NewRegistry())
	observability.SetServerHooks(metrics)

	f := newFixture(t, Options{Metrics: metrics})
	for _, target := range []string{"/nope", "/nope/again", "/v3/flows?name=checkout"} {
		if rec := f.do(t, http.MethodGet, target, nil); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", target, rec.Code)
		}
	}

	if got := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("GET", UnmatchedRoute, "404")); got != 3 {
		t.Errorf("unmatched requests = %v, want 3", got)
	}
	if got := testutil.CollectAndCount(metrics.RequestsTotal); got != 1 {
		t.Errorf("request series = %d, want 1", got)
	}
}

func TestDefaultVersionsStore(t *testing.T) {
	f := newFixture(t, Options{})
	dir := f.project.Dir()
	srv := New(Options{Project: f.project})
	data, err := lockfile.MarshalVersions(lockfile.Versions{"signup": sdk.Between(4, 9)})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, lockfile.VersionsFile), data, 0o644); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v2/flows?name=signup", nil))
	got := decode[FlowResponse](t, rec)
	if got.MinSdk != "4" || got.MaxSdk != "9" {
		t.Errorf("got %+v", got)
	}
}
