package swaggerkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	phttp "murmur/internal/platform/net/http"
	kit "murmur/internal/platform/testkit"

	"github.com/go-chi/chi/v5"
)

func fetchSpec(t *testing.T) map[string]any {
	t.Helper()
	m := chi.NewRouter()
	Mount(phttp.AdaptChi(m), true)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/docs/doc.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	var spec map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &spec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return spec
}

func TestDocJSONIsDecorated(t *testing.T) {
	kit.Serial(t)
	spec := fetchSpec(t)

	if spec["openapi"] != "3.0.3" {
		t.Fatalf("openapi = %v", spec["openapi"])
	}
	servers := spec["servers"].([]any)
	if servers[0].(map[string]any)["url"] != "/api/v1" {
		t.Fatalf("servers = %v", servers)
	}
	op := spec["paths"].(map[string]any)["/posts"].(map[string]any)["post"].(map[string]any)
	resps := op["responses"].(map[string]any)
	if _, ok := resps["500"]; !ok {
		t.Fatalf("500 response not injected")
	}
	if _, ok := resps["400"]; !ok {
		t.Fatalf("400 response not injected")
	}
	if v := spec["info"].(map[string]any)["version"]; v == "" || v == nil {
		t.Fatalf("info.version not stamped")
	}
}

func TestRequireBearerMutator(t *testing.T) {
	kit.Serial(t)
	kit.Swap(t, &mutators, []SpecMutator{RequireBearer("POST")})

	spec := fetchSpec(t)
	paths := spec["paths"].(map[string]any)
	post := paths["/posts"].(map[string]any)["post"].(map[string]any)
	if _, ok := post["security"]; !ok {
		t.Fatalf("POST should be secured")
	}
	get := paths["/approvals"].(map[string]any)["get"].(map[string]any)
	if _, ok := get["security"]; ok {
		t.Fatalf("GET should stay open")
	}
}

func TestPublicClearsSecurity(t *testing.T) {
	kit.Serial(t)
	kit.Swap(t, &mutators, []SpecMutator{RequireBearer("get", "post"), Public("/meta")})

	paths := fetchSpec(t)["paths"].(map[string]any)
	health := paths["/meta/health"].(map[string]any)["get"].(map[string]any)
	if _, ok := health["security"]; ok {
		t.Fatalf("meta should be public")
	}
	loops := paths["/loops"].(map[string]any)["get"].(map[string]any)
	if _, ok := loops["security"]; !ok {
		t.Fatalf("loops should be secured")
	}
}

func TestInvalidDocIs500(t *testing.T) {
	kit.Serial(t)
	kit.Swap(t, &docReader, func() string { return "{" })

	m := chi.NewRouter()
	Mount(phttp.AdaptChi(m), true)
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/docs/doc.json", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMountRoutes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		enabled  bool
		path     string
		wantCode int
		wantLoc  string
	}{
		{"root redirects to ui", true, DocsRoot, http.StatusPermanentRedirect, DocsRoot + "/"},
		{"ui served", true, DocsRoot + "/index.html", http.StatusOK, ""},
		{"disabled mounts nothing", false, DocsRoot + "/doc.json", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := chi.NewRouter()
			Mount(phttp.AdaptChi(m), tt.enabled)
			rec := httptest.NewRecorder()
			m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := rec.Header().Get("Location"); got != tt.wantLoc {
				t.Fatalf("location = %q, want %q", got, tt.wantLoc)
			}
		})
	}
}
