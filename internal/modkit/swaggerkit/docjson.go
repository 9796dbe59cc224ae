package swaggerkit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"murmur/internal/core/version"
	docs "murmur/internal/services/api/docs"
)

// SpecMutator lets modules tweak the parsed swagger spec before it is served
type SpecMutator func(map[string]any)

// mutators is the in process registry for spec mutators
var mutators []SpecMutator

// docReader is a seam so tests can inject invalid JSON
var docReader = func() string { return docs.SwaggerInfo.ReadDoc() }

// Register adds a spec mutator for swagger JSON
// call this from module init so it is wired automatically
func Register(m SpecMutator) {
	if m != nil {
		mutators = append(mutators, m)
	}
}

// serveDocJSON serves swagger JSON and lets modules adjust details
func serveDocJSON() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := docReader()

		var spec map[string]any
		if err := json.Unmarshal([]byte(raw), &spec); err != nil {
			http.Error(w, "spec parse error", http.StatusInternalServerError)
			return
		}

		// OAS3 base url lives in servers, not BasePath
		ensureServers(spec, "/api/v1")

		stampVersion(spec)
		ensureErrorResponseDefinition(spec)
		addDefault(spec, 500, "Internal Server Error", 1, "panic recovered")
		addDefault(spec, 400, "Bad Request", 8, "field must be one of [content topic archetype notes]")

		for _, m := range mutators {
			m(spec)
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(spec)
	}
}

// ensureServers makes sure the spec is OAS3 and has a servers array
// swagger http ui can't support 3.1 at the moment, so downconvert if needed
func ensureServers(spec map[string]any, url string) {
	if _, hasSwagger := spec["swagger"]; hasSwagger {
		spec["openapi"] = "3.0.3"
		delete(spec, "swagger")
	}
	if v, ok := spec["openapi"].(string); !ok || strings.HasPrefix(v, "3.1") {
		spec["openapi"] = "3.0.3"
	}
	if _, ok := spec["servers"]; !ok {
		spec["servers"] = []any{map[string]any{"url": url}}
	}
}

// stampVersion replaces info.version with the running build
func stampVersion(spec map[string]any) {
	info, ok := spec["info"].(map[string]any)
	if !ok {
		info = map[string]any{}
		spec["info"] = info
	}
	info["version"] = version.Info().Version
}

// ensureErrorResponseDefinition creates the error envelope schema if missing
func ensureErrorResponseDefinition(spec map[string]any) {
	comps, ok := spec["components"].(map[string]any)
	if !ok {
		comps = map[string]any{}
		spec["components"] = comps
	}
	schemas, ok := comps["schemas"].(map[string]any)
	if !ok {
		schemas = map[string]any{}
		comps["schemas"] = schemas
	}
	if _, ok := schemas["ErrorResponse"]; ok {
		return
	}
	schemas["ErrorResponse"] = map[string]any{
		"type":        "object",
		"description": "Standard error response",
		"properties": map[string]any{
			"status_code": map[string]any{"type": "integer", "format": "int32"},
			"status":      map[string]any{"type": "string"},
			"code":        map[string]any{"type": "integer", "format": "int32"},
			"error":       map[string]any{"type": "string"},
			"request_id":  map[string]any{"type": "string"},
			"retry_after": map[string]any{"type": "string"},
		},
		"required": []any{"status_code", "status"},
	}
}

// eachOperation calls fn for every operation under paths with its path and method
func eachOperation(spec map[string]any, fn func(path, method string, op map[string]any)) {
	paths, ok := spec["paths"].(map[string]any)
	if !ok {
		return
	}
	for path, p := range paths {
		node, ok := p.(map[string]any)
		if !ok {
			continue
		}
		for method, opAny := range node {
			if op, ok := opAny.(map[string]any); ok {
				fn(path, method, op)
			}
		}
	}
}

// addDefault injects an error envelope response under status into every operation lacking one
func addDefault(spec map[string]any, status int, text string, code int, example string) {
	key := strconv.Itoa(status)
	resp := map[string]any{
		"description": text,
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/ErrorResponse"},
				"example": map[string]any{
					"status_code": status,
					"status":      text,
					"code":        code,
					"error":       example,
					"request_id":  "579f33bf50b1/abc-000001",
				},
			},
		},
	}
	eachOperation(spec, func(_, _ string, op map[string]any) {
		resps, ok := op["responses"].(map[string]any)
		if !ok {
			resps = map[string]any{}
			op["responses"] = resps
		}
		if _, exists := resps[key]; !exists {
			resps[key] = resp
		}
	})
}

// RequireBearer marks every operation with the given methods as bearer protected
func RequireBearer(methods ...string) SpecMutator {
	want := make(map[string]bool, len(methods))
	for _, m := range methods {
		want[strings.ToLower(m)] = true
	}
	return func(spec map[string]any) {
		eachOperation(spec, func(_, method string, op map[string]any) {
			if want[method] {
				op["security"] = []any{map[string]any{"bearer": []any{}}}
			}
		})
	}
}

// Public clears security from operations under any of the path prefixes
func Public(prefixes ...string) SpecMutator {
	return func(spec map[string]any) {
		eachOperation(spec, func(path, _ string, op map[string]any) {
			for _, p := range prefixes {
				if strings.HasPrefix(path, p) {
					delete(op, "security")
					return
				}
			}
		})
	}
}
