// Package swaggerkit serves the murmur operator API reference: the decorated
// OpenAPI document and the Swagger UI that browses it
package swaggerkit

import (
	"net/http"

	phttp "murmur/internal/platform/net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// DocsRoot is where the operator API reference lives
const DocsRoot = "/api/docs"

// Mount exposes the reference when enabled. The UI keeps the operator bearer
// token across reloads so approval and loop calls can be tried in place
func Mount(r phttp.Router, enabled bool) {
	if !enabled {
		return
	}
	r.Get(DocsRoot, func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, DocsRoot+"/", http.StatusPermanentRedirect)
	})
	r.Get(DocsRoot+"/doc.json", serveDocJSON())
	r.Handle(DocsRoot+"/*", httpSwagger.Handler(
		httpSwagger.InstanceName("api"),
		httpSwagger.URL(DocsRoot+"/doc.json"),
		httpSwagger.PersistAuthorization(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DeepLinking(true),
	))
}
