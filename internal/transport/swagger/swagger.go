// Package swagger serves the OpenAPI document and the Swagger UI that reads it.
package swagger

import (
	"net/http"

	"github.com/go-chi/chi"
	httpSwagger "github.com/swaggo/http-swagger"
)

const DocumentPath = "/openapi.yml"

// Mount registers the raw document at DocumentPath and the UI under /swagger/.
// An empty specPath mounts nothing.
func Mount(r chi.Router, specPath string) {
	if specPath == "" {
		return
	}
	r.Get(DocumentPath, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		http.ServeFile(w, req, specPath)
	})
	r.Handle("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(DocumentPath),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
	))
}
