// Package swaggerkit mounts Swagger UI and serves the OpenAPI document
package swaggerkit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"tedingest/internal/core/version"
	docs "tedingest/internal/services/api/docs"
)

// docReader is a seam so tests can inject invalid JSON
var docReader = func() string { return docs.SwaggerInfo.ReadDoc() }

var errorSchema = map[string]any{
	"type":        "object",
	"description": "Error envelope written by httpkit for every failed request",
	"properties": map[string]any{
		"status_code": map[string]any{"type": "integer", "format": "int32"},
		"status":      map[string]any{"type": "string"},
		"code":        map[string]any{"type": "integer", "format": "int32"},
		"error":       map[string]any{"type": "string"},
		"field":       map[string]any{"type": "string"},
		"request_id":  map[string]any{"type": "string"},
	},
	"required": []any{"status_code", "status"},
}

// defaultResponse describes one error status added to operations that lack it
type defaultResponse struct {
	status  int
	applies func(path string, op map[string]any) bool
	example map[string]any
}

var defaults = []defaultResponse{
	{
		status:  http.StatusBadRequest,
		applies: func(_ string, op map[string]any) bool { return op["parameters"] != nil },
		example: map[string]any{"status_code": 400, "status": "Bad Request", "code": 6, "field": "limit", "error": "limit must be at most 500"},
	},
	{
		status:  http.StatusNotFound,
		applies: func(path string, _ map[string]any) bool { return strings.Contains(path, "{") },
		example: map[string]any{"status_code": 404, "status": "Not Found", "code": 8, "error": "notice TED|1-2025 not found"},
	},
	{
		status:  http.StatusInternalServerError,
		applies: func(string, map[string]any) bool { return true },
		example: map[string]any{"status_code": 500, "status": "Internal Server Error", "code": 1, "error": "panic recovered"},
	},
}

// serveDocJSON serves the registered document with build info and the
// shared error responses filled in
func serveDocJSON() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var spec map[string]any
		if err := json.Unmarshal([]byte(docReader()), &spec); err != nil {
			http.Error(w, "spec parse error", http.StatusInternalServerError)
			return
		}

		if _, ok := spec["servers"]; !ok {
			spec["servers"] = []any{map[string]any{"url": docs.SwaggerInfo.BasePath}}
		}
		if info, ok := spec["info"].(map[string]any); ok {
			info["x-build"] = version.For("ted-api")
		}
		withErrorResponses(spec)

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(spec)
	}
}

func withErrorResponses(spec map[string]any) {
	comps, _ := spec["components"].(map[string]any)
	if comps == nil {
		comps = map[string]any{}
		spec["components"] = comps
	}
	schemas, _ := comps["schemas"].(map[string]any)
	if schemas == nil {
		schemas = map[string]any{}
		comps["schemas"] = schemas
	}
	if _, ok := schemas["ErrorResponse"]; !ok {
		schemas["ErrorResponse"] = errorSchema
	}

	paths, _ := spec["paths"].(map[string]any)
	for path, node := range paths {
		ops, _ := node.(map[string]any)
		for _, o := range ops {
			op, ok := o.(map[string]any)
			if !ok {
				continue
			}
			resps, _ := op["responses"].(map[string]any)
			if resps == nil {
				resps = map[string]any{}
				op["responses"] = resps
			}
			for _, d := range defaults {
				key := strconv.Itoa(d.status)
				if _, exists := resps[key]; exists || !d.applies(path, op) {
					continue
				}
				resps[key] = map[string]any{
					"description": http.StatusText(d.status),
					"content": map[string]any{
						"application/json": map[string]any{
							"schema":  map[string]any{"$ref": "#/components/schemas/ErrorResponse"},
							"example": d.example,
						},
					},
				}
			}
		}
	}
}
