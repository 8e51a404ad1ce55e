// Package docs holds the OpenAPI document for the read API
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
  "openapi": "3.0.3",
  "info": {
    "title": "{{.Title}}",
    "description": "{{escape .Description}}",
    "version": "{{.Version}}"
  },
  "servers": [{"url": "{{.BasePath}}"}],
  "paths": {
    "/notices": {
      "get": {
        "tags": ["Notices"],
        "summary": "List staged notices",
        "description": "Newest first. published narrows to one UTC publication day.",
        "parameters": [
          {"name": "published", "in": "query", "schema": {"type": "string", "format": "date"}},
          {"name": "limit", "in": "query", "schema": {"type": "integer", "minimum": 1, "maximum": 500, "default": 50}},
          {"name": "award", "in": "query", "schema": {"type": "boolean"}}
        ],
        "responses": {
          "200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/NoticeListEnvelope"}}}}
        }
      }
    },
    "/notices/{tbID}": {
      "get": {
        "tags": ["Notices"],
        "summary": "Get one staged notice",
        "parameters": [
          {"name": "tbID", "in": "path", "required": true, "description": "Composite id, e.g. TED|612001-2025", "schema": {"type": "string"}}
        ],
        "responses": {
          "200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/NoticeEnvelope"}}}},
          "404": {"description": "not found", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/ErrorResponse"}}}}
        }
      }
    },
    "/runs/{runID}": {
      "get": {
        "tags": ["Runs"],
        "summary": "Get an ingest run",
        "description": "The recorded summary and the count of staging rows still tagged with the run.",
        "parameters": [
          {"name": "runID", "in": "path", "required": true, "schema": {"type": "string"}}
        ],
        "responses": {
          "200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/RunEnvelope"}}}},
          "404": {"description": "not found", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/ErrorResponse"}}}}
        }
      }
    },
    "/meta/health": {
      "get": {"tags": ["Meta"], "summary": "Health check", "responses": {"200": {"description": "ok"}}}
    },
    "/meta/ready": {
      "get": {
        "tags": ["Meta"],
        "summary": "Readiness probe with dependency checks",
        "responses": {"200": {"description": "ok"}, "503": {"description": "a dependency failed"}}
      }
    },
    "/meta/version": {
      "get": {
        "tags": ["Meta"],
        "summary": "Build and version info",
        "responses": {"200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/BuildInfo"}}}}}
      }
    },
    "/meta/service": {
      "get": {"tags": ["Meta"], "summary": "Service info and uptime", "responses": {"200": {"description": "ok"}}}
    }
  },
  "components": {
    "schemas": {
      "Notice": {
        "type": "object",
        "properties": {
          "tb_id": {"type": "string", "example": "TED|612001-2025"},
          "native_id": {"type": "string", "example": "612001-2025"},
          "source": {"type": "string", "example": "TED"},
          "title": {"type": "string", "nullable": true},
          "short_description": {"type": "string", "nullable": true},
          "buyer_name": {"type": "string", "nullable": true},
          "buyer_country": {"type": "string", "nullable": true, "example": "DE"},
          "buyer_city": {"type": "string", "nullable": true},
          "buyer_street": {"type": "string", "nullable": true},
          "language": {"type": "string", "nullable": true, "example": "DE"},
          "cpv_main": {"type": "string", "nullable": true, "example": "45000000"},
          "deadline": {"type": "string", "format": "date-time", "nullable": true},
          "raw_deadline_date": {"type": "string", "nullable": true},
          "raw_deadline_time": {"type": "string", "nullable": true},
          "detail_url": {"type": "string", "nullable": true},
          "is_award": {"type": "boolean"},
          "competition_flag": {"type": "boolean"},
          "published_at": {"type": "string", "format": "date-time"},
          "run_id": {"type": "string"},
          "source_row_hash": {"type": "string"}
        }
      },
      "Page": {
        "type": "object",
        "properties": {
          "limit": {"type": "integer"},
          "returned": {"type": "integer"},
          "more": {"type": "boolean"}
        }
      },
      "Run": {
        "type": "object",
        "properties": {
          "run_id": {"type": "string"},
          "mode": {"type": "string", "example": "archive"},
          "issue": {"type": "string", "nullable": true},
          "target_date": {"type": "string", "format": "date-time", "nullable": true},
          "status": {"type": "string", "enum": ["ok", "partial", "error"]},
          "documents": {"type": "integer"},
          "eligible": {"type": "integer"},
          "written": {"type": "integer"},
          "raw_written": {"type": "integer"},
          "failed": {"type": "integer"},
          "skipped": {"type": "object", "additionalProperties": {"type": "integer"}},
          "error": {"type": "string", "nullable": true},
          "started_at": {"type": "string", "format": "date-time"},
          "finished_at": {"type": "string", "format": "date-time"},
          "rows": {"type": "integer"}
        }
      },
      "BuildInfo": {
        "type": "object",
        "properties": {
          "service": {"type": "string"},
          "version": {"type": "string"},
          "commit": {"type": "string"},
          "date": {"type": "string"},
          "go": {"type": "string"}
        }
      },
      "NoticeEnvelope": {
        "type": "object",
        "properties": {
          "status_code": {"type": "integer"},
          "status": {"type": "string"},
          "request_id": {"type": "string"},
          "data": {"$ref": "#/components/schemas/Notice"}
        }
      },
      "NoticeListEnvelope": {
        "type": "object",
        "properties": {
          "status_code": {"type": "integer"},
          "status": {"type": "string"},
          "request_id": {"type": "string"},
          "data": {
            "type": "object",
            "properties": {
              "items": {"type": "array", "items": {"$ref": "#/components/schemas/Notice"}},
              "page": {"$ref": "#/components/schemas/Page"}
            }
          }
        }
      },
      "RunEnvelope": {
        "type": "object",
        "properties": {
          "status_code": {"type": "integer"},
          "status": {"type": "string"},
          "request_id": {"type": "string"},
          "data": {"$ref": "#/components/schemas/Run"}
        }
      }
    }
  }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/api/v1",
	Title:            "TED ingest read API",
	Description:      "Read access to staged TED notices and ingest runs.",
	InfoInstanceName: "api",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
