// Package docs registers the OpenAPI document served by swaggerkit
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
  "openapi": "3.0.3",
  "info": {
    "title": "{{.Title}}",
    "description": "{{escape .Description}}",
    "version": "{{.Version}}"
  },
  "paths": {
    "/meta/health": {"get": {"tags": ["meta"], "summary": "Liveness", "responses": {"200": {"description": "OK"}}}},
    "/meta/ready": {"get": {"tags": ["meta"], "summary": "Readiness of configured stores", "responses": {"200": {"description": "OK"}, "503": {"description": "Not ready"}}}},
    "/meta/version": {"get": {"tags": ["meta"], "summary": "Build information", "responses": {"200": {"description": "OK"}}}},
    "/meta/service": {"get": {"tags": ["meta"], "summary": "Service name and uptime", "responses": {"200": {"description": "OK"}}}},
    "/loops": {"get": {"tags": ["loops"], "summary": "State of every configured loop", "responses": {"200": {"description": "OK"}}}},
    "/loops/{name}": {"get": {"tags": ["loops"], "summary": "State of one loop",
      "parameters": [{"name": "name", "in": "path", "required": true, "schema": {"type": "string", "enum": ["discovery", "mentions", "targets", "content", "dispatcher"]}}],
      "responses": {"200": {"description": "OK"}, "404": {"description": "Loop not configured"}}}},
    "/approvals": {"get": {"tags": ["approvals"], "summary": "List approval items",
      "parameters": [
        {"name": "status", "in": "query", "schema": {"type": "string", "enum": ["pending", "approved", "rejected", "posted"]}},
        {"name": "limit", "in": "query", "schema": {"type": "integer"}}
      ],
      "responses": {"200": {"description": "OK"}}}},
    "/approvals/{id}": {"get": {"tags": ["approvals"], "summary": "Get one item",
      "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
      "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}},
    "/approvals/{id}/history": {"get": {"tags": ["approvals"], "summary": "Edit history, oldest first",
      "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
      "responses": {"200": {"description": "OK"}}}},
    "/approvals/{id}/approve": {"post": {"tags": ["approvals"], "summary": "Approve a pending item",
      "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
      "responses": {"200": {"description": "OK"}, "409": {"description": "Illegal transition"}}}},
    "/approvals/{id}/reject": {"post": {"tags": ["approvals"], "summary": "Reject a pending item",
      "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
      "requestBody": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/RejectRequest"}}}},
      "responses": {"200": {"description": "OK"}, "409": {"description": "Illegal transition"}}}},
    "/approvals/{id}/edit": {"post": {"tags": ["approvals"], "summary": "Edit one field",
      "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
      "requestBody": {"required": true, "content": {"application/json": {"schema": {"$ref": "#/components/schemas/EditRequest"}}}},
      "responses": {"200": {"description": "OK"}, "409": {"description": "Item not editable"}}}},
    "/posts": {"post": {"tags": ["posting"], "summary": "Submit a post action (direct mode)",
      "requestBody": {"required": true, "content": {"application/json": {"schema": {"$ref": "#/components/schemas/SubmitRequest"}}}},
      "responses": {"201": {"description": "Posted"}, "403": {"description": "Denied by safety"}, "503": {"description": "Circuit open"}}}},
    "/telemetry/counts": {"get": {"tags": ["telemetry"], "summary": "Action counts since a timestamp",
      "parameters": [{"name": "since", "in": "query", "schema": {"type": "string", "format": "date-time"}}],
      "responses": {"200": {"description": "OK"}}}},
    "/telemetry/usage": {"get": {"tags": ["telemetry"], "summary": "LLM token usage since a timestamp",
      "parameters": [{"name": "since", "in": "query", "schema": {"type": "string", "format": "date-time"}}],
      "responses": {"200": {"description": "OK"}}}},
    "/safety/usage": {"get": {"tags": ["safety"], "summary": "Safety counters of the current day and hour windows",
      "responses": {"200": {"description": "OK"}}}}
  },
  "components": {
    "securitySchemes": {"bearer": {"type": "http", "scheme": "bearer"}},
    "schemas": {
      "RejectRequest": {"type": "object", "properties": {"notes": {"type": "string"}}},
      "EditRequest": {"type": "object", "required": ["field", "value"], "properties": {
        "field": {"type": "string", "enum": ["content", "topic", "archetype", "notes"]},
        "value": {"type": "string"}}},
      "SubmitRequest": {"type": "object", "required": ["kind"], "properties": {
        "kind": {"type": "string", "enum": ["reply", "tweet", "thread"]},
        "text": {"type": "string"},
        "parts": {"type": "array", "items": {"type": "string"}},
        "target_id": {"type": "string"},
        "media": {"type": "array", "items": {"type": "string"}},
        "idempotency_key": {"type": "string"}}}
    }
  }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Title:            "murmur API",
	Description:      "Operator surface for the engagement agent: approvals, direct posting and telemetry.",
	InfoInstanceName: "api",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
