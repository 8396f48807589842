package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "ClaimFlow Backend",
    "description": "API for appealing rejected insurance claims: submission, automated validation and agent decisions",
    "version": "1.0"
  },
  "basePath": "/",
  "paths": {
    "/api/dashboard": {"get": {"tags": ["dashboard"], "summary": "Dashboard counts", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
    "/api/claims": {"get": {"tags": ["claims"], "summary": "List rejected claims", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
    "/api/claims/{id}": {"get": {"tags": ["claims"], "summary": "Claim details", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
    "/api/appeals": {
      "get": {"tags": ["appeals"], "summary": "List appeals", "parameters": [{"name": "view", "in": "query", "type": "string", "enum": ["all", "in-progress", "decided"]}], "responses": {"200": {"description": "OK"}}},
      "post": {"tags": ["appeals"], "summary": "Submit an appeal", "consumes": ["application/json"], "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}}
    },
    "/api/appeals/{id}": {"get": {"tags": ["appeals"], "summary": "Appeal review", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
    "/api/appeals/{id}/validate": {"post": {"tags": ["appeals"], "summary": "Run automated validation", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
    "/api/appeals/{id}/decision": {"post": {"tags": ["appeals"], "summary": "Record an agent decision", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
    "/api/appeals/{id}/confirm": {"post": {"tags": ["appeals"], "summary": "Confirm an automated outcome", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
    "/api/documents/presign": {"post": {"tags": ["documents"], "summary": "Presign a supporting document upload", "responses": {"200": {"description": "OK"}, "503": {"description": "Uploads disabled"}}}},
    "/api/process": {"post": {"tags": ["process"], "summary": "Validate every pending appeal", "responses": {"200": {"description": "OK"}}}},
    "/api/admin/reset": {"post": {"tags": ["admin"], "summary": "Reset storage to sample data", "responses": {"200": {"description": "OK"}}}}
  }
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
