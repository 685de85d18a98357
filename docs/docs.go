// Package docs registers the OpenAPI description served at /swagger/doc.json.
// Regenerate with: swag init -g cmd/policyqa/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "description": "Returns the health status of the API",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.StatusResponse"}}
                }
            }
        },
        "/ready": {
            "get": {
                "description": "Pings the vector store and the lock backend",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ReadyResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/http.ReadyResponse"}}
                }
            }
        },
        "/version": {
            "get": {
                "description": "Returns the current API version",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Get API version",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.VersionResponse"}}
                }
            }
        },
        "/run": {
            "post": {
                "description": "Indexes the document if needed and answers each question in order",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Questions"],
                "summary": "Answer questions about a policy",
                "parameters": [
                    {"description": "Document and questions", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/driving.RunRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.RunResponse"}},
                    "400": {"description": "Invalid request body", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Processing failed", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/api/v1/query": {
            "post": {
                "description": "Like /run, but returns confidence and source pages for every answer",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Questions"],
                "summary": "Answer questions with sources",
                "parameters": [
                    {"description": "Document and questions", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/driving.RunRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/driving.RunResult"}},
                    "400": {"description": "Invalid request body", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Processing failed", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/api/v1/documents": {
            "post": {
                "description": "Fetches, chunks and embeds the document unless it is already indexed",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Documents"],
                "summary": "Index a policy document",
                "parameters": [
                    {"description": "Document locator", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.IngestRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.IngestResponse"}},
                    "400": {"description": "Invalid request body", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Ingestion failed", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.AnswerResult": {
            "type": "object",
            "properties": {
                "question": {"type": "string"},
                "answer": {"type": "string"},
                "confidence": {"type": "number"},
                "low_confidence": {"type": "boolean"},
                "sources": {"type": "array", "items": {"$ref": "#/definitions/domain.Source"}}
            }
        },
        "domain.Source": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "type": {"type": "string", "enum": ["text", "table"]},
                "score": {"type": "number"}
            }
        },
        "driving.RunRequest": {
            "type": "object",
            "properties": {
                "documents": {"type": "string", "example": "https://example.com/policy.pdf"},
                "questions": {"type": "array", "items": {"type": "string"}}
            }
        },
        "driving.RunResult": {
            "type": "object",
            "properties": {
                "document_id": {"type": "string"},
                "results": {"type": "array", "items": {"$ref": "#/definitions/domain.AnswerResult"}}
            }
        },
        "http.ErrorResponse": {
            "description": "API error response",
            "type": "object",
            "properties": {"error": {"type": "string", "example": "invalid request body"}}
        },
        "http.IngestRequest": {
            "description": "Document to index",
            "type": "object",
            "properties": {"documents": {"type": "string", "example": "https://example.com/policy.pdf"}}
        },
        "http.IngestResponse": {
            "description": "Indexed document id",
            "type": "object",
            "properties": {"document_id": {"type": "string", "example": "3f2a9c01b7de"}}
        },
        "http.ReadyResponse": {
            "description": "Readiness status with per-dependency results",
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ready"},
                "checks": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "http.RunResponse": {
            "description": "Answers to the submitted questions",
            "type": "object",
            "properties": {"answers": {"type": "array", "items": {"type": "string"}}}
        },
        "http.StatusResponse": {
            "description": "Simple status response",
            "type": "object",
            "properties": {"status": {"type": "string", "example": "ok"}}
        },
        "http.VersionResponse": {
            "description": "API version response",
            "type": "object",
            "properties": {"version": {"type": "string", "example": "1.0.0"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "PolicyQA API",
	Description:      "Question answering over insurance policy documents.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
