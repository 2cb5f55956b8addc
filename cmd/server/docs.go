package main

import "github.com/swaggo/swag"

// docTemplate is the OpenAPI 2.0 document served at /swagger/doc.json. It
// follows the handler annotations in handlers.go.
const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {"get": {"tags": ["system"], "summary": "Service health", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "503": {"description": "Degraded"}}}},
        "/metrics": {"get": {"tags": ["system"], "summary": "Prometheus metrics", "produces": ["text/plain"], "responses": {"200": {"description": "OK"}}}},
        "/api/questions": {"get": {"tags": ["catalog"], "summary": "Question catalog", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/api/categories": {"get": {"tags": ["catalog"], "summary": "Category taxonomy with selection minimums", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/api/datasets": {"post": {
            "tags": ["datasets"], "summary": "Score, cluster and label an uploaded survey export",
            "consumes": ["multipart/form-data"], "produces": ["application/json"],
            "parameters": [
                {"name": "file", "in": "formData", "type": "file", "required": true, "description": "CSV or XLSX export"},
                {"name": "questions", "in": "formData", "type": "string", "description": "JSON array or comma list of question ids"}
            ],
            "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid upload or selection"}, "422": {"description": "Not enough data to cluster"}, "429": {"description": "Rate limited"}}
        }},
        "/api/datasets/elbow": {"post": {
            "tags": ["datasets"], "summary": "K-means inertia for k = 1..max_k",
            "consumes": ["multipart/form-data"], "produces": ["application/json"],
            "parameters": [
                {"name": "file", "in": "formData", "type": "file", "required": true, "description": "CSV or XLSX export"},
                {"name": "questions", "in": "formData", "type": "string", "description": "JSON array or comma list of question ids"},
                {"name": "max_k", "in": "formData", "type": "integer", "description": "largest k to fit"}
            ],
            "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid upload"}}
        }},
        "/api/files/{name}": {"get": {"tags": ["datasets"], "summary": "Download an exported result file", "parameters": [{"name": "name", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}},
        "/api/models": {"get": {"tags": ["models"], "summary": "Persisted model handles, newest first", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/api/models/{name}": {"get": {"tags": ["models"], "summary": "Model summary", "parameters": [{"name": "name", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}},
        "/api/models/{name}/predict": {"post": {
            "tags": ["models"], "summary": "Classify one respondent with a persisted model",
            "consumes": ["application/json"], "produces": ["application/json"],
            "parameters": [
                {"name": "name", "in": "path", "type": "string", "required": true},
                {"name": "request", "in": "body", "required": true, "schema": {"type": "object", "properties": {"answers": {"type": "object", "additionalProperties": {"type": "string"}}}}}
            ],
            "responses": {"200": {"description": "OK"}, "400": {"description": "Incomplete answers"}, "404": {"description": "Not found"}}
        }},
        "/api/runs": {"get": {"tags": ["runs"], "summary": "Pipeline run history, newest first", "parameters": [{"name": "limit", "in": "query", "type": "integer"}], "responses": {"200": {"description": "OK"}}}},
        "/api/runs/{id}": {"get": {"tags": ["runs"], "summary": "One pipeline run", "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Survey-o-Meter API",
	Description:      "Scores personality survey exports, clusters respondents and serves the fitted models.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
