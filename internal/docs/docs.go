// Package docs holds the OpenAPI document served at /swagger/doc.json.
// Regenerate from the handler annotations with:
//
//	swag init -g cmd/wromgpt/docs.go -o internal/docs --outputTypes go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "wromgpt maintainers"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["meta"],
                "summary": "Service metadata",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.InfoResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "description": "Always 200; the body reports whether the model is loaded.",
                "produces": ["application/json"],
                "tags": ["meta"],
                "summary": "Model readiness",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}}
                }
            }
        },
        "/api/chat": {
            "post": {
                "description": "Prefixes the message with the system instructions (or custom_instructions) and generates a reply.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["chat"],
                "summary": "Chat with instruction injection",
                "parameters": [
                    {"description": "Chat request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.ChatRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ChatResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/instructions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["instructions"],
                "summary": "Current system instructions",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.InstructionsResponse"}}
                }
            },
            "post": {
                "description": "Replaces the instructions injected into every chat prompt. Not persisted across restarts.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["instructions"],
                "summary": "Replace system instructions",
                "parameters": [
                    {"description": "New instructions", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.InstructionsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.InstructionsUpdateResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.ChatRequest": {
            "type": "object",
            "required": ["message"],
            "properties": {
                "message": {"type": "string", "example": "What is Python?"},
                "max_length": {"type": "integer", "example": 200},
                "temperature": {"type": "number", "example": 0.7},
                "custom_instructions": {"type": "string", "example": "You are a Python programming expert. Be concise and technical."}
            }
        },
        "types.ChatResponse": {
            "type": "object",
            "properties": {
                "response": {"type": "string", "example": "Python is a high-level programming language."},
                "model_used": {"type": "string", "example": "gpt2"}
            }
        },
        "types.InstructionsRequest": {
            "type": "object",
            "required": ["instructions"],
            "properties": {
                "instructions": {"type": "string"}
            }
        },
        "types.InstructionsResponse": {
            "type": "object",
            "properties": {
                "instructions": {"type": "string"}
            }
        },
        "types.InstructionsUpdateResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "success"},
                "message": {"type": "string", "example": "System instructions updated"},
                "instructions": {"type": "string"}
            }
        },
        "types.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "healthy"},
                "model_loaded": {"type": "boolean", "example": true},
                "model_name": {"type": "string", "example": "gpt2"}
            }
        },
        "types.InfoResponse": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "WromGPT API"},
                "version": {"type": "string", "example": "1.0.0"},
                "status": {"type": "string", "example": "running"},
                "model": {"type": "string", "example": "gpt2"},
                "endpoints": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "Model not loaded"},
                "code": {"type": "integer", "example": 503}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "WromGPT API",
	Description:      "GPT model with instruction injection capabilities",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
