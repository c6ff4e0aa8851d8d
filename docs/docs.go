// Package docs registers the OpenAPI description of the HTTP transport.
//
// Regenerate with: swag init -g cmd/respeecher/main.go -d .,internal/transport/http
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
        "/synthesize": {
            "post": {
                "description": "Submits the text, orders one conversion and waits for it. The response carries the\nrecording URL and, unless direct_link is set, the decoded audio as base64 WAV.\nSend \"Accept: audio/wav\" to receive the WAV bytes directly.",
                "consumes": ["application/json"],
                "produces": ["application/json", "audio/wav"],
                "tags": ["synthesis"],
                "summary": "Synthesize text with a Respeecher voice",
                "parameters": [
                    {
                        "description": "Synthesis request",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/message.SynthesisRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "Finished conversion", "schema": {"$ref": "#/definitions/message.SynthesisResult"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/message.SynthesisResult"}},
                    "404": {"description": "Unknown voice or narration style", "schema": {"$ref": "#/definitions/message.SynthesisResult"}},
                    "502": {"description": "Conversion or backend failure", "schema": {"$ref": "#/definitions/message.SynthesisResult"}},
                    "504": {"description": "Conversion still pending at the deadline", "schema": {"$ref": "#/definitions/message.SynthesisResult"}}
                }
            }
        },
        "/voices": {
            "get": {
                "description": "Returns every voice that has at least one narration style.",
                "produces": ["application/json"],
                "tags": ["voices"],
                "summary": "List voices",
                "responses": {
                    "200": {
                        "description": "Voice catalogue",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/message.VoiceInfo"}}
                    },
                    "502": {"description": "Backend failure", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "message.SynthesisRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "source": {"type": "string"},
                "text": {"type": "string"},
                "voice": {"type": "string"},
                "narration_style": {"type": "string"},
                "project": {"type": "string"},
                "folder": {"type": "string"},
                "language": {"type": "string"},
                "direct_link": {"type": "boolean"},
                "timestamp": {"type": "string"}
            }
        },
        "message.SynthesisResult": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "conversion_id": {"type": "string"},
                "url": {"type": "string"},
                "audio": {"type": "string"},
                "content_type": {"type": "string"},
                "sample_rate": {"type": "integer"},
                "duration_ms": {"type": "integer"},
                "polls": {"type": "integer"},
                "error_kind": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "message.StyleInfo": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "is_default": {"type": "boolean"}
            }
        },
        "message.VoiceInfo": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "narration_styles": {"type": "array", "items": {"$ref": "#/definitions/message.StyleInfo"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "respeecher API",
	Description:      "Text-to-speech through Respeecher voices.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
