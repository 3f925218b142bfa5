// Package docs registers the panel server's OpenAPI document with swag.
// Regenerate with: swag init -g cmd/main.go
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
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}}
            }
        },
        "/auth/sign-in": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Sign in",
                "parameters": [{"name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SignInRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.SignInResult"}},
                    "202": {"description": "New password required", "schema": {"$ref": "#/definitions/service.SignInResult"}},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/auth/new-password": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Answer the new-password challenge",
                "parameters": [{"name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.NewPasswordRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.SignInResult"}},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/auth/sign-out": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Sign out",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/v1/server/status": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["server"],
                "summary": "Query server status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gameserver_panel.ServerStatus"}},
                    "401": {"description": "Unauthorized"},
                    "502": {"description": "Control API failure"}
                }
            }
        },
        "/api/v1/server/last": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["server"],
                "summary": "Last status seen by the session",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/v1/server/action": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["server"],
                "summary": "Submit an action",
                "parameters": [{"name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/gameserver_panel.ActionRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.DispatchResult"}},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"},
                    "502": {"description": "Control API failure"}
                }
            }
        },
        "/api/v1/server/poll": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["server"],
                "summary": "Current poll state",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/v1/server/poll/cancel": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["server"],
                "summary": "Cancel the active poll",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/v1/events": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "List session events",
                "parameters": [
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"},
                    {"type": "string", "name": "type", "in": "query"}
                ],
                "responses": {"200": {"description": "count, events"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/ws": {
            "get": {
                "tags": ["events"],
                "summary": "Session event stream",
                "parameters": [
                    {"type": "string", "name": "token", "in": "query", "required": true},
                    {"type": "string", "name": "interval", "in": "query"},
                    {"type": "integer", "name": "interval_ms", "in": "query"}
                ],
                "responses": {"101": {"description": "Switching Protocols"}, "401": {"description": "Unauthorized"}}
            }
        }
    },
    "definitions": {
        "gameserver_panel.ActionRequest": {
            "type": "object",
            "properties": {"action": {"type": "string", "example": "start"}}
        },
        "gameserver_panel.ServerStatus": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ON"},
                "message": {"type": "string"},
                "public_ip": {"type": "string"},
                "port": {"type": "integer"},
                "password": {"type": "string"}
            }
        },
        "handlers.SignInRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "provider": {"type": "string"},
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "handlers.NewPasswordRequest": {
            "type": "object",
            "required": ["challenge_token", "new_password"],
            "properties": {
                "challenge_token": {"type": "string"},
                "new_password": {"type": "string"}
            }
        },
        "service.SignInResult": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "challenge_token": {"type": "string"},
                "challenge": {"type": "string"},
                "required_attributes": {"type": "array", "items": {"type": "string"}},
                "expires_at": {"type": "string"}
            }
        },
        "service.DispatchResult": {
            "type": "object",
            "properties": {
                "status": {"$ref": "#/definitions/gameserver_panel.ServerStatus"},
                "polling": {"type": "boolean"},
                "target": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Game Server Panel API",
	Description:      "Sign in, start/stop the game server and follow its status.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
