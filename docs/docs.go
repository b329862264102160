// Package docs holds the generated OpenAPI description served by the Swagger
// UI route. Regenerate with:
//
//	swag init -g cmd/server/main.go -o docs
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
        "/conversation": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Conversation"],
                "summary": "Process one conversation turn",
                "operationId": "postConversation",
                "parameters": [
                    {
                        "description": "User turn payload",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.ConversationRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "Assistant reply", "schema": {"$ref": "#/definitions/services.ConversationReply"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/menu": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Menu"],
                "summary": "List available menu items",
                "operationId": "getMenu",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Filter by category (case-insensitive)",
                        "name": "category",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {"description": "Available items", "schema": {"$ref": "#/definitions/handlers.MenuResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/orders": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Orders"],
                "summary": "Track the most recent order",
                "operationId": "getLatestOrder",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Customer phone number",
                        "name": "X-Customer-Phone",
                        "in": "header",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {"description": "Order with status message", "schema": {"$ref": "#/definitions/handlers.OrderResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "No orders yet", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/orders/{number}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Orders"],
                "summary": "Track an order by number",
                "operationId": "getOrder",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Customer phone number",
                        "name": "X-Customer-Phone",
                        "in": "header",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Order number",
                        "name": "number",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {"description": "Order with status message", "schema": {"$ref": "#/definitions/handlers.OrderResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Order not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ConversationRequest": {
            "type": "object",
            "required": ["message", "phone"],
            "properties": {
                "message": {"type": "string", "example": "I'd like two cheeseburgers and a coke"},
                "phone": {"type": "string", "example": "+15550001111"},
                "session_id": {"type": "string", "format": "uuid"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "not_found"},
                "message": {"type": "string", "example": "order not found"},
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"}
            }
        },
        "handlers.MenuResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"type": "object"}},
                "total": {"type": "integer", "example": 28}
            }
        },
        "handlers.OrderResponse": {
            "type": "object",
            "properties": {
                "order": {"type": "object"},
                "message": {"type": "string", "example": "Order BRG-20260825-0042 is being prepared."}
            }
        },
        "services.ConversationReply": {
            "type": "object",
            "properties": {
                "session_id": {"type": "string"},
                "message": {"type": "string"},
                "conversation_state": {"type": "string"},
                "intent": {"type": "string"},
                "confidence": {"type": "number"},
                "draft": {"type": "object"},
                "order_number": {"type": "string"},
                "escalated": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "DineBot Ordering API",
	Description:      "Conversational quick-service ordering backend: dialogue, menu, order tracking.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
