// Package docs registers the OpenAPI description of the storefront API with swag.
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
        "/cart": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Cart"],
                "summary": "View the cart",
                "responses": {
                    "200": {"description": "Current cart", "schema": {"$ref": "#/definitions/models.CartSnapshot"}},
                    "400": {"description": "Missing session", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Cart"],
                "summary": "Empty the cart",
                "responses": {
                    "204": {"description": "Cart emptied"}
                }
            }
        },
        "/cart/items": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Cart"],
                "summary": "Add a product to the cart",
                "parameters": [
                    {"description": "Product and quantity", "name": "item", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.AddItemRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated cart", "schema": {"$ref": "#/definitions/models.CartSnapshot"}},
                    "404": {"description": "Product not found", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "409": {"description": "Insufficient stock", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/cart/items/{id}": {
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Cart"],
                "summary": "Set the quantity of a cart line",
                "parameters": [
                    {"type": "integer", "description": "Product ID", "name": "id", "in": "path", "required": true},
                    {"description": "New quantity", "name": "item", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.UpdateQuantityRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated cart", "schema": {"$ref": "#/definitions/models.CartSnapshot"}},
                    "404": {"description": "Not in cart", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "409": {"description": "Insufficient stock", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["Cart"],
                "summary": "Remove a product from the cart",
                "parameters": [
                    {"type": "integer", "description": "Product ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Updated cart", "schema": {"$ref": "#/definitions/models.CartSnapshot"}}
                }
            }
        },
        "/checkout": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Checkout"],
                "summary": "Start checkout",
                "parameters": [
                    {"description": "Optional shipping address", "name": "checkout", "in": "body", "schema": {"$ref": "#/definitions/models.InitiateCheckoutRequest"}}
                ],
                "responses": {
                    "201": {"description": "Order awaiting payment with the redirect URL", "schema": {"$ref": "#/definitions/models.CheckoutResponse"}},
                    "400": {"description": "Empty cart or validation error", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "409": {"description": "Insufficient stock", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "429": {"description": "Too many checkout attempts", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "503": {"description": "Payment service unavailable", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/checkout/confirm": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Checkout"],
                "summary": "Confirm checkout",
                "responses": {
                    "200": {"description": "Completed order", "schema": {"$ref": "#/definitions/models.CheckoutResponse"}},
                    "401": {"description": "No session or user", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "402": {"description": "Payment not confirmed", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "No recent order", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "503": {"description": "Payment service unavailable", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/payments/webhook": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Checkout"],
                "summary": "Stripe webhook",
                "parameters": [
                    {"type": "string", "description": "Stripe signature", "name": "Stripe-Signature", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "Event received"},
                    "400": {"description": "Invalid payload or signature", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/products": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Products"],
                "summary": "List products",
                "parameters": [
                    {"type": "integer", "default": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 10, "name": "size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Page of products"}
                }
            }
        },
        "/products/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Products"],
                "summary": "Get a product",
                "parameters": [
                    {"type": "integer", "description": "Product ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Product", "schema": {"$ref": "#/definitions/models.Product"}},
                    "404": {"description": "Product not found", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/orders": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Orders"],
                "summary": "List the caller's orders",
                "parameters": [
                    {"type": "integer", "default": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 10, "name": "size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Page of orders"}
                }
            }
        },
        "/orders/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Orders"],
                "summary": "Get an order by ID",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Order ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Order", "schema": {"$ref": "#/definitions/models.Order"}},
                    "404": {"description": "Order not found", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.AddItemRequest": {
            "type": "object",
            "required": ["product_id", "quantity"],
            "properties": {
                "product_id": {"type": "integer"},
                "quantity": {"type": "integer", "minimum": 1}
            }
        },
        "models.UpdateQuantityRequest": {
            "type": "object",
            "required": ["quantity"],
            "properties": {
                "quantity": {"type": "integer", "minimum": 1}
            }
        },
        "models.CartSnapshot": {"type": "object"},
        "models.Product": {"type": "object"},
        "models.Order": {"type": "object"},
        "models.InitiateCheckoutRequest": {"type": "object"},
        "models.CheckoutResponse": {"type": "object"},
        "response.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "array", "items": {"type": "string"}},
                "meta": {"type": "object", "additionalProperties": true}
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
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Storefront Checkout API",
	Description:      "Session carts, hosted checkout and order history.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
