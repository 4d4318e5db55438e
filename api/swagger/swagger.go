package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Study Planner API",
        "description": "Weekly study schedule generator with group coordination",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Plans", "description": "Weekly plan generation, retrieval and editing"},
        {"name": "ChangeRequests", "description": "Group meeting move/resize approval workflow"},
        {"name": "Groups", "description": "Group meeting preferences"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unreachable"}
                }
            }
        },
        "/plans/generate": {
            "post": {
                "tags": ["Plans"],
                "summary": "Generate weekly plans",
                "description": "Runs generation for every user and group, one user, or one group. Group meetings are placed first, then personal study blocks.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GeneratePlansRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per-unit generation reports", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/plans/{userId}": {
            "get": {
                "tags": ["Plans"],
                "summary": "Get a user's weekly plan",
                "parameters": [
                    {"name": "userId", "in": "path", "required": true, "type": "string"},
                    {"name": "weekStart", "in": "query", "required": true, "type": "string", "description": "Any date inside the target week (YYYY-MM-DD)"}
                ],
                "responses": {
                    "200": {"description": "Plan with blocks", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "No plan for this week", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/plans/{userId}/blocks/{blockId}": {
            "post": {
                "tags": ["Plans"],
                "summary": "Move or resize a plan block",
                "description": "Personal blocks apply immediately and become locked against regeneration. Group blocks open a change request instead.",
                "parameters": [
                    {"name": "userId", "in": "path", "required": true, "type": "string"},
                    {"name": "blockId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApplyEditRequest"}}
                ],
                "responses": {
                    "200": {"description": "Edit applied or routed to a change request", "schema": {"$ref": "#/definitions/Envelope"}},
                    "403": {"description": "Block belongs to another user", "schema": {"$ref": "#/definitions/Envelope"}},
                    "422": {"description": "Edit rejected by validation", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/plans/{userId}/export": {
            "get": {
                "tags": ["Plans"],
                "summary": "Export a user's weekly plan as PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "userId", "in": "path", "required": true, "type": "string"},
                    {"name": "weekStart", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF document"},
                    "404": {"description": "No plan for this week", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Plans"],
                "summary": "Download a previously exported plan by signed token",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF document"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Export no longer archived", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/availability/{userId}": {
            "get": {
                "tags": ["Plans"],
                "summary": "Get a user's free intervals for a week",
                "parameters": [
                    {"name": "userId", "in": "path", "required": true, "type": "string"},
                    {"name": "weekStart", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Per-day free intervals", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/change-requests": {
            "post": {
                "tags": ["ChangeRequests"],
                "summary": "Propose a move or resize of a group meeting",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateChangeRequestRequest"}}
                ],
                "responses": {
                    "201": {"description": "Request created, requester approval recorded", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Proposal conflicts with a member schedule", "schema": {"$ref": "#/definitions/Envelope"}},
                    "403": {"description": "Requester is not an approved member", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Group block not found", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/change-requests/{id}/votes": {
            "post": {
                "tags": ["ChangeRequests"],
                "summary": "Cast a vote on a pending change request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "Request state after the vote", "schema": {"$ref": "#/definitions/Envelope"}},
                    "409": {"description": "Request already resolved or expired", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/groups/{groupId}/change-requests": {
            "get": {
                "tags": ["ChangeRequests"],
                "summary": "List a group's change requests",
                "parameters": [
                    {"name": "groupId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Requests, newest first", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/groups/{groupId}/preference": {
            "get": {
                "tags": ["Groups"],
                "summary": "Get a group's meeting preferences",
                "parameters": [
                    {"name": "groupId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Preference row, created lazily", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            },
            "put": {
                "tags": ["Groups"],
                "summary": "Update a group's meeting preferences",
                "parameters": [
                    {"name": "groupId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateGroupPreferenceRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated preferences", "schema": {"$ref": "#/definitions/Envelope"}},
                    "403": {"description": "Editor is not an approved member", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        }
    },
    "definitions": {
        "GeneratePlansRequest": {
            "type": "object",
            "required": ["weekStart"],
            "properties": {
                "weekStart": {"type": "string", "example": "2026-09-06"},
                "userId": {"type": "string"},
                "groupId": {"type": "string"}
            }
        },
        "ApplyEditRequest": {
            "type": "object",
            "required": ["startTime", "endTime"],
            "properties": {
                "dayOfWeek": {"type": "integer", "minimum": 0, "maximum": 6},
                "startTime": {"type": "string", "example": "14:00"},
                "endTime": {"type": "string", "example": "15:30"},
                "reason": {"type": "string"}
            }
        },
        "CreateChangeRequestRequest": {
            "type": "object",
            "required": ["userId", "groupBlockId", "proposedStart", "proposedEnd"],
            "properties": {
                "userId": {"type": "string"},
                "groupBlockId": {"type": "string"},
                "proposedDay": {"type": "integer", "minimum": 0, "maximum": 6},
                "proposedStart": {"type": "string", "example": "16:00"},
                "proposedEnd": {"type": "string", "example": "18:00"},
                "reason": {"type": "string"}
            }
        },
        "VoteRequest": {
            "type": "object",
            "required": ["userId", "approve"],
            "properties": {
                "userId": {"type": "string"},
                "approve": {"type": "boolean"}
            }
        },
        "UpdateGroupPreferenceRequest": {
            "type": "object",
            "required": ["userId"],
            "properties": {
                "userId": {"type": "string"},
                "preferredHoursPerWeek": {"type": "number"},
                "preferenceText": {"type": "string"},
                "preferences": {"type": "object"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "Envelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
