package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CareBridge API",
        "description": "Care management backend: goals, activities, shifts, incidents.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Authentication and session management"},
        {"name": "Users", "description": "Staff accounts and approval"},
        {"name": "Clients", "description": "Care recipient records"},
        {"name": "Goals", "description": "Care goals and derived progress"},
        {"name": "Activities", "description": "Activity templates and completion logs"},
        {"name": "Shifts", "description": "Shift scheduling and clock events"},
        {"name": "Schedules", "description": "Planned activity slots and conflicts"},
        {"name": "Incidents", "description": "Behavior incident reporting and risk"},
        {"name": "Media", "description": "Attachment upload and signed downloads"},
        {"name": "Reports", "description": "Timesheet and incident exports"},
        {"name": "Analytics", "description": "Admin dashboard"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Login",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate refresh token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List users",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "role", "in": "query", "type": "string"},
                    {"name": "approved", "in": "query", "type": "boolean"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Users"],
                "summary": "Create user",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateUserRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users/{id}/approve": {
            "post": {
                "tags": ["Users"],
                "summary": "Approve or revoke a carer account",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApproveUserRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/goals": {
            "get": {
                "tags": ["Goals"],
                "summary": "List goals",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "priority", "in": "query", "type": "string"},
                    {"name": "overdue", "in": "query", "type": "boolean"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/goals/{id}/progress": {
            "get": {
                "tags": ["Goals"],
                "summary": "Derived goal progress",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/activity-logs": {
            "post": {
                "tags": ["Activities"],
                "summary": "Record an activity completion",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordCompletionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Account not approved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/shifts/{id}/clock-in": {
            "post": {
                "tags": ["Shifts"],
                "summary": "Clock in to a shift",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Shift not in a clockable state", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Plan an activity slot",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created; collisions are recorded as conflicts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/conflicts": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List recorded scheduling conflicts",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "resolved", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/incidents": {
            "post": {
                "tags": ["Incidents"],
                "summary": "Report a behavior incident",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportIncidentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/timesheet": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export a carer timesheet",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "carer_id", "in": "query", "type": "string"},
                    {"name": "date_from", "in": "query", "type": "string"},
                    {"name": "date_to", "in": "query", "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/analytics/dashboard": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Admin dashboard summary",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "RefreshRequest": {
            "type": "object",
            "properties": {
                "refresh_token": {"type": "string"}
            },
            "required": ["refresh_token"]
        },
        "CreateUserRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "full_name": {"type": "string"},
                "role": {"type": "string"},
                "phone": {"type": "string"}
            },
            "required": ["email", "password", "full_name", "role"]
        },
        "ApproveUserRequest": {
            "type": "object",
            "properties": {
                "approved": {"type": "boolean"}
            },
            "required": ["approved"]
        },
        "RecordCompletionRequest": {
            "type": "object",
            "properties": {
                "activity_id": {"type": "string"},
                "date": {"type": "string"},
                "status": {"type": "string"},
                "scheduled_time": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "completion_notes": {"type": "string"},
                "difficulty_rating": {"type": "integer"},
                "satisfaction_rating": {"type": "integer"},
                "media_refs": {"type": "array", "items": {"type": "string"}},
                "notes": {"type": "string"}
            },
            "required": ["activity_id", "date", "status"]
        },
        "CreateScheduleRequest": {
            "type": "object",
            "properties": {
                "activity_id": {"type": "string"},
                "carer_id": {"type": "string"},
                "scheduled_at": {"type": "string"},
                "estimated_minutes": {"type": "integer"},
                "priority": {"type": "string"},
                "location": {"type": "string"},
                "notes": {"type": "string"},
                "preparation_notes": {"type": "string"}
            },
            "required": ["activity_id", "carer_id", "scheduled_at"]
        },
        "ReportIncidentRequest": {
            "type": "object",
            "properties": {
                "client_id": {"type": "string"},
                "occurred_at": {"type": "string"},
                "location": {"type": "string"},
                "specific_location": {"type": "string"},
                "activity_id": {"type": "string"},
                "activity_log_id": {"type": "string"},
                "occurrence": {"type": "string"},
                "behavior_type": {"type": "string"},
                "behaviors": {"type": "array", "items": {"type": "string"}},
                "warning_signs": {"type": "array", "items": {"type": "string"}},
                "duration_minutes": {"type": "integer"},
                "severity": {"type": "string"},
                "harm_to_self": {"type": "boolean"},
                "harm_to_others": {"type": "boolean"},
                "property_damage": {"type": "boolean"},
                "intervention_used": {"type": "string"},
                "intervention_effective": {"type": "boolean"},
                "follow_up_required": {"type": "boolean"},
                "media_refs": {"type": "array", "items": {"type": "string"}},
                "notes": {"type": "string"}
            },
            "required": ["occurred_at", "location", "occurrence", "behavior_type", "severity", "intervention_used"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
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
