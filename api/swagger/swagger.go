package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Amal Rehab Center API",
        "description": "Approval workflows, clinical intake and rehab planning for the residential center",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Staff authentication"},
        {"name": "Beneficiaries", "description": "Resident roster"},
        {"name": "Admissions", "description": "Clinical intake validation"},
        {"name": "Leaves", "description": "Leave request approval workflow"},
        {"name": "Plans", "description": "Rehab plans and three-way sign-off"},
        {"name": "Reports", "description": "Asynchronous register exports"},
        {"name": "Audit", "description": "Workflow audit trail"}
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
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate a staff member",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/beneficiaries": {
            "get": {
                "tags": ["Beneficiaries"],
                "summary": "List beneficiaries",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Beneficiaries"],
                "summary": "Register a beneficiary",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/Beneficiary"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/beneficiaries/{id}": {
            "get": {
                "tags": ["Beneficiaries"],
                "summary": "Get one beneficiary",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admissions/validate": {
            "post": {
                "tags": ["Admissions"],
                "summary": "Dry-run an admission draft against clinical rules",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AdmissionDraft"}}
                ],
                "responses": {
                    "200": {"description": "Validation outcome", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admissions": {
            "post": {
                "tags": ["Admissions"],
                "summary": "Validate and persist a medical admission profile",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AdmissionDraft"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Clinical rule violations"}
                }
            }
        },
        "/leaves": {
            "get": {
                "tags": ["Leaves"],
                "summary": "List leave requests",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "description": "Comma separated statuses"},
                    {"name": "beneficiaryId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Leaves"],
                "summary": "File a leave request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateLeaveRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leaves/{id}": {
            "get": {
                "tags": ["Leaves"],
                "summary": "Get leave request detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leaves/{id}/approve": {
            "post": {
                "tags": ["Leaves"],
                "summary": "Approve the current workflow step",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/LeaveDecisionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Role may not act on this step"},
                    "409": {"description": "Request already processed"}
                }
            }
        },
        "/leaves/{id}/reject": {
            "post": {
                "tags": ["Leaves"],
                "summary": "Reject the request at the current workflow step",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/LeaveDecisionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans": {
            "get": {
                "tags": ["Plans"],
                "summary": "List rehab plans",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "description": "Comma separated statuses"},
                    {"name": "beneficiaryId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Plans"],
                "summary": "Open a draft rehab plan",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePlanRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans/{id}": {
            "get": {
                "tags": ["Plans"],
                "summary": "Get one plan with approval state",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans/{id}/goals": {
            "post": {
                "tags": ["Plans"],
                "summary": "Add a goal",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GoalRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans/{id}/goals/{goalId}": {
            "put": {
                "tags": ["Plans"],
                "summary": "Update a goal",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "goalId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GoalRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Plans"],
                "summary": "Remove a goal",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "goalId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans/{id}/approve": {
            "post": {
                "tags": ["Plans"],
                "summary": "Record the caller's approval slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Slot already approved"},
                    "412": {"description": "Director slot requires both peers first"}
                }
            }
        },
        "/plans/{id}/status": {
            "put": {
                "tags": ["Plans"],
                "summary": "Move a plan through its lifecycle",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdatePlanStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit/{resource}/{id}": {
            "get": {
                "tags": ["Audit"],
                "summary": "List audit entries for one resource",
                "parameters": [
                    {"name": "resource", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue a register export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Poll an export job",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/download/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a finished export via its signed token",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "The export file"},
                    "403": {"description": "Invalid or expired token"}
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
        "Beneficiary": {
            "type": "object",
            "properties": {
                "fullName": {"type": "string"},
                "age": {"type": "integer"},
                "familyIncomeLevel": {"type": "string"},
                "admissionDate": {"type": "string", "format": "date-time"}
            },
            "required": ["fullName"]
        },
        "AdmissionDraft": {
            "type": "object",
            "properties": {
                "beneficiaryId": {"type": "string"},
                "primaryDiagnosis": {"type": "string"},
                "isEpileptic": {"type": "boolean"},
                "vitals": {"$ref": "#/definitions/VitalSigns"},
                "seizureHistory": {"type": "object"},
                "checkupComment": {"type": "string"}
            },
            "required": ["beneficiaryId"]
        },
        "VitalSigns": {
            "type": "object",
            "properties": {
                "temperature": {"type": "number"},
                "systolicBp": {"type": "integer"},
                "diastolicBp": {"type": "integer"},
                "pulse": {"type": "integer"}
            }
        },
        "CreateLeaveRequest": {
            "type": "object",
            "properties": {
                "beneficiaryId": {"type": "string"},
                "type": {"type": "string", "enum": ["HOME_VISIT", "HOSPITAL", "OUTING", "OTHER"]},
                "startDate": {"type": "string", "format": "date"},
                "endDate": {"type": "string", "format": "date"},
                "guardianName": {"type": "string"},
                "guardianPhone": {"type": "string"},
                "reason": {"type": "string"}
            },
            "required": ["beneficiaryId", "type", "startDate", "endDate", "guardianName", "guardianPhone"]
        },
        "LeaveDecisionRequest": {
            "type": "object",
            "properties": {
                "note": {"type": "string"}
            }
        },
        "CreatePlanRequest": {
            "type": "object",
            "properties": {
                "beneficiaryId": {"type": "string"},
                "needs": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["beneficiaryId"]
        },
        "GoalRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["medical", "social", "psychological", "physiotherapy", "occupational"]},
                "title": {"type": "string"},
                "measureOfSuccess": {"type": "string"},
                "targetDate": {"type": "string", "format": "date"},
                "progress": {"type": "integer"},
                "status": {"type": "string"},
                "assignedTo": {"type": "string"}
            },
            "required": ["type", "title"]
        },
        "UpdatePlanStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["draft", "active", "completed", "archived"]}
            },
            "required": ["status"]
        },
        "ReportRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["leave_register", "plan_summary"]},
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "beneficiaryId": {"type": "string"}
            },
            "required": ["type", "format"]
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
