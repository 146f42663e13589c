package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Festival Scheduler API",
        "description": "Builds and edits music festival competition schedules",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Schedules", "description": "Scheduling runs and schedule edits"},
        {"name": "Exports", "description": "Schedule documents"},
        {"name": "Health", "description": "Probes"}
    ],
    "paths": {
        "/competitions/{name}/schedule": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Run the scheduler for a competition",
                "parameters": [
                    {"name": "name", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChairmanConfigRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Infeasible configuration or placement exhausted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Schedule built but not saved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Schedules"],
                "summary": "Get the stored schedule",
                "parameters": [
                    {"name": "name", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not scheduled yet", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/competitions/{name}/schedule/html": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Render the schedule as an HTML fragment",
                "produces": ["text/html"],
                "parameters": [
                    {"name": "name", "in": "path", "required": true, "type": "string"},
                    {"name": "editable", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/competitions/{name}/schedule/sections": {
            "put": {
                "tags": ["Schedules"],
                "summary": "Set judges and proctor of one section",
                "parameters": [
                    {"name": "name", "in": "path", "required": true, "type": "string"},
                    {"name": "If-Match", "in": "header", "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateSectionStaffRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Version conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/competitions/{name}/schedule/rooms": {
            "put": {
                "tags": ["Schedules"],
                "summary": "Rename the rooms of one day",
                "parameters": [
                    {"name": "name", "in": "path", "required": true, "type": "string"},
                    {"name": "If-Match", "in": "header", "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RenameRoomsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/competitions/{name}/schedule/moves": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Move a student to another section",
                "parameters": [
                    {"name": "name", "in": "path", "required": true, "type": "string"},
                    {"name": "If-Match", "in": "header", "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MoveStudentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Section cannot accept the student, or version conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/competitions/{name}/schedule/scores": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Record a student's result",
                "parameters": [
                    {"name": "name", "in": "path", "required": true, "type": "string"},
                    {"name": "If-Match", "in": "header", "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordScoreRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/competitions/{name}/schedule/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Export the schedule as CSV, PDF or XLSX",
                "parameters": [
                    {"name": "name", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download an exported schedule",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "404": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "DayConfigRequest": {
            "type": "object",
            "required": ["day"],
            "properties": {
                "day": {"type": "string", "enum": ["Saturday", "Sunday"]},
                "numBlocks": {"type": "integer"},
                "startTimes": {"type": "array", "items": {"type": "string"}},
                "numSections": {"type": "integer"},
                "numMasterSections": {"type": "integer"},
                "roomNames": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ChairmanConfigRequest": {
            "type": "object",
            "required": ["days"],
            "properties": {
                "days": {"type": "array", "items": {"$ref": "#/definitions/DayConfigRequest"}},
                "sectionMinutes": {"type": "integer"},
                "groupByLevel": {"type": "boolean"},
                "masterInstructorMinutes": {"type": "integer"},
                "judgesPerSection": {"type": "integer"},
                "songThreshold": {"type": "integer"}
            }
        },
        "SectionRef": {
            "type": "object",
            "properties": {
                "day": {"type": "string"},
                "block": {"type": "integer"},
                "room": {"type": "integer"}
            }
        },
        "UpdateSectionStaffRequest": {
            "type": "object",
            "properties": {
                "section": {"$ref": "#/definitions/SectionRef"},
                "judges": {"type": "array", "items": {"type": "string"}},
                "proctor": {"type": "string"},
                "expectedVersion": {"type": "integer"}
            }
        },
        "RenameRoomsRequest": {
            "type": "object",
            "required": ["day", "names"],
            "properties": {
                "day": {"type": "string"},
                "names": {"type": "array", "items": {"type": "string"}},
                "expectedVersion": {"type": "integer"}
            }
        },
        "MoveStudentRequest": {
            "type": "object",
            "required": ["studentId"],
            "properties": {
                "studentId": {"type": "string"},
                "to": {"$ref": "#/definitions/SectionRef"},
                "expectedVersion": {"type": "integer"}
            }
        },
        "RecordScoreRequest": {
            "type": "object",
            "required": ["studentId", "rating"],
            "properties": {
                "studentId": {"type": "string"},
                "rating": {"type": "string"},
                "points": {"type": "integer"},
                "comments": {"type": "string"},
                "expectedVersion": {"type": "integer"}
            }
        },
        "ExportScheduleRequest": {
            "type": "object",
            "required": ["format"],
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf", "xlsx"]}
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
