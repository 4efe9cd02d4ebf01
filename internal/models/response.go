// Package models - API response types and error handling.
// This file defines all outgoing API response structures with consistent
// formatting. The FromCache markers are never serialized; they exist so the
// HTTP layer can set the X-Cache header for observability.
package models

import (
	"time"
)

// BaseListResponse is the payload of a base list read.
type BaseListResponse struct {
	Bases []BaseInfo `json:"bases"`

	FromCache bool `json:"-"`
}

// SchemaResponse is the payload of a base schema read.
type SchemaResponse struct {
	BaseID string        `json:"base_id"`
	Tables []TableSchema `json:"tables"`

	FromCache bool `json:"-"`
}

// RecordListResponse is the payload of a record list read.
type RecordListResponse struct {
	Records []Record `json:"records"`

	FromCache bool `json:"-"`
}

// RecordResponse is the payload of a single-record read or write.
type RecordResponse struct {
	Record

	FromCache bool `json:"-"`
}

// DeleteRecordResponse acknowledges a record deletion.
type DeleteRecordResponse struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// ErrorResponse provides structured error information with debugging context.
type ErrorResponse struct {
	Error     string            `json:"error"`                // Error type (always "error")
	Message   string            `json:"message"`              // Human-readable error description
	Code      string            `json:"code,omitempty"`       // Machine-readable error code
	Details   map[string]string `json:"details,omitempty"`    // Field-specific error details
	Timestamp time.Time         `json:"timestamp"`            // Error occurrence time
	RequestID string            `json:"request_id,omitempty"` // Unique request identifier
}

type HealthCheckResponse struct {
	Status     string                     `json:"status"`
	Service    string                     `json:"service"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

type ComponentHealth struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Health Status Constants
const (
	StatusHealthy   = "healthy"   // All systems operational
	StatusUnhealthy = "unhealthy" // Major system issues
	StatusDegraded  = "degraded"  // Partial functionality
	StatusUnknown   = "unknown"   // Status indeterminate
)

// Standard HTTP Error Codes
//
// Error Code Strategy:
// - Upper-case with underscores for consistency
// - Maps to standard HTTP status codes
// - Machine-readable for client error handling
const (
	ErrorCodeNotFound           = "NOT_FOUND"            // 404: Resource doesn't exist
	ErrorCodeBadRequest         = "BAD_REQUEST"          // 400: Invalid request format
	ErrorCodeInvalidRequest     = "INVALID_REQUEST"      // 400: Invalid request data
	ErrorCodeValidation         = "VALIDATION_ERROR"     // 422: Input validation failed
	ErrorCodeInternalError      = "INTERNAL_ERROR"       // 500: Server-side error
	ErrorCodeUnauthorized       = "UNAUTHORIZED"         // 401: Authentication required
	ErrorCodeForbidden          = "FORBIDDEN"            // 403: Permission denied
	ErrorCodeRateLimited        = "RATE_LIMITED"         // 429: Upstream ceiling exhausted
	ErrorCodeUpstreamError      = "UPSTREAM_ERROR"       // 5xx/4xx mirrored from Airtable
	ErrorCodeServiceUnavailable = "SERVICE_UNAVAILABLE"  // 503: Service temporarily down
)

func NewErrorResponse(message string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error:     "error",
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

func NewHealthCheckResponse(status string) *HealthCheckResponse {
	return &HealthCheckResponse{
		Status:     status,
		Service:    "airtable-gateway",
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}
}

func (h *HealthCheckResponse) AddComponent(name, status, message string) {
	h.Components[name] = ComponentHealth{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
		Details:   make(map[string]any),
	}
}
