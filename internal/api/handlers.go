package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"airgate/internal/airtable"
	"airgate/internal/gateway"
	"airgate/internal/models"
	"airgate/internal/version"
)

// Handlers contains the HTTP handlers for the gateway API
type Handlers struct {
	service gateway.API
	version version.Info
}

// NewHandlers creates a new handlers instance
func NewHandlers(service gateway.API, ver version.Info) *Handlers {
	return &Handlers{
		service: service,
		version: ver,
	}
}

// ListBases handles base list requests
// GET /api/v1/bases
func (h *Handlers) ListBases(w http.ResponseWriter, r *http.Request) {
	response, err := h.service.ListBases(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.setCacheHeader(w, response.FromCache)
	h.writeJSONResponse(w, http.StatusOK, response)
}

// GetSchema handles base schema requests
// GET /api/v1/bases/{base_id}/schema
func (h *Handlers) GetSchema(w http.ResponseWriter, r *http.Request) {
	baseID := mux.Vars(r)["base_id"]

	response, err := h.service.GetSchema(r.Context(), baseID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.setCacheHeader(w, response.FromCache)
	h.writeJSONResponse(w, http.StatusOK, response)
}

// ListRecords handles record list requests
// GET /api/v1/bases/{base_id}/tables/{table_id}/records
func (h *Handlers) ListRecords(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	baseID := vars["base_id"]
	tableID := vars["table_id"]

	query := models.ListRecordsQuery{
		View:            r.URL.Query().Get("view"),
		FilterByFormula: r.URL.Query().Get("filter_by_formula"),
		Sort:            r.URL.Query()["sort"],
	}
	if maxParam := r.URL.Query().Get("max_records"); maxParam != "" {
		maxRecords, err := strconv.Atoi(maxParam)
		if err != nil {
			h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "max_records must be an integer")
			return
		}
		query.MaxRecords = maxRecords
	}

	if err := query.Validate(); err != nil {
		h.writeErrorResponse(w, http.StatusUnprocessableEntity, models.ErrorCodeValidation, err.Error())
		return
	}

	response, err := h.service.ListRecords(r.Context(), baseID, tableID, query)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.setCacheHeader(w, response.FromCache)
	h.writeJSONResponse(w, http.StatusOK, response)
}

// GetRecord handles single record requests
// GET /api/v1/bases/{base_id}/tables/{table_id}/records/{record_id}
func (h *Handlers) GetRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	response, err := h.service.GetRecord(r.Context(), vars["base_id"], vars["table_id"], vars["record_id"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.setCacheHeader(w, response.FromCache)
	h.writeJSONResponse(w, http.StatusOK, response)
}

// CreateRecord handles record creation requests
// POST /api/v1/bases/{base_id}/tables/{table_id}/records
func (h *Handlers) CreateRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req models.CreateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		h.writeErrorResponse(w, http.StatusUnprocessableEntity, models.ErrorCodeValidation, err.Error())
		return
	}

	response, err := h.service.CreateRecord(r.Context(), vars["base_id"], vars["table_id"], req.Fields)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, response)
}

// UpdateRecord handles partial record update requests
// PATCH /api/v1/bases/{base_id}/tables/{table_id}/records/{record_id}
func (h *Handlers) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req models.UpdateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		h.writeErrorResponse(w, http.StatusUnprocessableEntity, models.ErrorCodeValidation, err.Error())
		return
	}

	response, err := h.service.UpdateRecord(r.Context(), vars["base_id"], vars["table_id"], vars["record_id"], req.Fields)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// DeleteRecord handles record deletion requests
// DELETE /api/v1/bases/{base_id}/tables/{table_id}/records/{record_id}
func (h *Handlers) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	response, err := h.service.DeleteRecord(r.Context(), vars["base_id"], vars["table_id"], vars["record_id"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// BatchCreateRecords handles batch record creation requests
// POST /api/v1/bases/{base_id}/tables/{table_id}/records/batch
func (h *Handlers) BatchCreateRecords(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req models.BatchCreateRecordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		h.writeErrorResponse(w, http.StatusUnprocessableEntity, models.ErrorCodeValidation, err.Error())
		return
	}

	response, err := h.service.BatchCreateRecords(r.Context(), vars["base_id"], vars["table_id"], req.Records)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, response)
}

// HealthCheck handles health check requests
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	components := h.service.Health(r.Context())

	status := models.StatusHealthy
	response := models.NewHealthCheckResponse(status)
	response.Version = h.version.Version

	for name, componentStatus := range components {
		if componentStatus == models.StatusUnhealthy {
			status = models.StatusDegraded
		}
		response.AddComponent(name, componentStatus, "")
	}
	response.Status = status
	response.AddComponent("api", models.StatusHealthy, "API is operational")

	h.writeJSONResponse(w, http.StatusOK, response)
}

// setCacheHeader marks whether a read was served from cache.
func (h *Handlers) setCacheHeader(w http.ResponseWriter, fromCache bool) {
	if fromCache {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
}

// writeServiceError translates gateway errors into HTTP responses. Rate
// limit denials become 429 with retry headers, upstream API errors are
// mirrored with their original status code, and anything else (network
// failures, timeouts) becomes 502.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	if rle, ok := gateway.IsRateLimited(err); ok {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rle.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rle.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(rle.ResetAt.Unix(), 10))
		w.Header().Set("X-RateLimit-Scope", rle.Scope)
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rle.RetryAfter.Seconds()))))
		h.writeErrorResponse(w, http.StatusTooManyRequests, models.ErrorCodeRateLimited,
			fmt.Sprintf("Rate limit exceeded (%s), retry after %s", rle.Scope, rle.RetryAfter.Round(time.Millisecond)))
		return
	}

	var upstreamErr *airtable.Error
	if errors.As(err, &upstreamErr) {
		code := models.ErrorCodeUpstreamError
		if upstreamErr.StatusCode == http.StatusNotFound {
			code = models.ErrorCodeNotFound
		}
		h.writeErrorResponse(w, upstreamErr.StatusCode, code, upstreamErr.Message)
		return
	}

	h.writeErrorResponse(w, http.StatusBadGateway, models.ErrorCodeUpstreamError, "Upstream request failed")
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written; nothing more to send
		fmt.Printf("Error encoding JSON response: %v\n", err)
	}
}

// writeErrorResponse writes an error response
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	errorResp := models.NewErrorResponse(message, errorCode)
	h.writeJSONResponse(w, statusCode, errorResp)
}
