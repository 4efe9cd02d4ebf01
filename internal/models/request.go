// Package models - API request types with validation and normalization.
package models

import (
	"errors"
	"fmt"
)

// ListRecordsQuery carries the optional filters of a record list request.
// The query also determines the cache fingerprint of the response: two
// requests with identical normalized queries share one cache entry.
type ListRecordsQuery struct {
	MaxRecords      int      `json:"max_records"`
	View            string   `json:"view,omitempty"`
	FilterByFormula string   `json:"filter_by_formula,omitempty"`
	Sort            []string `json:"sort,omitempty"`
}

// Validate checks query constraints. MaxRecords of zero is allowed here and
// replaced with the default by Normalize.
func (q *ListRecordsQuery) Validate() error {
	if q.MaxRecords < 0 || q.MaxRecords > 1000 {
		return fmt.Errorf("max_records must be between 1 and 1000, got %d", q.MaxRecords)
	}
	return nil
}

// Normalize applies defaults so that equivalent queries hash identically.
func (q *ListRecordsQuery) Normalize() {
	if q.MaxRecords == 0 {
		q.MaxRecords = 100
	}
	if len(q.Sort) == 0 {
		q.Sort = nil
	}
}

// CreateRecordRequest is the body of a record creation request.
type CreateRecordRequest struct {
	Fields map[string]any `json:"fields"`
}

func (r *CreateRecordRequest) Validate() error {
	if len(r.Fields) == 0 {
		return errors.New("fields cannot be empty")
	}
	return nil
}

// UpdateRecordRequest is the body of a partial record update.
type UpdateRecordRequest struct {
	Fields map[string]any `json:"fields"`
}

func (r *UpdateRecordRequest) Validate() error {
	if len(r.Fields) == 0 {
		return errors.New("fields cannot be empty")
	}
	return nil
}

// RecordFields wraps one record's column values for batch creation.
type RecordFields struct {
	Fields map[string]any `json:"fields"`
}

// BatchCreateRecordsRequest creates several records in one upstream call.
// Airtable accepts at most 10 records per batch request.
type BatchCreateRecordsRequest struct {
	Records []RecordFields `json:"records"`
}

func (r *BatchCreateRecordsRequest) Validate() error {
	if len(r.Records) == 0 {
		return errors.New("records cannot be empty")
	}
	if len(r.Records) > 10 {
		return fmt.Errorf("at most 10 records per batch, got %d", len(r.Records))
	}
	for i, rec := range r.Records {
		if len(rec.Fields) == 0 {
			return fmt.Errorf("record %d has no fields", i)
		}
	}
	return nil
}
