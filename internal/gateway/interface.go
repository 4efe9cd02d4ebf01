package gateway

import (
	"context"

	"airgate/internal/models"
)

// API is the gateway surface the HTTP handlers depend on. *Service is the
// production implementation; the observability package wraps it and the
// handler tests stub it.
type API interface {
	ListBases(ctx context.Context) (*models.BaseListResponse, error)
	GetSchema(ctx context.Context, baseID string) (*models.SchemaResponse, error)
	ListRecords(ctx context.Context, baseID, tableID string, query models.ListRecordsQuery) (*models.RecordListResponse, error)
	GetRecord(ctx context.Context, baseID, tableID, recordID string) (*models.RecordResponse, error)
	CreateRecord(ctx context.Context, baseID, tableID string, fields map[string]any) (*models.RecordResponse, error)
	UpdateRecord(ctx context.Context, baseID, tableID, recordID string, fields map[string]any) (*models.RecordResponse, error)
	DeleteRecord(ctx context.Context, baseID, tableID, recordID string) (*models.DeleteRecordResponse, error)
	BatchCreateRecords(ctx context.Context, baseID, tableID string, records []models.RecordFields) (*models.RecordListResponse, error)
	Health(ctx context.Context) map[string]string
}
