// Package gateway implements the read-through cache and rate-limit façade
// in front of the Airtable API. Reads consult the cache before spending a
// rate-limit token; writes spend a token, call upstream, then synchronously
// invalidate the cached reads the write made stale. Cache backend failures
// degrade the gateway to a pass-through proxy rather than failing requests.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"airgate/internal/airtable"
	"airgate/internal/cache"
	"airgate/internal/models"
	"airgate/internal/ratelimit"
)

// Service is the production gateway implementation.
type Service struct {
	client      airtable.Client
	store       cache.Store // nil when caching is disabled
	gate        *ratelimit.Gate
	invalidator *Invalidator
	ttls        cache.TTLs
	logger      *slog.Logger
}

var _ API = (*Service)(nil)

// NewService composes the gateway from its parts. store and gate may be nil
// to disable caching or rate limiting respectively.
func NewService(client airtable.Client, store cache.Store, gate *ratelimit.Gate, ttls cache.TTLs, logger *slog.Logger) *Service {
	s := &Service{
		client: client,
		store:  store,
		gate:   gate,
		ttls:   ttls,
		logger: logger,
	}
	if store != nil {
		s.invalidator = NewInvalidator(store, logger)
	}
	return s
}

func (s *Service) ListBases(ctx context.Context) (*models.BaseListResponse, error) {
	var resp models.BaseListResponse
	hit, err := s.readThrough(ctx, cache.KeyBases(), "", s.ttls.Bases, &resp, func(ctx context.Context) error {
		bases, err := s.client.ListBases(ctx)
		if err != nil {
			return err
		}
		resp = models.BaseListResponse{Bases: bases}
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp.FromCache = hit
	return &resp, nil
}

func (s *Service) GetSchema(ctx context.Context, baseID string) (*models.SchemaResponse, error) {
	var resp models.SchemaResponse
	hit, err := s.readThrough(ctx, cache.KeySchema(baseID), baseID, s.ttls.Schema, &resp, func(ctx context.Context) error {
		tables, err := s.client.BaseSchema(ctx, baseID)
		if err != nil {
			return err
		}
		resp = models.SchemaResponse{BaseID: baseID, Tables: tables}
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp.FromCache = hit
	return &resp, nil
}

func (s *Service) ListRecords(ctx context.Context, baseID, tableID string, query models.ListRecordsQuery) (*models.RecordListResponse, error) {
	query.Normalize()

	key := cache.KeyRecords(baseID, tableID, cache.QueryHash(query))
	var resp models.RecordListResponse
	hit, err := s.readThrough(ctx, key, baseID, s.ttls.Records, &resp, func(ctx context.Context) error {
		records, err := s.client.ListRecords(ctx, baseID, tableID, query)
		if err != nil {
			return err
		}
		resp = models.RecordListResponse{Records: records}
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp.FromCache = hit
	return &resp, nil
}

func (s *Service) GetRecord(ctx context.Context, baseID, tableID, recordID string) (*models.RecordResponse, error) {
	var resp models.RecordResponse
	hit, err := s.readThrough(ctx, cache.KeyRecord(baseID, tableID, recordID), baseID, s.ttls.Record, &resp, func(ctx context.Context) error {
		record, err := s.client.GetRecord(ctx, baseID, tableID, recordID)
		if err != nil {
			return err
		}
		resp = models.RecordResponse{Record: *record}
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp.FromCache = hit
	return &resp, nil
}

func (s *Service) CreateRecord(ctx context.Context, baseID, tableID string, fields map[string]any) (*models.RecordResponse, error) {
	if err := s.acquire(ctx, baseID); err != nil {
		return nil, err
	}

	record, err := s.client.CreateRecord(ctx, baseID, tableID, fields)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, WriteOp{Kind: WriteCreate, Base: baseID, Table: tableID, Record: record.ID})
	return &models.RecordResponse{Record: *record}, nil
}

func (s *Service) UpdateRecord(ctx context.Context, baseID, tableID, recordID string, fields map[string]any) (*models.RecordResponse, error) {
	if err := s.acquire(ctx, baseID); err != nil {
		return nil, err
	}

	record, err := s.client.UpdateRecord(ctx, baseID, tableID, recordID, fields)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, WriteOp{Kind: WriteUpdate, Base: baseID, Table: tableID, Record: recordID})
	return &models.RecordResponse{Record: *record}, nil
}

func (s *Service) DeleteRecord(ctx context.Context, baseID, tableID, recordID string) (*models.DeleteRecordResponse, error) {
	if err := s.acquire(ctx, baseID); err != nil {
		return nil, err
	}

	if err := s.client.DeleteRecord(ctx, baseID, tableID, recordID); err != nil {
		return nil, err
	}

	s.invalidate(ctx, WriteOp{Kind: WriteDelete, Base: baseID, Table: tableID, Record: recordID})
	return &models.DeleteRecordResponse{Deleted: true, ID: recordID}, nil
}

func (s *Service) BatchCreateRecords(ctx context.Context, baseID, tableID string, records []models.RecordFields) (*models.RecordListResponse, error) {
	if err := s.acquire(ctx, baseID); err != nil {
		return nil, err
	}

	created, err := s.client.BatchCreateRecords(ctx, baseID, tableID, records)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, WriteOp{Kind: WriteBatch, Base: baseID, Table: tableID})
	return &models.RecordListResponse{Records: created}, nil
}

// Health reports per-component status for the health endpoint.
func (s *Service) Health(ctx context.Context) map[string]string {
	components := map[string]string{}

	if s.store == nil {
		components["cache"] = "disabled"
	} else if err := s.store.Ping(ctx); err != nil {
		components["cache"] = models.StatusUnhealthy
	} else {
		components["cache"] = models.StatusHealthy
	}

	if s.gate == nil {
		components["rate_limiter"] = "disabled"
	} else {
		components["rate_limiter"] = models.StatusHealthy
	}

	return components
}

// readThrough serves out from the cache when possible, otherwise acquires a
// rate-limit grant, runs fetch to populate out, and caches the result. The
// returned bool reports a cache hit. Cache backend errors on either side are
// logged and the request proceeds as if caching were absent.
func (s *Service) readThrough(ctx context.Context, key, baseID string, ttl time.Duration, out any, fetch func(context.Context) error) (bool, error) {
	if s.store != nil {
		payload, found, err := s.store.Get(ctx, key)
		if err != nil {
			s.logger.Warn("cache read failed, bypassing cache",
				slog.String("key", key),
				slog.Any("error", err))
		} else if found {
			if err := json.Unmarshal(payload, out); err != nil {
				s.logger.Warn("cached entry undecodable, refetching",
					slog.String("key", key),
					slog.Any("error", err))
			} else {
				return true, nil
			}
		}
	}

	if err := s.acquire(ctx, baseID); err != nil {
		return false, err
	}

	if err := fetch(ctx); err != nil {
		return false, err
	}

	if s.store != nil {
		payload, err := json.Marshal(out)
		if err == nil {
			err = s.store.Set(ctx, key, payload, ttl)
		}
		if err != nil {
			s.logger.Warn("cache write failed",
				slog.String("key", key),
				slog.Any("error", err))
		}
	}

	return false, nil
}

// acquire asks the gate for a grant, converting a denial into a
// RateLimitedError. A nil gate always grants.
func (s *Service) acquire(ctx context.Context, baseID string) error {
	if s.gate == nil {
		return nil
	}
	decision := s.gate.Acquire(ctx, baseID)
	if !decision.Allowed {
		return newRateLimitedError(decision)
	}
	return nil
}

// invalidate drops stale cached reads after a successful write. Disabled
// caching makes it a no-op.
func (s *Service) invalidate(ctx context.Context, op WriteOp) {
	if s.invalidator == nil {
		return
	}
	s.invalidator.OnWrite(ctx, op)
}
