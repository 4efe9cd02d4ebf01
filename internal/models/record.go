// Package models - Airtable wire types.
// These structures are pass-through representations of the upstream API's
// JSON; the gateway never interprets record contents.
package models

// Record is a single Airtable record. Fields is an opaque column map.
type Record struct {
	ID          string         `json:"id"`
	Fields      map[string]any `json:"fields"`
	CreatedTime string         `json:"createdTime,omitempty"`
}

// BaseInfo describes one accessible base.
type BaseInfo struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	PermissionLevel string `json:"permission_level"`
}

// FieldSchema describes one column of a table.
type FieldSchema struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// ViewSchema describes one saved view of a table.
type ViewSchema struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TableSchema describes one table of a base, including fields and views.
type TableSchema struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Fields      []FieldSchema `json:"fields"`
	Views       []ViewSchema  `json:"views"`
}
