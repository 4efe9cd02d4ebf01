package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Key fingerprints follow the scheme
//
//	airtable:<kind>:<base>:<table>:<suffix>
//
// so that invalidation can drop whole classes of entries by prefix:
// per-table (all record lists), per-record, or per-base.

const keyNamespace = "airtable"

// KeyBases fingerprints the base list.
func KeyBases() string {
	return keyNamespace + ":bases"
}

// KeySchema fingerprints a base's schema.
func KeySchema(baseID string) string {
	return fmt.Sprintf("%s:schema:%s", keyNamespace, baseID)
}

// KeyRecords fingerprints one record-list query. queryHash must be the
// QueryHash of the normalized query so equivalent requests share an entry.
func KeyRecords(baseID, tableID, queryHash string) string {
	return fmt.Sprintf("%s:records:%s:%s:%s", keyNamespace, baseID, tableID, queryHash)
}

// KeyRecord fingerprints a single record.
func KeyRecord(baseID, tableID, recordID string) string {
	return fmt.Sprintf("%s:record:%s:%s:%s", keyNamespace, baseID, tableID, recordID)
}

// PrefixRecords covers every record-list entry of a table.
func PrefixRecords(baseID, tableID string) string {
	return fmt.Sprintf("%s:records:%s:%s:", keyNamespace, baseID, tableID)
}

// PrefixRecord covers every single-record entry of a table.
func PrefixRecord(baseID, tableID string) string {
	return fmt.Sprintf("%s:record:%s:%s:", keyNamespace, baseID, tableID)
}

// QueryHash derives a short deterministic fingerprint from a query parameter
// struct. Struct fields marshal in declaration order, so identical normalized
// queries always produce identical hashes.
func QueryHash(query any) string {
	data, err := json.Marshal(query)
	if err != nil {
		// Query types are plain structs of strings and ints; marshaling
		// cannot fail for them. Fall back to an empty-query hash.
		data = []byte("{}")
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:12]
}
