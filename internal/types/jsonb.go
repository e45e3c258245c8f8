package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Compile-time interface assertions.
// These ensure all JSONB types implement both sql.Scanner and driver.Valuer,
// catching any method signature drift at compile time rather than at runtime.
// Scan is on pointer receivers; Value is on value receivers.
var (
	_ sql.Scanner   = (*FeatureList)(nil)
	_ driver.Valuer = FeatureList(nil)
	_ sql.Scanner   = (*TierSnapshot)(nil)
	_ driver.Valuer = TierSnapshot{}
)

// scanJSONB is a generic helper that scans a JSONB database value into a Go pointer.
// It handles nil values, []byte, and string representations from different database drivers.
func scanJSONB(dest interface{}, value interface{}) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, dest)
}

// valueJSONB is a generic helper that converts a Go value to a JSONB-compatible driver.Value.
// Returns nil for nil interface values; otherwise marshals to JSON bytes.
func valueJSONB(v interface{}) (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// FeatureList is an ordered list of free-text capability labels attached to a
// tier. Display-only: features have no behavioral effect on validation or
// pricing. Stored as a JSONB array on the tier row.
type FeatureList []string

// Scan implements sql.Scanner for reading a JSONB column.
func (f *FeatureList) Scan(value interface{}) error {
	return scanJSONB(f, value)
}

// Value implements driver.Valuer for writing a JSONB column.
func (f FeatureList) Value() (driver.Value, error) {
	if f == nil {
		return valueJSONB([]string{})
	}
	return valueJSONB([]string(f))
}

// Scan implements sql.Scanner so a league's tier_snapshot JSONB column can be
// read directly into a TierSnapshot.
func (s *TierSnapshot) Scan(value interface{}) error {
	return scanJSONB(s, value)
}

// Value implements driver.Valuer. The snapshot is written once, at league
// activation, and is read-only thereafter.
func (s TierSnapshot) Value() (driver.Value, error) {
	return valueJSONB(s)
}
