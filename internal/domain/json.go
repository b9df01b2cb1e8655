package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// JSON is an opaque structured value used for shapes the spec does not
// pin down: agent voiceConfig, session/audio metadata, webhook bodies,
// tool arguments and outputs. It round-trips through Postgres `jsonb`
// columns as raw bytes and is inspected field-by-field with gjson/sjson
// rather than being unmarshaled into a Go struct: validate once at
// the boundary, treat as opaque elsewhere.
type JSON []byte

// NewJSON marshals an arbitrary value into a JSON blob.
func NewJSON(v any) (JSON, error) {
	if v == nil {
		return JSON("null"), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("domain: marshaling json: %w", err)
	}
	return JSON(b), nil
}

// Get extracts a single field by gjson path without a full unmarshal.
func (j JSON) Get(path string) gjson.Result {
	return gjson.GetBytes(j, path)
}

// Set returns a copy of j with path set to value.
func (j JSON) Set(path string, value any) (JSON, error) {
	out, err := sjson.SetBytes(j, path, value)
	if err != nil {
		return nil, fmt.Errorf("domain: setting json path %q: %w", path, err)
	}
	return JSON(out), nil
}

// Unmarshal decodes j into v.
func (j JSON) Unmarshal(v any) error {
	if len(j) == 0 {
		return nil
	}
	return json.Unmarshal(j, v)
}

// String implements fmt.Stringer.
func (j JSON) String() string {
	if j == nil {
		return ""
	}
	return string(j)
}

// Value implements driver.Valuer for storage as Postgres jsonb.
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements sql.Scanner.
func (j *JSON) Scan(src any) error {
	if src == nil {
		*j = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		*j = append(JSON(nil), v...)
		return nil
	case string:
		*j = JSON(v)
		return nil
	default:
		return fmt.Errorf("domain: cannot scan %T into JSON", src)
	}
}
