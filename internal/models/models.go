package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"maps"
)

// JSON is a custom type for JSON fields
type JSON map[string]interface{}

// Implement the driver.Valuer interface for JSON type
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Implement the sql.Scanner interface for JSON type
func (j *JSON) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	case nil:
		*j = nil
		return nil
	default:
		return errors.New("type assertion to []byte failed")
	}

	if len(bytes) == 0 {
		*j = nil
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// String returns the JSON encoding, or an empty string when the map cannot be encoded
func (j JSON) String() string {
	if j == nil {
		return ""
	}
	data, err := json.Marshal(j)
	if err != nil {
		return ""
	}
	return string(data)
}

// Merge returns a new map with the entries of other layered over j
func (j JSON) Merge(other JSON) JSON {
	merged := make(JSON, len(j)+len(other))
	maps.Copy(merged, j)
	maps.Copy(merged, other)
	return merged
}
