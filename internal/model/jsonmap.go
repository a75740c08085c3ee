package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap maps a JSON column to a generic mapping. Used for the summary and
// payload columns.
type JSONMap map[string]any

// Value implements driver.Valuer. A nil map is stored as an empty object,
// never as SQL NULL, matching the column default.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = JSONMap{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonmap: cannot scan %T", src)
	}
	if len(data) == 0 {
		*m = JSONMap{}
		return nil
	}
	return json.Unmarshal(data, m)
}
