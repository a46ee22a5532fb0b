package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Tags is stored as a JSON array so it survives map based updates.
type Tags []string

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *Tags) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("scan tags: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*t = Tags{}
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(t))
}

func (t Tags) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}
