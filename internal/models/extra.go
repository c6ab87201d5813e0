package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Extra is the method-specific payload of a payment (virtual account and bank,
// checkout token), persisted as a JSON text column.
type Extra map[string]string

func (e Extra) Value() (driver.Value, error) {
	if len(e) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(e))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (e *Extra) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*e = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("extra: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*e = nil
		return nil
	}
	m := map[string]string{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("extra: %w", err)
	}
	*e = m
	return nil
}
