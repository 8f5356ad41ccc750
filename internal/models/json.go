package models

import (
	"database/sql/driver"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// JSON is a nullable JSON column. An empty value is stored as NULL.
type JSON struct {
	datatypes.JSON
}

// NewJSON marshals v into a JSON column value. A nil v yields NULL.
func NewJSON(v interface{}) (JSON, error) {
	if v == nil {
		return JSON{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return JSON{}, err
	}
	return JSON{JSON: datatypes.JSON(b)}, nil
}

// IsNull reports whether the column holds no value.
func (j JSON) IsNull() bool {
	return len(j.JSON) == 0 || string(j.JSON) == "null"
}

// Decode unmarshals the column into v. NULL leaves v untouched.
func (j JSON) Decode(v interface{}) error {
	if j.IsNull() {
		return nil
	}
	return json.Unmarshal(j.JSON, v)
}

// Value stores empty values as NULL
func (j JSON) Value() (driver.Value, error) {
	if len(j.JSON) == 0 {
		return nil, nil
	}
	return string(j.JSON), nil
}

// Scan accepts NULL in addition to what datatypes.JSON accepts
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		j.JSON = nil
		return nil
	}
	return j.JSON.Scan(value)
}

// MarshalJSON renders NULL as JSON null
func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j.JSON) == 0 {
		return []byte("null"), nil
	}
	return j.JSON.MarshalJSON()
}

// UnmarshalJSON keeps the raw document
func (j *JSON) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		j.JSON = nil
		return nil
	}
	return j.JSON.UnmarshalJSON(b)
}

// GormDBDataType picks JSONB on Postgres and JSON on SQLite.
func (JSON) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "JSONB"
	case "sqlite":
		return "JSON"
	}
	return "TEXT"
}
