package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// JSON is a raw JSON column: TEXT on SQLite, the datatypes.JSON column type
// on every other dialect.
type JSON datatypes.JSON

// Value implements driver.Valuer.
func (j JSON) Value() (driver.Value, error) {
	return datatypes.JSON(j).Value()
}

// Scan implements sql.Scanner. Numeric and boolean driver values written
// under a JSON column type are accepted as their JSON literal.
func (j *JSON) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		*j = append((*j)[:0], v...)
		return nil
	case string:
		*j = JSON(v)
		return nil
	case int64:
		*j = JSON(strconv.FormatInt(v, 10))
		return nil
	case float64:
		*j = JSON(strconv.FormatFloat(v, 'f', -1, 64))
		return nil
	case bool:
		*j = JSON(strconv.FormatBool(v))
		return nil
	default:
		return fmt.Errorf("models: unsupported JSON column value %T", value)
	}
}

// MarshalJSON emits the raw payload, or null when empty.
func (j JSON) MarshalJSON() ([]byte, error) {
	return datatypes.JSON(j).MarshalJSON()
}

// UnmarshalJSON stores a copy of the raw payload.
func (j *JSON) UnmarshalJSON(data []byte) error {
	*j = append((*j)[:0], data...)
	return nil
}

// RawMessage returns the payload as json.RawMessage.
func (j JSON) RawMessage() json.RawMessage {
	return json.RawMessage(j)
}

// GormDataType implements schema.GormDataTypeInterface.
func (JSON) GormDataType() string {
	return "json"
}

// GormDBDataType implements migrator.GormDataTypeInterface.
func (JSON) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "sqlite" {
		return "TEXT"
	}
	return datatypes.JSON{}.GormDBDataType(db, field)
}
