package models

import (
	"errors"
	"fmt"
)

// ErrUnknownSchema is returned for a record schema name that is not defined.
var ErrUnknownSchema = errors.New("unknown record schema")

// Schema is the versioned layout of a parcel record and its table export.
// v1 tracks the parcel area and exports plain quoted cells.
// v2 drops the area and exports text cells as spreadsheet text formulas.
type Schema string

const (
	SchemaV1 Schema = "v1"
	SchemaV2 Schema = "v2"
)

// DefaultSchema is the current record layout.
const DefaultSchema = SchemaV2

// ParseSchema validates a schema name; an empty name selects DefaultSchema.
func ParseSchema(name string) (Schema, error) {
	switch Schema(name) {
	case "":
		return DefaultSchema, nil
	case SchemaV1, SchemaV2:
		return Schema(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSchema, name)
	}
}

// TracksArea reports whether records of this schema carry the area field.
func (s Schema) TracksArea() bool {
	return s == SchemaV1
}

// FormulaText reports whether exported text cells are wrapped as ="value".
func (s Schema) FormulaText() bool {
	return s == SchemaV2
}
