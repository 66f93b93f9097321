package catalog

import "fmt"

// ColumnType is the engine-neutral type inferred for a raw column.
type ColumnType string

// Inferred types, narrowest first.
const (
	TypeInteger   ColumnType = "integer"
	TypeReal      ColumnType = "real"
	TypeBoolean   ColumnType = "boolean"
	TypeDate      ColumnType = "date"
	TypeTimestamp ColumnType = "timestamp"
	TypeText      ColumnType = "text"
)

// ParseColumnType converts a type name into a ColumnType.
func ParseColumnType(s string) (ColumnType, error) {
	switch t := ColumnType(s); t {
	case TypeInteger, TypeReal, TypeBoolean, TypeDate, TypeTimestamp, TypeText:
		return t, nil
	default:
		return "", fmt.Errorf("unknown column type: %s", s)
	}
}

// Column is a named, typed column of a table.
type Column struct {
	Name string
	Type ColumnType
}

// ColumnNames returns the names of the columns in order.
func ColumnNames(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
