package op

import (
	"fmt"
	"strings"

	"github.com/nickyhof/PrimitiveDB/core"
)

// CreateTable adds table name to metadata with the identifier column first,
// followed by the columns described by specs ("name:type").
func CreateTable(metadata core.Metadata, name string, specs []string) (core.Metadata, error) {
	if _, exists := metadata[name]; exists {
		return metadata, fmt.Errorf("%w: %s", core.ErrDuplicateTable, name)
	}

	columns := []core.Column{{Name: core.IDColumn, Type: core.IntType}}

	for _, spec := range specs {
		columnName, typeName, found := strings.Cut(spec, ":")
		if !found {
			return metadata, fmt.Errorf("%w: %s (expected name:type)", core.ErrMalformedColumn, spec)
		}

		columnType, err := core.ParseColumnType(typeName)
		if err != nil {
			return metadata, err
		}

		// The identifier column is always the injected one.
		if columnName == core.IDColumn {
			continue
		}

		columns = append(columns, core.Column{Name: columnName, Type: columnType})
	}

	if metadata == nil {
		metadata = core.Metadata{}
	}
	metadata[name] = columns

	return metadata, nil
}

// DropTable removes table name from metadata. The table's data document is
// left for the caller to remove.
func DropTable(metadata core.Metadata, name string) (core.Metadata, error) {
	if _, exists := metadata[name]; !exists {
		return metadata, fmt.Errorf("%w: %s", core.ErrTableNotFound, name)
	}

	delete(metadata, name)
	return metadata, nil
}

// SchemaDescription renders the columns of table as "name:type, ...".
func SchemaDescription(metadata core.Metadata, name string) string {
	columns := metadata[name]

	parts := make([]string, len(columns))
	for i, column := range columns {
		parts[i] = column.String()
	}
	return strings.Join(parts, ", ")
}
