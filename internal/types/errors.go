package types

import (
	"errors"
	"fmt"
)

var ErrSchemaNotFound = errors.New("table not found in connected schema")

type SchemaNotFoundError struct {
	Table string
}

func (e *SchemaNotFoundError) Error() string {
	return fmt.Sprintf("table %q not found in connected schema", e.Table)
}

func (e *SchemaNotFoundError) Is(target error) bool {
	return target == ErrSchemaNotFound
}
