package seeder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
)

// Registry is an immutable mapping from table name to a domain generator.
// Lookups are case-insensitive.
type Registry struct {
	generators map[string]TableGenerator
	names      []string
}

// NewRegistry copies generators; later changes to the map do not affect the registry.
func NewRegistry(generators map[string]TableGenerator) (*Registry, error) {
	r := &Registry{generators: make(map[string]TableGenerator, len(generators))}
	for name, gen := range generators {
		key := strings.ToLower(name)
		if _, dup := r.generators[key]; dup {
			return nil, fmt.Errorf("duplicate generator for table %s", name)
		}
		if gen.Generate == nil {
			return nil, fmt.Errorf("generator for table %s has no Generate function", name)
		}
		if len(gen.Columns) == 0 {
			return nil, fmt.Errorf("generator for table %s declares no columns", name)
		}
		gen.Columns = append([]string(nil), gen.Columns...)
		if gen.Capacity != nil {
			capacity := make(map[string]uint64, len(gen.Capacity))
			for col, c := range gen.Capacity {
				capacity[col] = c
			}
			gen.Capacity = capacity
		}
		r.generators[key] = gen
		r.names = append(r.names, key)
	}
	sort.Strings(r.names)
	return r, nil
}

func (r *Registry) Lookup(table string) (TableGenerator, bool) {
	if r == nil {
		return TableGenerator{}, false
	}
	gen, ok := r.generators[strings.ToLower(table)]
	return gen, ok
}

// Tables returns the registered table names sorted.
func (r *Registry) Tables() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.names...)
}

// CheckCapacity fails with *UniquenessCapacityError when count exceeds the
// declared capacity of any column the table's generator keeps unique.
func (r *Registry) CheckCapacity(table string, count int) error {
	gen, ok := r.Lookup(table)
	if !ok {
		return fmt.Errorf("no generator registered for table %s", table)
	}
	columns := make([]string, 0, len(gen.Capacity))
	for col := range gen.Capacity {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	for _, col := range columns {
		if capacity := gen.Capacity[col]; count > 0 && uint64(count) > capacity {
			return &UniquenessCapacityError{Table: table, Columns: []string{col}, Requested: count, Capacity: capacity}
		}
	}
	return nil
}

// Generate checks capacity, runs the table's generator and checks every row
// carries exactly the declared columns.
func (r *Registry) Generate(f *gofakeit.Faker, table string, count int) (*Batch, error) {
	gen, ok := r.Lookup(table)
	if !ok {
		return nil, fmt.Errorf("no generator registered for table %s", table)
	}
	if err := r.CheckCapacity(table, count); err != nil {
		return nil, err
	}
	rows, err := gen.Generate(f, count)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) != len(gen.Columns) {
			return nil, fmt.Errorf("generator %s: row %d has %d columns, want %d", table, i, len(row), len(gen.Columns))
		}
		for _, col := range gen.Columns {
			if _, ok := row[col]; !ok {
				return nil, fmt.Errorf("generator %s: row %d is missing column %s", table, i, col)
			}
		}
	}
	return &Batch{Table: table, Columns: gen.Columns, Rows: rows}, nil
}
