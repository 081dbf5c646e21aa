package seeder

import (
	"fmt"

	"github.com/Rana718/fakeseed/internal/types"
)

// DependencyGraph orders tables so that foreign key parents precede children.
type DependencyGraph struct {
	tables map[string]*types.TableMetadata
	names  []string
	order  []string
}

func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		tables: make(map[string]*types.TableMetadata),
	}
}

// AddTable registers a table; insertion order is kept as the tie breaker.
func (g *DependencyGraph) AddTable(table *types.TableMetadata) {
	if _, ok := g.tables[table.Name]; !ok {
		g.names = append(g.names, table.Name)
	}
	g.tables[table.Name] = table
}

// BuildInsertionOrder returns parents before children. References to tables
// outside the graph are ignored.
func (g *DependencyGraph) BuildInsertionOrder() ([]string, error) {
	visited := make(map[string]bool)
	temp := make(map[string]bool)
	var order []string

	var visit func(string) error
	visit = func(tableName string) error {
		if temp[tableName] {
			return fmt.Errorf("circular dependency detected involving table: %s", tableName)
		}
		if visited[tableName] {
			return nil
		}

		table, ok := g.tables[tableName]
		if !ok {
			return nil
		}

		temp[tableName] = true
		for _, dep := range table.Dependencies() {
			if err := visit(dep); err != nil {
				return err
			}
		}

		temp[tableName] = false
		visited[tableName] = true
		order = append(order, tableName)
		return nil
	}

	for _, tableName := range g.names {
		if !visited[tableName] {
			if err := visit(tableName); err != nil {
				return nil, err
			}
		}
	}

	g.order = order
	return order, nil
}

// OrderOrCatalog falls back to registration order when the graph has a cycle.
func (g *DependencyGraph) OrderOrCatalog() ([]string, bool) {
	order, err := g.BuildInsertionOrder()
	if err != nil {
		g.order = append([]string(nil), g.names...)
		return g.order, false
	}
	return order, true
}
