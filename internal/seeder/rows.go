package seeder

import (
	"context"
	"errors"
	"strings"

	"github.com/Rana718/fakeseed/internal/types"
	"github.com/rs/zerolog"
)

// RowBuilder assembles rows for a reflected table, one DataGenerator call per
// insertable column.
type RowBuilder struct {
	gen   *DataGenerator
	scope UniqueScope
	log   zerolog.Logger

	// Progress, when set, is called after every completed row.
	Progress func(done int)
}

func NewRowBuilder(gen *DataGenerator, scope UniqueScope, log zerolog.Logger) *RowBuilder {
	if scope == "" {
		scope = ScopeColumn
	}
	return &RowBuilder{gen: gen, scope: scope, log: log}
}

// uniqueTuple is a composite unique index whose members are drawn freely and
// redrawn together when the tuple repeats.
type uniqueTuple struct {
	key     string
	columns []types.ColumnMetadata
}

type rowPlan struct {
	columns  []types.ColumnMetadata
	distinct map[string]bool
	tuples   []uniqueTuple
}

func (b *RowBuilder) plan(table *types.TableMetadata) rowPlan {
	p := rowPlan{distinct: make(map[string]bool)}
	for _, col := range table.Columns {
		if col.AutoGenerated {
			continue
		}
		p.columns = append(p.columns, col)
	}

	if b.scope != ScopeTuple {
		for _, col := range p.columns {
			if col.Distinct() {
				p.distinct[col.Name] = true
			}
		}
		return p
	}

	var groups [][]string
	if len(table.PrimaryKey) > 0 {
		groups = append(groups, table.PrimaryKey)
	}
	groups = append(groups, table.UniqueIndexes...)

	for _, group := range groups {
		if len(group) == 1 {
			if col, ok := table.Column(group[0]); ok && !col.AutoGenerated {
				p.distinct[col.Name] = true
			}
		}
	}

	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		tuple, ok := b.tupleFor(table, group, p.distinct)
		if ok {
			p.tuples = append(p.tuples, tuple)
		}
	}
	return p
}

// tupleFor skips groups that are already distinct through an auto-generated
// or independently unique member.
func (b *RowBuilder) tupleFor(table *types.TableMetadata, group []string, distinct map[string]bool) (uniqueTuple, bool) {
	var members []types.ColumnMetadata
	for _, name := range group {
		col, ok := table.Column(name)
		if !ok {
			return uniqueTuple{}, false
		}
		if col.AutoGenerated || distinct[col.Name] {
			return uniqueTuple{}, false
		}
		members = append(members, *col)
	}
	return uniqueTuple{key: strings.Join(group, ","), columns: members}, true
}

// CheckCapacity fails with *UniquenessCapacityError when count exceeds the
// distinct value space of any deduplicated column or tuple. Columns that only
// ever produce NULL are exempt.
func (b *RowBuilder) CheckCapacity(table *types.TableMetadata, count int) error {
	p := b.plan(table)
	return b.checkCapacity(table.Name, p, count)
}

func (b *RowBuilder) checkCapacity(table string, p rowPlan, count int) error {
	if count <= 0 {
		return nil
	}
	for _, col := range p.columns {
		if !p.distinct[col.Name] {
			continue
		}
		capacity := b.gen.Capacity(col)
		if capacity == 0 {
			continue
		}
		if uint64(count) > capacity {
			return &UniquenessCapacityError{Table: table, Columns: []string{col.Name}, Requested: count, Capacity: capacity}
		}
	}
	for _, tuple := range p.tuples {
		capacity := uint64(1)
		exempt := false
		names := make([]string, 0, len(tuple.columns))
		for _, col := range tuple.columns {
			names = append(names, col.Name)
			c := b.gen.Capacity(col)
			if c == 0 {
				exempt = true
				break
			}
			capacity = mulSat(capacity, c)
		}
		if exempt {
			continue
		}
		if uint64(count) > capacity {
			return &UniquenessCapacityError{Table: table, Columns: names, Requested: count, Capacity: capacity}
		}
	}
	return nil
}

// BuildRows generates count rows. The capacity check runs before the first
// row; ctx is checked between rows.
func (b *RowBuilder) BuildRows(ctx context.Context, table *types.TableMetadata, count int) (*Batch, error) {
	p := b.plan(table)
	if err := b.checkCapacity(table.Name, p, count); err != nil {
		return nil, err
	}

	batch := &Batch{Table: table.Name, Rows: make([]Row, 0, count)}
	for _, col := range p.columns {
		batch.Columns = append(batch.Columns, col.Name)
	}

	gc := NewGenerationContext()
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := b.buildRow(table.Name, p, gc, i)
		if err != nil {
			return nil, err
		}
		batch.Rows = append(batch.Rows, row)
		if b.Progress != nil {
			b.Progress(i + 1)
		}
	}

	b.log.Debug().Str("table", table.Name).Int("rows", count).Int("columns", len(batch.Columns)).
		Int("tuples", len(p.tuples)).Msg("rows generated")
	return batch, nil
}

func (b *RowBuilder) buildRow(table string, p rowPlan, gc *GenerationContext, index int) (Row, error) {
	row := make(Row, len(p.columns))
	for _, col := range p.columns {
		if !p.distinct[col.Name] {
			row[col.Name] = b.gen.Draw(col)
			continue
		}
		v, err := b.gen.drawDistinct(col, gc, col.Name)
		if err != nil {
			if errors.Is(err, errNoUnusedValue) {
				return nil, &UniquenessExhaustedError{Table: table, Columns: []string{col.Name}, Row: index, Attempts: b.gen.maxAttempts}
			}
			return nil, err
		}
		row[col.Name] = v
	}

	if len(p.tuples) == 0 {
		return row, nil
	}
	clash := -1
	for attempt := 0; attempt < b.gen.maxAttempts; attempt++ {
		clash = -1
		for i, tuple := range p.tuples {
			if key, ok := tupleKey(row, tuple); ok && gc.Contains(tuple.key, key) {
				clash = i
				break
			}
		}
		if clash < 0 {
			for _, tuple := range p.tuples {
				if key, ok := tupleKey(row, tuple); ok {
					gc.Add(tuple.key, key)
				}
			}
			return row, nil
		}
		for _, col := range p.tuples[clash].columns {
			row[col.Name] = b.gen.Draw(col)
		}
	}

	names := make([]string, 0, len(p.tuples[clash].columns))
	for _, col := range p.tuples[clash].columns {
		names = append(names, col.Name)
	}
	return nil, &UniquenessExhaustedError{Table: table, Columns: names, Row: index, Attempts: b.gen.maxAttempts}
}

// tupleKey reports false when a member is NULL; stores accept repeated NULL
// tuples in unique indexes.
func tupleKey(row Row, tuple uniqueTuple) (string, bool) {
	parts := make([]string, len(tuple.columns))
	for i, col := range tuple.columns {
		v := row[col.Name]
		if v == nil {
			return "", false
		}
		parts[i] = valueKey(v)
	}
	return strings.Join(parts, "\x00"), true
}
