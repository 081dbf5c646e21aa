package seeder

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rana718/fakeseed/internal/database"
	"github.com/Rana718/fakeseed/internal/types"
	"github.com/rs/zerolog"
)

// Seeder reflects tables, generates rows for them and loads the rows.
type Seeder struct {
	adapter  database.DatabaseAdapter
	registry *Registry
	opts     Options
	gen      *DataGenerator
	builder  *RowBuilder
	loader   *BulkLoader
	log      zerolog.Logger
	progress func(table string, done, total int)
}

// New wires a Seeder over an already connected adapter. registry may be nil.
func New(adapter database.DatabaseAdapter, registry *Registry, opts Options, log zerolog.Logger) *Seeder {
	gen := NewDataGenerator(opts.RandomSeed, opts.MaxAttempts)
	return &Seeder{
		adapter:  adapter,
		registry: registry,
		opts:     opts,
		gen:      gen,
		builder:  NewRowBuilder(gen, opts.UniqueScope, log),
		loader:   NewBulkLoader(adapter, opts.BatchSize, opts.TxTimeout, log).WithFaker(gen.Faker()),
		log:      log,
	}
}

// OnProgress registers a callback invoked as rows are generated.
func (s *Seeder) OnProgress(fn func(table string, done, total int)) {
	s.progress = fn
}

// GenerateRows produces count rows for table, using the preset generator when
// one is registered and presets are enabled. Foreign key columns are recorded
// as references for the loader to resolve.
func (s *Seeder) GenerateRows(ctx context.Context, table *types.TableMetadata, count int) (*Batch, error) {
	var (
		batch *Batch
		err   error
	)
	if s.usesPreset(table.Name) {
		batch, err = s.generatePreset(table, count)
	} else {
		if s.progress != nil {
			s.builder.Progress = func(done int) { s.progress(table.Name, done, count) }
			defer func() { s.builder.Progress = nil }()
		}
		batch, err = s.builder.BuildRows(ctx, table, count)
	}
	if err != nil {
		return nil, err
	}

	s.attachReferences(table, batch)
	return batch, nil
}

// attachReferences records the foreign key columns of batch. A reference is
// distinct only when the row plan deduplicates its column on its own; foreign
// keys inside a composite unique tuple are resolved as a group.
func (s *Seeder) attachReferences(table *types.TableMetadata, batch *Batch) {
	p := s.builder.plan(table)

	refs := make(map[string]Reference)
	for _, name := range batch.Columns {
		col, ok := table.Column(name)
		if !ok || col.ForeignKeyTable == "" || col.ForeignKeyColumn == "" {
			continue
		}
		refs[name] = Reference{
			Table:    col.ForeignKeyTable,
			Column:   col.ForeignKeyColumn,
			Nullable: col.Nullable,
			Distinct: p.distinct[col.Name],
		}
	}
	if len(refs) == 0 {
		return
	}
	batch.References = refs

	for _, tuple := range p.tuples {
		names := make([]string, 0, len(tuple.columns))
		hasRef := false
		for _, col := range tuple.columns {
			names = append(names, col.Name)
			if _, ok := refs[col.Name]; ok {
				hasRef = true
			}
		}
		if hasRef {
			batch.UniqueTuples = append(batch.UniqueTuples, names)
		}
	}
}

func (s *Seeder) generatePreset(table *types.TableMetadata, count int) (*Batch, error) {
	batch, err := s.registry.Generate(s.gen.Faker(), table.Name, count)
	if err != nil {
		return nil, err
	}
	for _, col := range batch.Columns {
		if _, ok := table.Column(col); !ok {
			return nil, fmt.Errorf("preset for %s writes column %s which the table does not have", table.Name, col)
		}
	}
	batch.Table = table.Name
	if s.progress != nil {
		s.progress(table.Name, len(batch.Rows), count)
	}
	s.log.Debug().Str("table", table.Name).Int("rows", len(batch.Rows)).Msg("preset rows generated")
	return batch, nil
}

// SeedTable reflects one table and loads freshly generated rows into it.
func (s *Seeder) SeedTable(ctx context.Context, tableName string) (*LoadResult, error) {
	table, err := s.adapter.ReflectTable(ctx, tableName)
	if err != nil {
		return nil, err
	}

	batch, err := s.GenerateRows(ctx, table, s.opts.CountFor(table.Name))
	if err != nil {
		return nil, err
	}

	result, err := s.loader.Load(ctx, batch, s.opts.Mode)
	if err != nil {
		return nil, err
	}
	return &LoadResult{Tables: []TableResult{*result}}, nil
}

// Reflect returns metadata for tables, or for every table when none are named,
// ordered parents first.
func (s *Seeder) Reflect(ctx context.Context, tables ...string) ([]*types.TableMetadata, error) {
	if len(tables) == 0 {
		var err error
		if tables, err = s.adapter.ListTables(ctx); err != nil {
			return nil, fmt.Errorf("failed to list tables: %w", err)
		}
	}

	graph := NewDependencyGraph()
	byName := make(map[string]*types.TableMetadata, len(tables))
	for _, name := range tables {
		table, err := s.adapter.ReflectTable(ctx, name)
		if err != nil {
			return nil, err
		}
		graph.AddTable(table)
		byName[table.Name] = table
	}

	order, acyclic := graph.OrderOrCatalog()
	if !acyclic {
		s.log.Warn().Msg("foreign key cycle detected, using catalog order")
	}
	s.log.Debug().Str("order", strings.Join(order, " -> ")).Msg("insertion order")

	metas := make([]*types.TableMetadata, 0, len(order))
	for _, name := range order {
		metas = append(metas, byName[name])
	}
	return metas, nil
}

// GenerateAll reflects every table (or the named ones) in dependency order and
// generates a batch for each without touching the data. Capacity is checked
// for all tables before any row is generated.
func (s *Seeder) GenerateAll(ctx context.Context, tables ...string) ([]*Batch, error) {
	metas, err := s.Reflect(ctx, tables...)
	if err != nil {
		return nil, err
	}

	for _, table := range metas {
		count := s.opts.CountFor(table.Name)
		if s.usesPreset(table.Name) {
			err = s.registry.CheckCapacity(table.Name, count)
		} else {
			err = s.builder.CheckCapacity(table, count)
		}
		if err != nil {
			return nil, err
		}
	}

	batches := make([]*Batch, 0, len(metas))
	for _, table := range metas {
		batch, err := s.GenerateRows(ctx, table, s.opts.CountFor(table.Name))
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

// SeedAll generates rows for every table (or the named ones) and loads them
// together.
func (s *Seeder) SeedAll(ctx context.Context, tables ...string) (*LoadResult, error) {
	batches, err := s.GenerateAll(ctx, tables...)
	if err != nil {
		return nil, err
	}
	return s.loader.LoadAll(ctx, batches, s.opts.Mode, s.opts.AtomicAll)
}

func (s *Seeder) usesPreset(table string) bool {
	if !s.opts.UsePresets {
		return false
	}
	_, ok := s.registry.Lookup(table)
	return ok
}
