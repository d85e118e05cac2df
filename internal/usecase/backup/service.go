// Package backup streams database content to and from NDJSON backups. Each
// line is an envelope naming the table plus one row, so a single file can
// carry every table and partial restores stay possible.
package backup

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultBatchSize = 512
	formatVersion    = 1
	metaTable        = "_meta"
)

// table describes one exportable table. Insert conflicts are ignored so an
// import into a non-empty database keeps existing rows.
type table struct {
	name     string
	columns  []string
	orderBy  string
	conflict string
	identity bool
}

var tables = []table{
	{
		name: "review_items",
		columns: []string{
			"id", "user_id", "surah_id", "repetitions", "interval_days", "ease_factor",
			"last_review_at", "next_review_at", "average_difficulty", "total_reviews",
			"perfect_count", "forgot_count", "status", "version", "created_at", "updated_at",
		},
		orderBy:  "user_id, surah_id",
		conflict: "(user_id, surah_id)",
		identity: true,
	},
	{
		name: "review_history",
		columns: []string{
			"id", "user_id", "surah_id", "grade", "interval_before", "interval_after", "reviewed_at",
		},
		orderBy:  "user_id, reviewed_at, id",
		conflict: "(id)",
		identity: true,
	},
	{
		name:     "daily_stats",
		columns:  []string{"user_id", "date", "reviews_completed", "points_earned"},
		orderBy:  "user_id, date",
		conflict: "(user_id, date)",
	},
}

// TableNames lists every table the service knows how to back up.
func TableNames() []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.name
	}
	return names
}

type envelope struct {
	Table string          `json:"table"`
	Row   json.RawMessage `json:"row"`
}

type metaRow struct {
	Version    int    `json:"version"`
	ExportedAt string `json:"exported_at"`
}

// ProgressReporter receives per-table progress callbacks during export.
type ProgressReporter interface {
	StartTable(table string, total int)
	Increment(table string, delta int)
	FinishTable(table string)
}

// Service exports and imports backups over a pgx pool.
type Service struct {
	pool      *pgxpool.Pool
	batchSize int
}

// Option configures the service.
type Option func(*Service)

// WithBatchSize overrides the import batch size. Non-positive values keep
// the default.
func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// NewService constructs a backup service on an existing pool.
func NewService(pool *pgxpool.Pool, opts ...Option) (*Service, error) {
	if pool == nil {
		return nil, errors.New("backup: nil pool")
	}
	s := &Service{pool: pool, batchSize: defaultBatchSize}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type exportOptions struct {
	tables   []string
	reporter ProgressReporter
}

// ExportOption tweaks a single export run.
type ExportOption func(*exportOptions)

// WithTables restricts the export to the named tables.
func WithTables(names []string) ExportOption {
	return func(o *exportOptions) { o.tables = names }
}

// WithProgressReporter wires progress callbacks into the export.
func WithProgressReporter(reporter ProgressReporter) ExportOption {
	return func(o *exportOptions) { o.reporter = reporter }
}

// Export writes all selected tables as NDJSON to w, starting with a meta
// line carrying the format version.
func (s *Service) Export(ctx context.Context, w io.Writer, opts ...ExportOption) error {
	var options exportOptions
	for _, opt := range opts {
		opt(&options)
	}
	selected, err := selectTables(options.tables)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(w)
	enc := json.NewEncoder(out)

	meta, err := json.Marshal(metaRow{Version: formatVersion, ExportedAt: time.Now().UTC().Format(time.RFC3339)})
	if err != nil {
		return err
	}
	if err := enc.Encode(envelope{Table: metaTable, Row: meta}); err != nil {
		return err
	}

	for _, t := range selected {
		if err := s.exportTable(ctx, enc, t, options.reporter); err != nil {
			return fmt.Errorf("export %s: %w", t.name, err)
		}
	}
	return out.Flush()
}

func (s *Service) exportTable(ctx context.Context, enc *json.Encoder, t table, reporter ProgressReporter) error {
	var total int
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s", t.name)
	if err := s.pool.QueryRow(ctx, countSQL).Scan(&total); err != nil {
		return err
	}
	if reporter != nil {
		reporter.StartTable(t.name, total)
		defer reporter.FinishTable(t.name)
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(t.columns, ", "), t.name, t.orderBy)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return err
		}
		row := make(map[string]any, len(t.columns))
		for i, col := range t.columns {
			row[col] = values[i]
		}
		payload, err := json.Marshal(row)
		if err != nil {
			return err
		}
		if err := enc.Encode(envelope{Table: t.name, Row: payload}); err != nil {
			return err
		}
		if reporter != nil {
			reporter.Increment(t.name, 1)
		}
	}
	return rows.Err()
}

type importOptions struct {
	tables []string
}

// ImportOption tweaks a single import run.
type ImportOption func(*importOptions)

// WithImportTables restricts the import to the named tables; rows for other
// tables are skipped.
func WithImportTables(names []string) ImportOption {
	return func(o *importOptions) { o.tables = names }
}

// Import reads an NDJSON backup from r and inserts its rows. Conflicting
// rows are skipped, so importing the same file twice is safe.
func (s *Service) Import(ctx context.Context, r io.Reader, opts ...ImportOption) error {
	var options importOptions
	for _, opt := range opts {
		opt(&options)
	}
	selected, err := selectTables(options.tables)
	if err != nil {
		return err
	}
	allowed := make(map[string]table, len(selected))
	for _, t := range selected {
		allowed[t.name] = t
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	batch := &pgx.Batch{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var env envelope
		if err := json.Unmarshal([]byte(line), &env); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if env.Table == metaTable {
			var meta metaRow
			if err := json.Unmarshal(env.Row, &meta); err != nil {
				return fmt.Errorf("line %d: invalid meta row: %w", lineNo, err)
			}
			if meta.Version > formatVersion {
				return fmt.Errorf("backup format version %d is newer than supported %d", meta.Version, formatVersion)
			}
			continue
		}
		t, ok := allowed[env.Table]
		if !ok {
			continue
		}
		sql, args, err := buildInsert(t, env.Row)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		batch.Queue(sql, args...)
		if batch.Len() >= s.batchSize {
			if err := s.flush(ctx, batch); err != nil {
				return err
			}
			batch = &pgx.Batch{}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return s.flush(ctx, batch)
}

func (s *Service) flush(ctx context.Context, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	results := s.pool.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("import batch: %w", err)
		}
	}
	return results.Close()
}

// buildInsert renders one row insert. All values are bound as text so the
// server casts them to the column types; identity columns need OVERRIDING
// SYSTEM VALUE to keep the original ids.
func buildInsert(t table, raw json.RawMessage) (string, []any, error) {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var row map[string]any
	if err := dec.Decode(&row); err != nil {
		return "", nil, err
	}

	placeholders := make([]string, len(t.columns))
	args := make([]any, len(t.columns))
	for i, col := range t.columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		value, ok := row[col]
		if !ok {
			return "", nil, fmt.Errorf("table %s: missing column %q", t.name, col)
		}
		args[i] = bindValue(value)
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(t.name)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(t.columns, ", "))
	sb.WriteString(")")
	if t.identity {
		sb.WriteString(" OVERRIDING SYSTEM VALUE")
	}
	sb.WriteString(" VALUES (")
	sb.WriteString(strings.Join(placeholders, ", "))
	sb.WriteString(")")
	if t.conflict != "" {
		sb.WriteString(" ON CONFLICT ")
		sb.WriteString(t.conflict)
		sb.WriteString(" DO NOTHING")
	}
	return sb.String(), args, nil
}

// bindValue normalises decoded JSON values into text parameters. Numbers
// stay as their decimal representation so integer columns round-trip without
// float precision loss.
func bindValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case json.Number:
		return v.String()
	case bool:
		return v
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// selectTables resolves requested table names against the registry, keeping
// registry order. An empty request selects everything.
func selectTables(requested []string) ([]table, error) {
	if len(requested) == 0 {
		return tables, nil
	}
	wanted := make(map[string]bool, len(requested))
	for _, name := range requested {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		wanted[name] = false
	}
	var out []table
	for _, t := range tables {
		if _, ok := wanted[t.name]; ok {
			wanted[t.name] = true
			out = append(out, t)
		}
	}
	for name, found := range wanted {
		if !found {
			return nil, fmt.Errorf("unknown table %q", name)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no tables selected")
	}
	return out, nil
}
