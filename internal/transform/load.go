package transform

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gmarches/s3catalog/internal/audit"
	"github.com/gmarches/s3catalog/internal/domain"
	"github.com/gmarches/s3catalog/internal/storage"
)

// DefaultLoadTable receives rows when the caller names no table.
const DefaultLoadTable = "imported_data"

const loadBatchRows = 500

// identPattern restricts table and column names coming from untrusted
// input (request bodies, CSV headers) to plain identifiers.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CSVLoader streams a stored CSV into a relational table. The header
// row supplies the column names; every value loads as text.
type CSVLoader struct {
	store storage.ObjectStorage
	db    *sqlx.DB
	audit *audit.Logger
}

func NewCSVLoader(store storage.ObjectStorage, db *sqlx.DB, auditLog *audit.Logger) *CSVLoader {
	return &CSVLoader{store: store, db: db, audit: auditLog}
}

// Load reads csvKey from the object store and inserts its rows into
// tableName (created if missing), returning the number of rows loaded.
func (l *CSVLoader) Load(ctx context.Context, csvKey, tableName string) (int, error) {
	csvKey = strings.TrimSpace(csvKey)
	if csvKey == "" {
		err := domain.Validationf("csv_key is required")
		l.audit.Error(ctx, domain.OpLoad, nil, err)
		return 0, err
	}
	if tableName == "" {
		tableName = DefaultLoadTable
	}
	if !identPattern.MatchString(tableName) {
		err := domain.Validationf("invalid table name %q", tableName)
		l.audit.Error(ctx, domain.OpLoad, map[string]any{"csv_key": csvKey}, err)
		return 0, err
	}

	rc, err := l.store.GetObject(ctx, csvKey)
	if err != nil {
		err = domain.Dependency("download csv", err)
		l.audit.Error(ctx, domain.OpLoad, map[string]any{"csv_key": csvKey}, err)
		return 0, err
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1 // ragged rows are skipped, not fatal
	header, err := reader.Read()
	if err != nil {
		err = domain.Validationf("csv %s has no header row: %v", csvKey, err)
		l.audit.Error(ctx, domain.OpLoad, map[string]any{"csv_key": csvKey}, err)
		return 0, err
	}

	columns := make([]string, 0, len(header))
	for _, col := range header {
		col = strings.TrimSpace(strings.ToLower(col))
		col = strings.ReplaceAll(col, " ", "_")
		if !identPattern.MatchString(col) {
			err := domain.Validationf("invalid column name %q in %s", col, csvKey)
			l.audit.Error(ctx, domain.OpLoad, map[string]any{"csv_key": csvKey}, err)
			return 0, err
		}
		columns = append(columns, col)
	}

	if err := l.ensureTable(ctx, tableName, columns); err != nil {
		err = domain.Dependency("create table", err)
		l.audit.Error(ctx, domain.OpLoad, map[string]any{"csv_key": csvKey, "table_name": tableName}, err)
		return 0, err
	}

	rowsLoaded := 0
	batch := make([][]string, 0, loadBatchRows)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := l.insertBatch(ctx, tableName, columns, batch); err != nil {
			return err
		}
		rowsLoaded += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			err = domain.Validationf("malformed csv row in %s: %v", csvKey, err)
			l.audit.Error(ctx, domain.OpLoad, map[string]any{"csv_key": csvKey, "rows_loaded": rowsLoaded}, err)
			return 0, err
		}
		if len(record) != len(columns) {
			continue // tolerate ragged rows, same as the spreadsheet side
		}
		batch = append(batch, record)
		if len(batch) >= loadBatchRows {
			if err := flush(); err != nil {
				err = domain.Dependency("insert rows", err)
				l.audit.Error(ctx, domain.OpLoad, map[string]any{"csv_key": csvKey, "rows_loaded": rowsLoaded}, err)
				return 0, err
			}
		}
	}
	if err := flush(); err != nil {
		err = domain.Dependency("insert rows", err)
		l.audit.Error(ctx, domain.OpLoad, map[string]any{"csv_key": csvKey, "rows_loaded": rowsLoaded}, err)
		return 0, err
	}

	l.audit.Success(ctx, domain.OpLoad, map[string]any{
		"csv_key":     csvKey,
		"table_name":  tableName,
		"rows_loaded": rowsLoaded,
	})
	return rowsLoaded, nil
}

func (l *CSVLoader) ensureTable(ctx context.Context, table string, columns []string) error {
	defs := make([]string, 0, len(columns))
	for _, col := range columns {
		defs = append(defs, pq.QuoteIdentifier(col)+" TEXT")
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		pq.QuoteIdentifier(table), strings.Join(defs, ", "))
	_, err := l.db.ExecContext(ctx, stmt)
	return err
}

func (l *CSVLoader) insertBatch(ctx context.Context, table string, columns []string, rows [][]string) error {
	quoted := make([]string, 0, len(columns))
	for _, col := range columns {
		quoted = append(quoted, pq.QuoteIdentifier(col))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ",
		pq.QuoteIdentifier(table), strings.Join(quoted, ", "))

	args := make([]interface{}, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j, val := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", len(args)+1)
			args = append(args, val)
		}
		sb.WriteString(")")
	}

	_, err := l.db.ExecContext(ctx, sb.String(), args...)
	return err
}
